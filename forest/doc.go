// Package forest maintains a forest of rooted spanning trees over a graph
// of string labels.
//
// Unlike a plain union-find, Forest keeps real parent pointers rather
// than path-compressed ones: it
// must answer path(a, b) queries and identify which endpoint of a removed
// edge ends up in the split-off component, neither of which survives
// aggressive compression. Each tree is rooted at an arbitrary node chosen
// at first insertion; when two trees merge, AddEdge(a, b) reroots b's
// tree at b and hangs it under a, whichever tree is smaller.
package forest
