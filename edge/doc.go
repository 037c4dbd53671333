// Package edge interns undirected label pairs into stable integer ids.
//
// A Table is the single allocator for edge ids: cycles and solver refer
// to an edge by its uint64 id, which also serves as the component key of
// the vectors in vectorset, combination and innerproduct, so the
// pair-to-id mapping and its canonical endpoint order live in exactly one
// place. Package forest works on (a, b) label pairs directly and does not
// use edge ids.
//
// An edge exists in the table from the moment Create reserves its id until
// all three of its flags (InForest, Normal, Watched) go false, at which
// point the id is released back to a free list for reuse.
package edge
