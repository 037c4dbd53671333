// Package posconstraint is an incremental sparse linear constraint
// solver: the engine that powers automatic geometric positioning of
// nested visual areas in a reactive UI runtime.
//
// A graph of pair-offset edges between string labels is maintained
// under add/remove mutations (package edge); a maximal independent
// cycle basis of that graph is tracked over a spanning forest (packages
// forest and cycles); each cycle or watched path becomes a row of a
// sparse linear system expressed as combination vectors over base
// vectors (package combination), solved incrementally by single-pivot
// Gaussian elimination with fixed-point rounding control; a sparse
// inner-product cache between two vector sets steers pivot selection
// (package innerproduct). Package solver wires all of the above into
// one driver that ingests edge events and publishes a variable
// assignment.
//
// Everything here is a library-level in-memory engine: no UI, no DOM,
// no storage, no RPC, no authentication, no file I/O. The surrounding
// reactive runtime that turns (label, label, offset) triples into edge
// events and solved positions into rendered geometry is an external
// collaborator, out of scope for this module.
//
// Subpackages, leaves first:
//
//	edge/         — interns undirected (label, label) pairs into a shared integer id space
//	forest/       — spanning forest over labels: add, remove, replace, path query
//	vectorset/    — sparse integer-keyed vectors with inverse indexing and change diffs
//	cycles/       — cycle basis + watched-path vectors maintained under edge mutations
//	combination/  — base/combination vectors, Gaussian elimination, normalization
//	innerproduct/ — incremental sparse dot-product cache between two vector sets
//	solver/       — the driver tying the above into one engine
package posconstraint
