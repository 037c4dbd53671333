// Package combination keeps a set of "combination" vectors expressed as
// linear combinations of a set of "base" vectors, maintaining the
// combination side incrementally under every base edit: it registers
// itself as a vectorset.Listener and folds each incoming delta once,
// rather than recomputing from scratch on every query.
//
// CombinationVectors owns both VectorSets itself (base and combination);
// a caller — typically solver.Driver — replays edits it observes
// elsewhere (e.g. from cycles.Cycles) onto the base side through the
// Base* methods, and this package keeps every combination_set vector in
// sync, supports a single-pivot Gaussian elimination step (Eliminate),
// and offers RepairCombinations/Normalize to control fixed-point drift.
package combination
