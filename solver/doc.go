// Package solver is the top-level driver: it owns one edge.Table, one
// cycles.Cycles, one combination.CombinationVectors, and an
// innerproduct.InnerProducts cache between that engine's base set and
// its combination set.
//
// Driver does not decide geometry or constraint semantics itself — it
// replays edge events onto the cycle basis, keeps one combination
// vector per cycle/watched-path vector in lockstep via cycles' diff
// maps, and exposes Eliminate so a caller building an actual
// positioning solver on top can run Gaussian elimination pivots chosen
// from the inner-product cache without re-deriving the bookkeeping.
// Normalization is reached through Combinations(); Driver has no
// Normalize method of its own.
package solver
