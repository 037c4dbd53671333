// Package cycles maintains a maximal independent cycle basis (plus a set
// of watched-path vectors) over a labeled multigraph, backed by a single
// forest.Forest and edge.Table.
//
// Every non-forest normal edge closes exactly one cycle vector; every
// non-forest watched (non-normal) edge is represented instead by a
// watched-path vector describing the forest path between its endpoints,
// with the watched edge itself excluded from that vector's components.
// Edge add/remove mutations keep this basis consistent by repairing the
// forest (prim_kruskal's union-find idiom generalized to support removal
// and replacement) and rewriting affected cycle/watched vectors through
// vectorset's sparse incremental arithmetic.
//
// Where the source picks an arbitrary element among several candidate
// cycles/paths sharing a removed edge, this package picks the
// numerically smallest vector id — deterministic and reproducible given
// the same call sequence, for reproducibility.
package cycles
