// Package vectorset implements sparse, integer-keyed vectors with an
// inverse index from component to the vectors that reference it.
//
// No zero value is ever stored, forward or inverse: the sparse
// adjacency-map shape here is a map of maps; an inverse-index row is
// deleted once it empties, while a vector's own map stays (possibly
// empty) for as long as its id is allocated. A VectorSet tracks, as a
// diff since the last ClearComponentChanges, which components transitioned
// between "referenced by nothing" and "referenced by at least one
// vector" — combination consults this to repair stale state.
//
// A Listener may be registered to observe every component-level delta;
// combination and innerproduct both use this to stay incrementally
// consistent with a base VectorSet without polling it.
package vectorset
