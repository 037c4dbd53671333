// Package innerproduct maintains a sparse cache of nonzero dot products
// between a VectorSet and a dual VectorSet, updated incrementally on
// every mutation of either side.
//
// InnerProducts registers itself on both sets as a vectorset.Listener
// (the same observer hook combination uses to shadow a base VectorSet),
// so MultiplyVector/AddToVector/RemoveVector on either side are already
// covered generically through the per-component delta stream; Recompute
// exists only as an explicit from-scratch repair for callers that suspect
// drift.
package innerproduct
