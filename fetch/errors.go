package fetch

import (
	"errors"

	"relfetch/schema"
)

// ErrNotARelationship mirrors schema.ErrNotARelationship for callers that
// only import this package.
var ErrNotARelationship = schema.ErrNotARelationship

// ErrUnknownPathSpec indicates a path specifier that is neither a dotted
// string, a typed attribute handle, nor a recognized wrapper.
var ErrUnknownPathSpec = errors.New("unknown path spec")

// ErrIncompatibleFetcher indicates composite construction over fetchers
// that cannot share one physical query.
var ErrIncompatibleFetcher = errors.New("incompatible composite fetchers")

// ErrUnloadedRelation indicates a dotted path crossed a relationship hop
// that has not been fetched yet. Shallower paths must be requested before
// deeper ones.
var ErrUnloadedRelation = errors.New("relation not loaded")
