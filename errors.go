package searchutils

import (
	"errors"

	"github.com/informationgrid/ingrid-search-utils/facet"
	"github.com/informationgrid/ingrid-search-utils/query"
	"github.com/informationgrid/ingrid-search-utils/spill"
)

var (
	// ErrClosed is reported by a Facets instance after Close.
	ErrClosed = errors.New("searchutils: closed")

	// ErrConfiguration is returned by New for an unusable option set.
	ErrConfiguration = facet.ErrConfiguration

	// ErrShardMismatch is reported in strict shard mode when a class and the
	// result disagree on the number of shards.
	ErrShardMismatch = facet.ErrShardMismatch

	// ErrNotFound is returned when a spilled class is missing.
	ErrNotFound = spill.ErrNotFound

	// ErrParse is matched by every query syntax error.
	ErrParse = query.ErrParse
)
