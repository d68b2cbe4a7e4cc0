package slabcached

import "github.com/skipor/slabcached/internal/util"

func unwrap(err error) error { return util.Unwrap(err) }
