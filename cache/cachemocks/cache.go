// Package cachemocks contains a testify mock of cache.Cache.
package cachemocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/skipor/slabcached/cache"
)

type Cache struct {
	mock.Mock
}

var _ cache.Cache = (*Cache)(nil)

func (m *Cache) Get(key []byte) (cache.Value, bool) {
	args := m.Called(key)
	return args.Get(0).(cache.Value), args.Bool(1)
}

func (m *Cache) Set(key []byte, v cache.Value) bool {
	args := m.Called(key, v)
	return args.Bool(0)
}
