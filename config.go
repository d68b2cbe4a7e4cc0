package slabcached

import (
	"io"
	"time"

	"github.com/skipor/slabcached/log"
)

// Config is the parsed runtime configuration assembled by cmd/slabcached.
type Config struct {
	Addr           string
	LogDestination io.Writer
	LogLevel       log.Level
	// MemoryLimit bounds cache memory in bytes. It is rounded down to whole
	// pages by the page pool.
	MemoryLimit int64
	// StatsLogInterval is how often counters are dumped to the log.
	// Zero disables the dump.
	StatsLogInterval time.Duration
}
