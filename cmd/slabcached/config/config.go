// Package config loads, merges and parses slabcached server configuration.
package config

import (
	"bytes"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"

	"github.com/skipor/slabcached"
	"github.com/skipor/slabcached/internal/util"
	"github.com/skipor/slabcached/log"
)

type Config struct {
	Port           int    `toml:"port,omitempty"`
	Host           string `toml:"host,omitempty"`
	LogDestination string `toml:"log-destination,omitempty"` // Stdout, stderr, or file path.
	LogLevel       string `toml:"log-level,omitempty"`
	// Size values: 10g, 128m, 1024k, 1000000b.
	MemoryLimit      string `toml:"memory-limit,omitempty"`
	StatsLogInterval string `toml:"stats-log-interval,omitempty"` // Go duration; empty disables.
}

func Default() *Config {
	return &Config{
		Port:             11211,
		Host:             "",
		LogDestination:   "stderr",
		LogLevel:         "info",
		MemoryLimit:      "160m",
		StatsLogInterval: "1m",
	}
}

func Load(path string) (*Config, error) {
	conf := &Config{}
	_, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, stackerr.Newf("config file parse error: %v", err)
	}
	return conf, nil
}

func Parse(conf Config) (sconf slabcached.Config, err error) {
	sconf.LogDestination, err = log.Destination(conf.LogDestination)
	if err != nil {
		err = stackerr.Newf("log destination open error: %v", err)
		return
	}
	sconf.LogLevel, err = log.LevelFromString(conf.LogLevel)
	if err != nil {
		err = stackerr.Newf("log level parse error: %v", err)
		return
	}
	sconf.MemoryLimit, err = parseSize(conf.MemoryLimit)
	if err != nil {
		err = stackerr.Newf("memory limit parse error: %v", err)
		return
	}
	if conf.StatsLogInterval != "" {
		sconf.StatsLogInterval, err = time.ParseDuration(conf.StatsLogInterval)
		if err != nil {
			err = stackerr.Newf("stats log interval parse error: %v", err)
			return
		}
	}
	sconf.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	return
}

// Merge overwrites def values with non zero override values.
func Merge(def, override *Config) {
	defVal := reflect.ValueOf(def).Elem()
	overrideVal := reflect.ValueOf(override).Elem()
	for i, end := 0, defVal.NumField(); i < end; i++ {
		overrideVal := overrideVal.Field(i)
		if !util.IsZeroVal(overrideVal) {
			defVal.Field(i).Set(overrideVal)
		}
	}
}

func Marshal(conf *Config) []byte {
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(conf)
	if err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func parseSize(s string) (size int64, err error) {
	if len(s) < 2 {
		err = errors.New("invalid size format")
		return
	}
	sep := len(s) - 1
	sizeStr := s[:sep]
	exponentStr := s[sep:]
	var exponent uint32
	switch strings.ToLower(exponentStr) {
	case "b":
		exponent = 0
	case "k":
		exponent = 10
	case "m":
		exponent = 20
	case "g":
		exponent = 30
	default:
		err = errors.New("invalid exponent, only 'b', 'k', 'm', 'g' allowed")
		return
	}
	size, err = strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		err = fmt.Errorf("size parse error: %s", err)
		return
	}
	size <<= exponent
	return
}
