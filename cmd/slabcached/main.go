package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/skipor/slabcached"
	"github.com/skipor/slabcached/cache"
	"github.com/skipor/slabcached/cmd/slabcached/config"
	"github.com/skipor/slabcached/internal/tag"
	"github.com/skipor/slabcached/log"
	"github.com/skipor/slabcached/slab"
	"github.com/skipor/slabcached/stat"
)

const usage = `
Config values merge rules:
1) config file value overrides default
2) command line value overrides any
Options:
`

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s", usage)
		flag.PrintDefaults()
	}
}

func main() {
	bootLog := log.NewLogger(log.InfoLevel, os.Stderr)
	conf, err := mergedConfig()
	if err != nil {
		bootLog.Fatal("Config error: ", err)
	}
	sconf, err := config.Parse(*conf)
	if err != nil {
		bootLog.Fatal("Config error: ", err)
	}

	l := log.NewLogger(sconf.LogLevel, sconf.LogDestination)
	pool, err := slab.NewPagePool(sconf.MemoryLimit)
	if err != nil {
		l.Fatal("Page pool init error: ", err)
	}
	reg := stat.NewRegistry()
	c, err := cache.NewRouter(pool, l, reg)
	if err != nil {
		l.Fatal("Cache init error: ", err)
	}
	defer c.Close()
	var serverCache cache.Cache = c
	if sconf.LogLevel == log.DebugLevel {
		serverCache = slabcached.NewLoggingCacheView(c, l)
	}

	s := &slabcached.Server{
		Addr:  sconf.Addr,
		Cache: serverCache,
		Log:   l,
		Stats: reg.Server,
	}
	l.Debugf("Config: %#v", sconf)
	if tag.Debug {
		l.Warn("Using debug build. It has more runtime checks and large performance overhead.")
	}
	if sconf.StatsLogInterval > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go reg.LogPeriodically(l, sconf.StatsLogInterval, stop)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	got := make(chan os.Signal, 1)
	go func() {
		sig := <-sigs
		l.Infof("Got signal %v, stopping.", sig)
		got <- sig
		s.Stop()
	}()

	l.Infof("Serve on %s.", s.Addr)
	err = s.ListenAndServe()
	if err == slabcached.ErrServerClosed {
		sig := <-got
		l.Info("Stopped.")
		c.Close()
		// Exit with the conventional signal death status.
		os.Exit(128 + int(sig.(syscall.Signal)))
	}
	l.Fatal("Serve error: ", err)
}

// mergedConfig parses command flags, reads the config file if any, and
// returns the merged config.
// Config values merge rules:
// 1) config file value overrides default
// 2) command line value overrides any
func mergedConfig() (*config.Config, error) {
	flg := parseFlags()
	conf := config.Default()
	if flg.ConfigPath != "" {
		fileConf, err := config.Load(flg.ConfigPath)
		if err != nil {
			return nil, err
		}
		config.Merge(conf, fileConf)
	}
	config.Merge(conf, &flg.Config)
	return conf, nil
}

type Flags struct {
	ConfigPath string
	config.Config
}

func parseFlags() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "", "path to toml config")

	def := config.Default()
	usage := func(usage string, defVal interface{}) string {
		if _, ok := defVal.(string); ok {
			return usage + fmt.Sprintf(" (default %q)", defVal)
		}
		return usage + fmt.Sprintf(" (default %v)", defVal)
	}
	flag.StringVar(&f.Host, "host", "", usage("host address to bind", def.Host))
	flag.IntVar(&f.Port, "port", 0, usage("port num", def.Port))
	flag.StringVar(&f.LogDestination, "log-destination", "", usage("log destination: stderr, stdout or file path", def.LogDestination))
	flag.StringVar(&f.LogLevel, "log-level", "", usage("log level: debug, info, warn, error, fatal", def.LogLevel))
	flag.StringVar(&f.MemoryLimit, "memory-limit", "", usage("cache memory limit: 2g, 160m", def.MemoryLimit))
	flag.StringVar(&f.StatsLogInterval, "stats-log-interval", "", usage("counters dump period, e.g. 30s, 1m", def.StatsLogInterval))
	flag.Parse()
	return f
}
