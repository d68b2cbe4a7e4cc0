package slabcached

import (
	"io"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/facebookgo/stackerr"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/skipor/slabcached/cache"
	"github.com/skipor/slabcached/log"
	"github.com/skipor/slabcached/stat"
)

const (
	DefaultAddr = ":11211"

	// WorkerQueueSize bounds command turns waiting for a free worker.
	// Submissions past the bound fail instead of queueing without limit.
	WorkerQueueSize = 1024

	// ShutdownGrace is how long Stop waits for in-flight connections to
	// drain before closing them.
	ShutdownGrace = time.Minute
)

var ErrServerClosed = errors.New("server closed")

// Server accepts memcached text protocol connections and executes their
// commands on a bounded worker pool. Connection goroutines only park on
// network reads; command parsing and cache access run on pool workers, so
// command concurrency stays proportional to cores, not to open connections.
type Server struct {
	Addr  string
	Cache cache.Cache
	Log   log.Logger
	Stats stat.ServerStats

	initOnce sync.Once
	initErr  error
	workers  *ants.Pool

	mu          sync.Mutex
	listener    net.Listener
	conns       map[*conn]struct{}
	closed      bool
	connCounter int64
	connWG      sync.WaitGroup
}

func (s *Server) ListenAndServe() error {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(l net.Listener) error {
	if err := s.init(); err != nil {
		l.Close()
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	var tempDelay time.Duration // How long to sleep on accept failure.
	for {
		c, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if ne, ok := err.(net.Error); !(ok && ne.Temporary()) {
				return err
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			s.Log.Errorf("slabcached: Accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		s.Stats.Accepted.Inc(1)
		go s.serveConn(s.newConn(c))
	}
}

// Stop closes the listener, waits up to ShutdownGrace for connections to
// finish, then closes the stragglers and releases the worker pool.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.closed = true
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	drained := make(chan struct{})
	go func() {
		s.connWG.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(ShutdownGrace):
		s.Log.Error("Shutdown grace expired, closing connections.")
		s.closeConns()
		<-drained
	}
	if s.workers != nil {
		s.workers.Release()
	}
	return nil
}

func (s *Server) newConn(c net.Conn) *conn {
	s.mu.Lock()
	id := s.connCounter
	s.connCounter++
	s.mu.Unlock()
	return newConn(s.Log.WithFields(log.Fields{"conn": id}), s.Cache, c)
}

// serveConn parks on the read buffer until the client sends bytes, then runs
// one command turn on a pool worker and parks again. The park plus submit
// round trip keeps slow readers off the workers between commands.
func (s *Server) serveConn(c *conn) {
	s.track(c)
	s.Stats.ActiveConns.Inc(1)
	defer func() {
		s.untrack(c)
		s.Stats.ActiveConns.Dec(1)
	}()
	c.log.Debug("Serve connection.")
	defer c.log.Debug("Connection closed.")

	for {
		_, err := c.Peek(1)
		if err != nil {
			if err != io.EOF {
				c.log.Debugf("Connection read failed: %v", err)
			}
			c.Close()
			return
		}
		turnDone := make(chan bool, 1)
		err = s.workers.Submit(func() {
			turnDone <- c.serveTurn()
		})
		if err != nil {
			// Worker queue overloaded or pool released during shutdown.
			c.serverError(stackerr.Wrap(err))
			c.Close()
			return
		}
		if !<-turnDone {
			return
		}
	}
}

func (s *Server) track(c *conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.connWG.Add(1)
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.connWG.Done()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) init() error {
	s.initOnce.Do(func() {
		if s.Cache == nil {
			s.initErr = errors.New("slabcached: server requires a cache")
			return
		}
		if s.Log == nil {
			s.Log = log.NewLogger(log.ErrorLevel, os.Stderr)
		}
		if s.Stats.Accepted == nil {
			s.Stats = stat.NewRegistry().Server
		}
		s.conns = make(map[*conn]struct{})
		s.workers, s.initErr = ants.NewPool(
			runtime.NumCPU(),
			ants.WithMaxBlockingTasks(WorkerQueueSize),
		)
	})
	return s.initErr
}
