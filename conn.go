package slabcached

import (
	"bufio"
	"fmt"
	"io"

	"github.com/facebookgo/stackerr"

	"github.com/skipor/slabcached/cache"
	"github.com/skipor/slabcached/log"
)

type conn struct {
	reader
	*bufio.Writer
	closer io.Closer
	cache  cache.Cache
	log    log.Logger
}

func newConn(l log.Logger, c cache.Cache, rwc io.ReadWriteCloser) *conn {
	return &conn{
		reader: newReader(rwc),
		Writer: bufio.NewWriterSize(rwc, OutBufferSize),
		closer: rwc,
		cache:  c,
		log:    l,
	}
}

func (c *conn) Close() error {
	c.Flush()
	return c.closer.Close()
}

// serveTurn handles at most one command and reports whether the connection
// should be served again. It is the unit of work the server submits to its
// worker pool: a connection gets one command turn, then yields the worker.
func (c *conn) serveTurn() (again bool) {
	defer func() {
		if r := recover(); r != nil {
			c.serverError(stackerr.Newf("panic: %s", r))
			c.Close()
			return
		}
	}()

	err := c.serveCommand()
	if err != nil {
		if err != io.EOF {
			c.serverError(err)
		}
		c.Close()
		return false
	}
	return true
}

// serveCommand reads and executes one command. io.EOF means the client
// disconnected between commands.
func (c *conn) serveCommand() error {
	command, fields, clientErr, err := c.readCommand()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return stackerr.Wrap(err)
	}
	if clientErr == nil {
		c.log.Debugf("Command: %s.", command)
		switch string(command) { // No allocation.
		case GetCommand, GetsCommand:
			clientErr, err = c.get(fields)
		case SetCommand:
			clientErr, err = c.set(fields)
		default:
			c.log.Errorf("Unexpected command: %s", command)
			err = c.sendResponse(ErrorResponse)
		}
	}
	if clientErr != nil && err == nil {
		err = c.sendClientError(clientErr)
	}
	return err
}

func (c *conn) get(fields [][]byte) (clientErr, err error) {
	if len(fields) == 0 {
		clientErr = stackerr.Wrap(ErrMoreFieldsRequired)
		return
	}
	if len(fields) > 1 {
		clientErr = stackerr.Wrap(ErrTooManyFields)
		return
	}
	key := fields[0]
	clientErr = checkKey(key)
	if clientErr != nil {
		return
	}

	v, ok := c.cache.Get(key)

	err = c.sendGetResponse(key, v, ok)
	return
}

func (c *conn) sendGetResponse(key []byte, v cache.Value, ok bool) error {
	if ok {
		c.log.Debugf("Sending value. Key %s.", key)
		c.WriteString(ValueResponse)
		c.WriteByte(' ')
		c.Write(key)
		fmt.Fprintf(c, " %v %v"+Separator, v.Flags, v.Bytes)
		c.Write(v.Data)
		_, err := c.WriteString(Separator)
		if err != nil {
			return stackerr.Wrap(err)
		}
	}
	return c.sendResponse(EndResponse)
}

func (c *conn) set(fields [][]byte) (clientErr, err error) {
	m, noreply, clientErr := parseSetFields(fields)
	if clientErr != nil {
		err = c.discardCommand()
		return
	}
	if m.bytes > MaxDataSize {
		// The value cannot fit any slot. The payload is still consumed so the
		// connection stays usable.
		c.log.Debugf("set %q refused: %v data bytes above max", m.key, m.bytes)
		_, err = c.Discard(m.bytes + len(Separator))
		if err != nil {
			err = stackerr.Wrap(err)
			return
		}
		if noreply {
			err = c.Flush()
			return
		}
		err = c.sendResponse(NotStoredResponse)
		return
	}

	var data []byte
	data, clientErr, err = c.readDataBlock(m.bytes)
	if err != nil || clientErr != nil {
		return
	}

	stored := c.cache.Set([]byte(m.key), cache.NewValue(m.flags, data))

	if noreply {
		err = c.Flush()
		return
	}
	if stored {
		err = c.sendResponse(StoredResponse)
	} else {
		err = c.sendResponse(NotStoredResponse)
	}
	return
}

func (c *conn) serverError(err error) {
	c.log.Error("Server error: ", err)
	if unwrap(err) == io.ErrUnexpectedEOF {
		return
	}
	err = unwrap(err)
	c.sendResponse(fmt.Sprintf("%s %s", ServerErrorResponse, err))
}

func (c *conn) sendClientError(err error) error {
	c.log.Error("Client error: ", err)
	err = unwrap(err)
	return c.sendResponse(fmt.Sprintf("%s %s", ClientErrorResponse, err))
}

func (c *conn) sendResponse(res string) error {
	c.WriteString(res)
	c.WriteString(Separator)
	return c.Flush()
}

func (c *conn) Flush() error {
	return stackerr.Wrap(c.Writer.Flush())
}
