package cluster

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("driver/cluster")

// --------------------------------------------------------------------------
// Cluster Wrapper
// --------------------------------------------------------------------------

// conn wraps a driver connection to a natively clustered back end and
// transparently follows redirects.
//
// A moved redirect means the key's slot permanently lives on another
// node: the wrapper dials it (connections are cached per address),
// switches over and replays the operation once. An ask redirect is a
// one-shot detour during slot migration: the target node is asked to
// accept the command, the operation is replayed once and the primary
// connection stays unchanged. A second redirect within the same call
// fails the operation.
type conn struct {
	mu      sync.RWMutex
	current driver.IConn
	dial    driver.DialFunc
	byAddr  *xsync.MapOf[string, driver.IConn]
}

// New wraps an initial connection with redirect handling. The dial
// function is used to reach nodes named in redirects.
func New(initial driver.IConn, dial driver.DialFunc) (driver.IConn, error) {
	if initial == nil {
		return nil, driver.NewConnectionError("no initial connection provided", nil)
	}
	if dial == nil {
		return nil, driver.NewConnectionError("no dial function provided", nil)
	}
	return &conn{
		current: initial,
		dial:    dial,
		byAddr:  xsync.NewMapOf[string, driver.IConn](),
	}, nil
}

// --------------------------------------------------------------------------
// Redirect Handling
// --------------------------------------------------------------------------

// target returns the cached connection for addr, dialing if needed
func (c *conn) target(addr string) (driver.IConn, error) {
	if cached, ok := c.byAddr.Load(addr); ok {
		return cached, nil
	}

	next, err := c.dial(addr)
	if err != nil {
		return nil, driver.NewConnectionError(fmt.Sprintf("failed to reach redirect target %s", addr), err)
	}

	// another goroutine may have dialed in the meantime
	if prev, loaded := c.byAddr.LoadOrStore(addr, next); loaded {
		_ = next.Close()
		return prev, nil
	}
	return next, nil
}

// do runs op against the current connection and replays it once if the
// back end answers with a redirect.
func (c *conn) do(op func(target driver.IConn) error) error {
	c.mu.RLock()
	primary := c.current
	c.mu.RUnlock()

	err := op(primary)
	red, ok := driver.AsRedirect(err)
	if !ok {
		return err
	}

	next, terr := c.target(red.Addr)
	if terr != nil {
		return terr
	}

	if red.Ask {
		Logger.Debugf("following ask redirect to %s for key %q", red.Addr, red.Key)

		// the target only accepts the command after an asking handshake
		if askable, ok := next.(driver.IAskable); ok {
			if err := askable.Asking(); err != nil {
				return err
			}
		}
	} else {
		Logger.Infof("slot moved, switching to %s for key %q", red.Addr, red.Key)

		c.mu.Lock()
		c.current = next
		c.mu.Unlock()
	}

	err = op(next)
	if _, again := driver.AsRedirect(err); again {
		// deliberately not wrapped, a redirect loop must not look like
		// a followable redirect to callers
		return driver.NewBackendError(fmt.Sprintf("redirected twice while following %s: %v", red.Addr, err), nil)
	}
	return err
}

// --------------------------------------------------------------------------
// Key Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *conn) Exists(key string) (ok bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		ok, e = t.Exists(key)
		return e
	})
	return
}

func (c *conn) Get(key string) (value []byte, loaded bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		value, loaded, e = t.Get(key)
		return e
	})
	return
}

func (c *conn) Set(key string, value []byte) error {
	return c.do(func(t driver.IConn) error {
		return t.Set(key, value)
	})
}

func (c *conn) SetX(key string, value []byte, ttl time.Duration) error {
	return c.do(func(t driver.IConn) error {
		return t.SetX(key, value, ttl)
	})
}

func (c *conn) SetIfAbsent(key string, value []byte, ttl time.Duration) (ok bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		ok, e = t.SetIfAbsent(key, value, ttl)
		return e
	})
	return
}

func (c *conn) Delete(key string) error {
	return c.do(func(t driver.IConn) error {
		return t.Delete(key)
	})
}

func (c *conn) Increment(key string, delta int64) (value int64, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		value, e = t.Increment(key, delta)
		return e
	})
	return
}

func (c *conn) Expire(key string, ttl time.Duration) (ok bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		ok, e = t.Expire(key, ttl)
		return e
	})
	return
}

// --------------------------------------------------------------------------
// Hash Operations (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *conn) HGet(key, field string) (value []byte, loaded bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		value, loaded, e = t.HGet(key, field)
		return e
	})
	return
}

func (c *conn) HExists(key, field string) (ok bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		ok, e = t.HExists(key, field)
		return e
	})
	return
}

func (c *conn) HSet(key, field string, value []byte) (created bool, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		created, e = t.HSet(key, field, value)
		return e
	})
	return
}

func (c *conn) HDelete(key string, fields ...string) (removed int64, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		removed, e = t.HDelete(key, fields...)
		return e
	})
	return
}

func (c *conn) HLen(key string) (length int64, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		length, e = t.HLen(key)
		return e
	})
	return
}

func (c *conn) HKeys(key string) (fields []string, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		fields, e = t.HKeys(key)
		return e
	})
	return
}

// --------------------------------------------------------------------------
// Connection Management (docu see driver.IConn)
// --------------------------------------------------------------------------

func (c *conn) RunCommand(cmd string) (result []byte, err error) {
	err = c.do(func(t driver.IConn) error {
		var e error
		result, e = t.RunCommand(cmd)
		return e
	})
	return
}

func (c *conn) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Ping()
}

func (c *conn) Reconnect() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Reconnect()
}

func (c *conn) SupportsFeature(feature driver.Feature) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.SupportsFeature(feature)
}

func (c *conn) GetInfo() driver.DriverInfo {
	c.mu.RLock()
	info := c.current.GetInfo()
	c.mu.RUnlock()

	info.DriverType = driver.ImplCluster
	return info
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.current.Close()
	c.byAddr.Range(func(addr string, target driver.IConn) bool {
		if target != c.current {
			_ = target.Close()
		}
		c.byAddr.Delete(addr)
		return true
	})
	return err
}
