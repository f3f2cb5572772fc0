package cluster

import (
	"bytes"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/lib/driver/memdriver"
)

// redirectingConn delegates to an in-memory store but answers with a
// redirect for configured keys, the way a clustered back end does while
// slots move between nodes.
type redirectingConn struct {
	*memdriver.Store
	addr      string
	redirects map[string]*driver.Redirect // consumed on first hit
	askCalls  int
}

func newNode(addr string) *redirectingConn {
	return &redirectingConn{
		Store:     memdriver.New(nil),
		addr:      addr,
		redirects: map[string]*driver.Redirect{},
	}
}

func (c *redirectingConn) redirectFor(key string) *driver.Redirect {
	r, ok := c.redirects[key]
	if !ok {
		return nil
	}
	delete(c.redirects, key)
	return r
}

func (c *redirectingConn) Get(key string) ([]byte, bool, error) {
	if r := c.redirectFor(key); r != nil {
		return nil, false, r
	}
	return c.Store.Get(key)
}

func (c *redirectingConn) Set(key string, value []byte) error {
	if r := c.redirectFor(key); r != nil {
		return r
	}
	return c.Store.Set(key, value)
}

func (c *redirectingConn) Asking() error {
	c.askCalls++
	return nil
}

func dialer(nodes map[string]*redirectingConn) driver.DialFunc {
	return func(addr string) (driver.IConn, error) {
		node, ok := nodes[addr]
		if !ok {
			return nil, driver.NewConnectionError("unknown node "+addr, nil)
		}
		return node, nil
	}
}

func TestMovedRedirectSwitchesNode(t *testing.T) {
	nodeA := newNode("a:6379")
	nodeB := newNode("b:6379")
	nodes := map[string]*redirectingConn{nodeA.addr: nodeA, nodeB.addr: nodeB}

	// node A no longer owns "moved-key"
	nodeA.redirects["moved-key"] = &driver.Redirect{Addr: nodeB.addr, Key: "moved-key"}

	c, err := New(nodeA, dialer(nodes))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Set("moved-key", []byte("v")); err != nil {
		t.Fatalf("Set through moved redirect failed: %v", err)
	}

	// the write must have been replayed on node B
	value, loaded, err := nodeB.Store.Get("moved-key")
	if err != nil || !loaded || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Expected replayed write on target node, got %s (loaded=%t, err=%v)", value, loaded, err)
	}

	// after a moved redirect the wrapper talks to node B directly
	if err := c.Set("other-key", []byte("w")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, loaded, _ := nodeB.Store.Get("other-key"); !loaded {
		t.Errorf("Expected follow-up write to go to the new node")
	}
}

func TestAskRedirectIsOneShot(t *testing.T) {
	nodeA := newNode("a:6379")
	nodeB := newNode("b:6379")
	nodes := map[string]*redirectingConn{nodeA.addr: nodeA, nodeB.addr: nodeB}

	nodeA.redirects["ask-key"] = &driver.Redirect{Ask: true, Addr: nodeB.addr, Key: "ask-key"}

	c, err := New(nodeA, dialer(nodes))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Set("ask-key", []byte("v")); err != nil {
		t.Fatalf("Set through ask redirect failed: %v", err)
	}

	if nodeB.askCalls != 1 {
		t.Errorf("Expected exactly one asking handshake, got %d", nodeB.askCalls)
	}
	if _, loaded, _ := nodeB.Store.Get("ask-key"); !loaded {
		t.Errorf("Expected asked write to land on target node")
	}

	// ask does not switch the primary connection
	if err := c.Set("stay-key", []byte("w")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, loaded, _ := nodeA.Store.Get("stay-key"); !loaded {
		t.Errorf("Expected follow-up write to stay on the original node")
	}
}

func TestSecondRedirectFails(t *testing.T) {
	nodeA := newNode("a:6379")
	nodeB := newNode("b:6379")
	nodes := map[string]*redirectingConn{nodeA.addr: nodeA, nodeB.addr: nodeB}

	// both nodes redirect for the same key
	nodeA.redirects["bouncing-key"] = &driver.Redirect{Addr: nodeB.addr, Key: "bouncing-key"}
	nodeB.redirects["bouncing-key"] = &driver.Redirect{Addr: nodeA.addr, Key: "bouncing-key"}

	c, err := New(nodeA, dialer(nodes))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = c.Set("bouncing-key", []byte("v"))
	if err == nil {
		t.Fatalf("Expected a second redirect to fail the operation")
	}
	if _, isRedirect := driver.AsRedirect(err); isRedirect {
		t.Errorf("A redirect loop must not surface as a followable redirect: %v", err)
	}
}

func TestNonRedirectErrorsPassThrough(t *testing.T) {
	nodeA := newNode("a:6379")
	nodes := map[string]*redirectingConn{nodeA.addr: nodeA}

	c, err := New(nodeA, dialer(nodes))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// SetX with invalid ttl surfaces the back end's error unchanged
	err = c.SetX("k", []byte("v"), -time.Second)
	if err == nil {
		t.Fatalf("Expected backend error to pass through")
	}
	if _, isRedirect := driver.AsRedirect(err); isRedirect {
		t.Errorf("Backend error must not be classified as redirect")
	}
}
