package drivertest

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dPS/lib/driver"
)

// ConnFactory is a function that creates a new instance of a driver implementation
type ConnFactory func() driver.IConn

// RunConnTests runs a comprehensive test suite for a driver implementation.
func RunConnTests(t *testing.T, name string, factory ConnFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Exists&Delete", func(t *testing.T) {
			testExistsDelete(t, factory())
		})

		t.Run("SetX", func(t *testing.T) {
			testSetX(t, factory())
		})

		t.Run("SetIfAbsent", func(t *testing.T) {
			testSetIfAbsent(t, factory())
		})

		t.Run("Increment", func(t *testing.T) {
			testIncrement(t, factory())
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory())
		})

		t.Run("Hashes", func(t *testing.T) {
			testHashes(t, factory())
		})

		t.Run("ConcurrentSetIfAbsent", func(t *testing.T) {
			testConcurrentSetIfAbsent(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the driver supports the specified feature.
// Skip the test if it is not supported.
func requireFeature(t testing.TB, conn driver.IConn, feature driver.Feature) {
	if !conn.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSet|driver.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := conn.Set(testKey, testValue1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, loaded, err := conn.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := conn.Set(testKey, testValue2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, loaded, err = conn.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Errorf("Expected key %s to exist after overwrite", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, loaded, err = conn.Get("nonexistent-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}

	// the returned slice must be a copy
	retrieved, _, _ := conn.Get(testKey)
	retrieved[0] = 'X'
	again, _, _ := conn.Get(testKey)
	if !bytes.Equal(again, testValue2) {
		t.Errorf("Mutating a returned value changed the stored value")
	}
}

func testExistsDelete(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSet|driver.FeatureExists|driver.FeatureDelete)

	testKey := "exists-key"

	ok, err := conn.Exists(testKey)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Errorf("Expected key to not exist before Set")
	}

	if err := conn.Set(testKey, []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err = conn.Exists(testKey)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected key to exist after Set")
	}

	if err := conn.Delete(testKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ok, _ = conn.Exists(testKey)
	if ok {
		t.Errorf("Expected key to not exist after Delete")
	}

	// deleting an absent key is not an error
	if err := conn.Delete("never-existed"); err != nil {
		t.Errorf("Delete of absent key returned error: %v", err)
	}
}

func testSetX(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSetX|driver.FeatureGet)

	testKey := "setx-key"

	if err := conn.SetX(testKey, []byte("v"), 150*time.Millisecond); err != nil {
		t.Fatalf("SetX failed: %v", err)
	}

	_, loaded, err := conn.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Errorf("Expected key to be readable before expiry")
	}

	time.Sleep(300 * time.Millisecond)

	_, loaded, err = conn.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded {
		t.Errorf("Expected key to be gone after expiry")
	}
}

func testSetIfAbsent(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSetIfAbsent|driver.FeatureGet)

	testKey := "conditional-key"

	ok, err := conn.SetIfAbsent(testKey, []byte("first"), 0)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected first conditional insert to succeed")
	}

	ok, err = conn.SetIfAbsent(testKey, []byte("second"), 0)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if ok {
		t.Errorf("Expected second conditional insert to fail")
	}

	value, _, _ := conn.Get(testKey)
	if !bytes.Equal(value, []byte("first")) {
		t.Errorf("Expected value of winning insert, got %s", value)
	}

	// with a lease the key must become insertable again after expiry
	leaseKey := "conditional-lease-key"
	if _, err := conn.SetIfAbsent(leaseKey, []byte("v"), 150*time.Millisecond); err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	ok, err = conn.SetIfAbsent(leaseKey, []byte("v2"), 0)
	if err != nil {
		t.Fatalf("SetIfAbsent failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected conditional insert to succeed after lease expiry")
	}
}

func testIncrement(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureIncrement)

	testKey := "counter-key"

	v, err := conn.Increment(testKey, 1)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Expected counter to be 1 after first increment, got %d", v)
	}

	v, err = conn.Increment(testKey, 41)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if v != 42 {
		t.Errorf("Expected counter to be 42, got %d", v)
	}

	v, err = conn.Increment(testKey, -42)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected counter to be 0, got %d", v)
	}
}

func testExpire(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSet|driver.FeatureExpire|driver.FeatureExists)

	testKey := "expire-key"

	// arming an expiry on an absent key reports not found
	ok, err := conn.Expire(testKey, time.Second)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ok {
		t.Errorf("Expected Expire on absent key to report not found")
	}

	if err := conn.Set(testKey, []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err = conn.Expire(testKey, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected Expire on present key to succeed")
	}

	time.Sleep(300 * time.Millisecond)

	ok, _ = conn.Exists(testKey)
	if ok {
		t.Errorf("Expected key to be gone after expiry")
	}
}

func testHashes(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureHashes)

	container := "hash-key"

	created, err := conn.HSet(container, "f1", []byte("v1"))
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if !created {
		t.Errorf("Expected first HSet to create the field")
	}

	created, err = conn.HSet(container, "f1", []byte("v1b"))
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if created {
		t.Errorf("Expected overwriting HSet to not report creation")
	}

	if _, err := conn.HSet(container, "f2", []byte("v2")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	value, loaded, err := conn.HGet(container, "f1")
	if err != nil {
		t.Fatalf("HGet failed: %v", err)
	}
	if !loaded || !bytes.Equal(value, []byte("v1b")) {
		t.Errorf("Expected field f1 to hold v1b, got %s (loaded=%t)", value, loaded)
	}

	_, loaded, err = conn.HGet(container, "missing")
	if err != nil {
		t.Fatalf("HGet failed: %v", err)
	}
	if loaded {
		t.Errorf("Expected missing field to return loaded=false")
	}

	ok, err := conn.HExists(container, "f1")
	if err != nil {
		t.Fatalf("HExists failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected field f1 to exist")
	}

	ok, err = conn.HExists(container, "missing")
	if err != nil {
		t.Fatalf("HExists failed: %v", err)
	}
	if ok {
		t.Errorf("Expected missing field to not exist")
	}

	ok, err = conn.HExists("no-such-hash", "f1")
	if err != nil {
		t.Fatalf("HExists failed: %v", err)
	}
	if ok {
		t.Errorf("Expected field of absent hash to not exist")
	}

	length, err := conn.HLen(container)
	if err != nil {
		t.Fatalf("HLen failed: %v", err)
	}
	if length != 2 {
		t.Errorf("Expected hash length 2, got %d", length)
	}

	fields, err := conn.HKeys(container)
	if err != nil {
		t.Fatalf("HKeys failed: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("Expected 2 field names, got %d", len(fields))
	}

	removed, err := conn.HDelete(container, "f1", "missing")
	if err != nil {
		t.Fatalf("HDelete failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected HDelete to remove exactly 1 field, got %d", removed)
	}

	length, _ = conn.HLen(container)
	if length != 1 {
		t.Errorf("Expected hash length 1 after HDelete, got %d", length)
	}

	// hash length of an absent container is zero, not an error
	length, err = conn.HLen("no-such-hash")
	if err != nil {
		t.Fatalf("HLen failed: %v", err)
	}
	if length != 0 {
		t.Errorf("Expected absent hash to have length 0, got %d", length)
	}
}

func testConcurrentSetIfAbsent(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSetIfAbsent)

	const goroutines = 32
	testKey := "contended-key"

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			ok, err := conn.SetIfAbsent(testKey, []byte(fmt.Sprintf("goroutine-%d", n)), 0)
			if err != nil {
				t.Errorf("SetIfAbsent failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one winning conditional insert, got %d", winners)
	}
}

func testEdgeCases(t *testing.T, conn driver.IConn) {
	defer conn.Close()

	requireFeature(t, conn, driver.FeatureSet|driver.FeatureGet)

	// empty value
	if err := conn.Set("empty-value", nil); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, loaded, err := conn.Get("empty-value")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !loaded {
		t.Errorf("Expected empty value to be stored")
	}
	if len(value) != 0 {
		t.Errorf("Expected empty value, got %d bytes", len(value))
	}

	// binary-unsafe characters in keys and values
	binKey := "key\x00with\xffbinary"
	binValue := []byte{0, 1, 2, 255, 254, '\n', '='}
	if err := conn.Set(binKey, binValue); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, loaded, _ = conn.Get(binKey)
	if !loaded || !bytes.Equal(value, binValue) {
		t.Errorf("Binary key/value round trip failed")
	}

	// large value
	large := make([]byte, 1<<20)
	for i := range large {
		large[i] = byte(i % 251)
	}
	if err := conn.Set("large-value", large); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, loaded, _ = conn.Get("large-value")
	if !loaded || !bytes.Equal(value, large) {
		t.Errorf("Large value round trip failed")
	}
}
