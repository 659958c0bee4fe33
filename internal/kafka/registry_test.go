package kafka

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanghua1505/mcp-kafka/internal/config"
)

func testDefs() map[string]config.ClusterConfig {
	return map[string]config.ClusterConfig{
		"prod":    {BootstrapServers: config.BootstrapServers{"prod:9092"}},
		"staging": {BootstrapServers: config.BootstrapServers{"staging:9092"}},
	}
}

func TestRegistryClusterNames(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	want := []string{"prod", "staging"}
	if got := registry.ClusterNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected cluster names %v, got %v", want, got)
	}
}

func TestRegistryDefinitionNotFound(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	_, err := registry.Definition("nope")
	if !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("Expected ErrClusterNotFound, got %v", err)
	}
	_, err = registry.Conn(context.Background(), "nope")
	if !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("Expected ErrClusterNotFound from Conn, got %v", err)
	}
}

func TestRegistryConnCachesPerName(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	var dials int32
	registry.dial = func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
		atomic.AddInt32(&dials, 1)
		return &Conn{}, nil
	}

	first, err := registry.Conn(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	second, err := registry.Conn(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	if first != second {
		t.Error("Expected cached connection on second call")
	}
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("Expected exactly 1 dial, got %d", n)
	}

	// a different name dials its own connection, staging stayed untouched
	// until now
	if _, err := registry.Conn(context.Background(), "staging"); err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	if n := atomic.LoadInt32(&dials); n != 2 {
		t.Errorf("Expected 2 dials after second cluster, got %d", n)
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	var dials int32
	registry.dial = func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
		atomic.AddInt32(&dials, 1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		return &Conn{}, nil
	}

	const callers = 16
	conns := make([]*Conn, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := registry.Conn(context.Background(), "prod")
			if err != nil {
				t.Errorf("Conn failed: %v", err)
				return
			}
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("Expected exactly 1 dial for concurrent first use, got %d", n)
	}
	for i := 1; i < callers; i++ {
		if conns[i] != conns[0] {
			t.Fatalf("Caller %d received a different handle", i)
		}
	}
}

func TestRegistryDialFailureNotCached(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	var dials int32
	registry.dial = func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return nil, fmt.Errorf("broker unreachable")
		}
		return &Conn{}, nil
	}

	if _, err := registry.Conn(context.Background(), "prod"); err == nil {
		t.Fatal("Expected first dial to fail")
	}
	if _, err := registry.Conn(context.Background(), "prod"); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if n := atomic.LoadInt32(&dials); n != 2 {
		t.Errorf("Expected 2 dials, got %d", n)
	}
}

func TestRegistryCloseAll(t *testing.T) {
	registry := NewRegistry("test-client", testDefs())

	var closes int32
	registry.dial = func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
		return &Conn{close: func() { atomic.AddInt32(&closes, 1) }}, nil
	}

	if _, err := registry.Conn(context.Background(), "prod"); err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	if _, err := registry.Conn(context.Background(), "staging"); err != nil {
		t.Fatalf("Conn failed: %v", err)
	}

	registry.CloseAll()
	if n := atomic.LoadInt32(&closes); n != 2 {
		t.Errorf("Expected 2 closes, got %d", n)
	}

	// definitions survive; only the connection cache is emptied
	if got := registry.ClusterNames(); !reflect.DeepEqual(got, []string{"prod", "staging"}) {
		t.Errorf("Expected cluster names to survive CloseAll, got %v", got)
	}

	// idempotent on an empty cache
	registry.CloseAll()
	if n := atomic.LoadInt32(&closes); n != 2 {
		t.Errorf("Expected no extra closes on second CloseAll, got %d", n)
	}

	// the next use reconnects
	var dials int32
	registry.dial = func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
		atomic.AddInt32(&dials, 1)
		return &Conn{}, nil
	}
	if _, err := registry.Conn(context.Background(), "prod"); err != nil {
		t.Fatalf("Conn after CloseAll failed: %v", err)
	}
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("Expected fresh dial after CloseAll, got %d", n)
	}
}
