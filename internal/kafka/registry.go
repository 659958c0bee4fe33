package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/khanghua1505/mcp-kafka/internal/config"
)

// DialFunc opens an administrative connection. It exists so tests can count
// and fake connection construction.
type DialFunc func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error)

// connEntry holds the lazily created connection for one cluster name. The
// entry's mutex serializes first-use creation for that name only, so a slow
// dial never blocks traffic to other clusters. The resolved security
// profile is cached alongside the connection so a failed dial does not
// re-run keystore conversion on retry.
type connEntry struct {
	mu      sync.Mutex
	conn    *Conn
	profile *config.SecurityProfile
}

// Registry owns the cluster definitions and at most one live administrative
// connection per cluster name. Definitions are fixed at construction;
// connections are created on first use and live until CloseAll.
type Registry struct {
	clientID string
	defs     map[string]config.ClusterConfig
	names    []string
	dial     DialFunc

	mu    sync.Mutex
	conns map[string]*connEntry
}

// NewRegistry builds a registry over the given cluster definitions.
func NewRegistry(clientID string, defs map[string]config.ClusterConfig) *Registry {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{
		clientID: clientID,
		defs:     defs,
		names:    names,
		dial:     Dial,
		conns:    make(map[string]*connEntry),
	}
}

// NewRegistryWithDial is NewRegistry with connection construction swapped
// out, for callers that build connections themselves.
func NewRegistryWithDial(clientID string, defs map[string]config.ClusterConfig, dial DialFunc) *Registry {
	r := NewRegistry(clientID, defs)
	r.dial = dial
	return r
}

// ClusterNames returns all configured cluster names in sorted order.
func (r *Registry) ClusterNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Definition returns the configuration of a named cluster.
func (r *Registry) Definition(name string) (config.ClusterConfig, error) {
	def, ok := r.defs[name]
	if !ok {
		return config.ClusterConfig{}, fmt.Errorf("%w: %q", ErrClusterNotFound, name)
	}
	return def, nil
}

// Conn returns the administrative connection for a cluster, dialing it on
// first use. Concurrent first-use calls for the same name share one dial:
// the second caller waits for the first and receives the same handle. A
// failed dial is not cached; the next call tries again.
func (r *Registry) Conn(ctx context.Context, name string) (*Conn, error) {
	def, err := r.Definition(name)
	if err != nil {
		return nil, err
	}

	entry := r.entry(name)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.conn != nil {
		return entry.conn, nil
	}

	if entry.profile == nil {
		profile, err := config.ResolveSecurity(ctx, name, def)
		if err != nil {
			return nil, err
		}
		entry.profile = &profile
	}

	slog.Info("Opening admin connection", "cluster", name, "brokers", def.BootstrapServers.Normalized())
	conn, err := r.dial(ctx, r.clientID, def.BootstrapServers.Normalized(), *entry.profile)
	if err != nil {
		return nil, fmt.Errorf("connecting to cluster %q: %w", name, err)
	}
	entry.conn = conn
	return conn, nil
}

func (r *Registry) entry(name string) *connEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[name]
	if !ok {
		e = &connEntry{}
		r.conns[name] = e
	}
	return e
}

// CloseAll closes every cached connection exactly once and empties the
// connection cache. A failure to close one cluster's connection is logged
// and does not stop the rest. Calling CloseAll on an empty cache is a
// no-op; the cluster definitions are untouched either way.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*connEntry)
	r.mu.Unlock()

	for name, entry := range conns {
		entry.mu.Lock()
		conn := entry.conn
		entry.conn = nil
		entry.mu.Unlock()

		if conn == nil {
			continue
		}
		slog.Info("Closing admin connection", "cluster", name)
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close admin connection", "cluster", name, "error", err)
		}
	}
}
