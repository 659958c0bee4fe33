// Package kafka holds the cluster registry and the administrative
// operations it serves.
package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/khanghua1505/mcp-kafka/internal/config"
)

// Requestor is the part of *kgo.Client the facades use. Anything that can
// answer admin requests satisfies it; tests swap in fakes.
type Requestor interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
	RequestSharded(ctx context.Context, req kmsg.Request) []kgo.ResponseShard
}

// Conn is a live administrative connection to one cluster. It is safe for
// concurrent use; the underlying franz-go client serializes per-broker I/O
// itself.
type Conn struct {
	cl    Requestor
	close func()
}

// NewConn wraps an already established requestor. Dial is the usual way to
// get a Conn; NewConn is for callers that manage the client themselves.
func NewConn(cl Requestor) *Conn {
	return &Conn{cl: cl}
}

// Dial opens an administrative connection using the resolved bootstrap
// servers and security profile, and pings the cluster so that broken
// security config fails here rather than on the first real operation.
func Dial(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*Conn, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(servers...),
		kgo.ClientID(clientID),
		kgo.WithLogger(kgo.BasicLogger(os.Stderr, kgo.LogLevelWarn, nil)),
	}

	if profile.RequiresSSL() {
		tlsConfig, err := buildTLSConfig(profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
		slog.Info("TLS enabled for Kafka client", "ca_file", profile.SSLCAFile)
	}

	if profile.RequiresSASL() {
		mechanism, err := buildSASLMechanism(profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.SASL(mechanism))
		slog.Info("SASL mechanism configured", "mechanism", profile.SASLMechanism)
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("failed to ping Kafka brokers: %w", err)
	}

	return &Conn{cl: cl, close: cl.Close}, nil
}

// Close shuts the connection down. Closing an already closed connection is
// a no-op.
func (c *Conn) Close() error {
	if c.close != nil {
		c.close()
		c.close = nil
	}
	return nil
}

func buildTLSConfig(profile config.SecurityProfile) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if profile.SSLCAFile != "" {
		pem, err := os.ReadFile(profile.SSLCAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file %s: %w", profile.SSLCAFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", profile.SSLCAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if profile.SSLCertFile != "" && profile.SSLKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(profile.SSLCertFile, profile.SSLKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func buildSASLMechanism(profile config.SecurityProfile) (sasl.Mechanism, error) {
	auth := scram.Auth{User: profile.SASLUsername, Pass: profile.SASLPassword}

	switch strings.ToUpper(profile.SASLMechanism) {
	case "PLAIN":
		return plain.Auth{User: profile.SASLUsername, Pass: profile.SASLPassword}.AsMechanism(), nil
	case "SCRAM-SHA-256":
		return auth.AsSha256Mechanism(), nil
	case "SCRAM-SHA-512":
		return auth.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", profile.SASLMechanism)
	}
}
