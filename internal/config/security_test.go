package config

import (
	"context"
	"errors"
	"testing"
)

func TestResolveSecurityFlatFields(t *testing.T) {
	cluster := ClusterConfig{
		SecurityProtocol:  "SASL_SSL",
		SASLMechanism:     "SCRAM-SHA-256",
		SASLPlainUsername: "alice",
		SASLPlainPassword: "secret",
		SSLCAFile:         "/etc/kafka/ca.pem",
	}

	profile, err := ResolveSecurity(context.Background(), "prod", cluster)
	if err != nil {
		t.Fatalf("ResolveSecurity failed: %v", err)
	}
	if profile.Protocol != ProtocolSASLSSL {
		t.Errorf("Expected protocol SASL_SSL, got %s", profile.Protocol)
	}
	if profile.SASLUsername != "alice" || profile.SASLPassword != "secret" {
		t.Errorf("Expected flat SASL credentials, got %q/%q", profile.SASLUsername, profile.SASLPassword)
	}
	if profile.SSLCAFile != "/etc/kafka/ca.pem" {
		t.Errorf("Expected CA file from flat field, got %q", profile.SSLCAFile)
	}
}

func TestResolveSecurityNestedBlocksWin(t *testing.T) {
	cluster := ClusterConfig{
		SecurityProtocol:  "sasl_plaintext", // case-insensitive
		SASLMechanism:     "PLAIN",
		SASLPlainUsername: "flat-user",
		SASLPlainPassword: "flat-pass",
		SASL: &SASLBlock{
			Username: "nested-user",
			Password: "nested-pass",
		},
		SSL: &SSLBlock{CAFile: "/nested/ca.pem"},
	}

	profile, err := ResolveSecurity(context.Background(), "prod", cluster)
	if err != nil {
		t.Fatalf("ResolveSecurity failed: %v", err)
	}
	if profile.Protocol != ProtocolSASLPlaintext {
		t.Errorf("Expected protocol SASL_PLAINTEXT, got %s", profile.Protocol)
	}
	if profile.SASLUsername != "nested-user" || profile.SASLPassword != "nested-pass" {
		t.Errorf("Expected nested credentials to win, got %q/%q", profile.SASLUsername, profile.SASLPassword)
	}
	if profile.SASLMechanism != "PLAIN" {
		t.Errorf("Expected mechanism PLAIN kept from flat field, got %q", profile.SASLMechanism)
	}
	if profile.SSLCAFile != "/nested/ca.pem" {
		t.Errorf("Expected nested CA file, got %q", profile.SSLCAFile)
	}
}

func TestResolveSecurityDefaultsToPlaintext(t *testing.T) {
	profile, err := ResolveSecurity(context.Background(), "local", ClusterConfig{})
	if err != nil {
		t.Fatalf("ResolveSecurity failed: %v", err)
	}
	if profile.Protocol != ProtocolPlaintext {
		t.Errorf("Expected PLAINTEXT default, got %s", profile.Protocol)
	}
	if profile.RequiresSASL() || profile.RequiresSSL() {
		t.Error("PLAINTEXT profile should require neither SASL nor SSL")
	}
}

func TestResolveSecurityMissingSASLCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cluster ClusterConfig
	}{
		{
			name:    "no mechanism",
			cluster: ClusterConfig{SecurityProtocol: "SASL_PLAINTEXT", SASLPlainUsername: "u", SASLPlainPassword: "p"},
		},
		{
			name:    "no password",
			cluster: ClusterConfig{SecurityProtocol: "SASL_SSL", SASLMechanism: "PLAIN", SASLPlainUsername: "u"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveSecurity(context.Background(), "prod", tt.cluster)
			if err == nil {
				t.Fatal("Expected configuration error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestResolveSecurityMissingCAFileTolerated(t *testing.T) {
	// SSL without a CA file is a latent misconfiguration that surfaces at
	// connect time, not at resolution time.
	profile, err := ResolveSecurity(context.Background(), "prod", ClusterConfig{SecurityProtocol: "SSL"})
	if err != nil {
		t.Fatalf("ResolveSecurity failed: %v", err)
	}
	if !profile.RequiresSSL() {
		t.Error("Expected SSL profile")
	}
	if profile.SSLCAFile != "" {
		t.Errorf("Expected empty CA file, got %q", profile.SSLCAFile)
	}
}

func TestResolveSecurityUnsupportedProtocol(t *testing.T) {
	_, err := ResolveSecurity(context.Background(), "prod", ClusterConfig{SecurityProtocol: "KERBEROS"})
	if err == nil {
		t.Fatal("Expected error for unsupported protocol")
	}
}

func TestResolveSecurityFromPropertiesFile(t *testing.T) {
	path := writeFile(t, "client.properties", `
security.protocol=SASL_SSL
sasl.mechanism=SCRAM-SHA-256
sasl.jaas.config=org.apache.kafka.common.security.scram.ScramLoginModule required username="alice" password="secret";
ssl.cafile=/etc/kafka/ca.pem
`)
	cluster := ClusterConfig{ClientProperties: path}

	profile, err := ResolveSecurity(context.Background(), "prod", cluster)
	if err != nil {
		t.Fatalf("ResolveSecurity failed: %v", err)
	}
	if profile.Protocol != ProtocolSASLSSL {
		t.Errorf("Expected SASL_SSL, got %s", profile.Protocol)
	}
	if profile.SASLUsername != "alice" || profile.SASLPassword != "secret" {
		t.Errorf("Expected JAAS credentials, got %q/%q", profile.SASLUsername, profile.SASLPassword)
	}
	if profile.SSLCAFile != "/etc/kafka/ca.pem" {
		t.Errorf("Expected direct CA file (no conversion), got %q", profile.SSLCAFile)
	}
}

func TestResolveSecurityMissingTruststore(t *testing.T) {
	path := writeFile(t, "client.properties", `
security.protocol=SSL
ssl.truststore.location=/does/not/exist.jks
ssl.truststore.password=changeit
`)
	cluster := ClusterConfig{ClientProperties: path}

	_, err := ResolveSecurity(context.Background(), "prod", cluster)
	if err == nil {
		t.Fatal("Expected error for missing truststore file")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected *ConfigError for missing source file, got %T: %v", err, err)
	}
}
