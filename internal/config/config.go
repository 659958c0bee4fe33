// Package config loads server configuration and normalizes per-cluster
// connection settings into security profiles.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultClusterName is the name given to the single implicit cluster when
// no clusters config file is provided.
const DefaultClusterName = "default"

const defaultKafkaPort = 9092

// Config holds the application configuration.
type Config struct {
	KafkaClientID string // Kafka client ID
	MCPTransport  string // MCP transport method ("stdio" or "http")

	// Named cluster definitions, keyed by cluster name. Loaded either from
	// a clusters config file or synthesized from the flat environment
	// variables as a single "default" cluster.
	Clusters map[string]ClusterConfig

	// HTTP Server Configuration
	HTTPPort int // HTTP server port (default: 8080)

	// OAuth Configuration
	OAuthEnabled   bool
	OAuthMode      string // "native" or "proxy"
	OAuthProvider  string // "hmac", "okta", "google", "azure"
	OAuthServerURL string // Base URL for the MCP server

	// OIDC Configuration
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCAudience     string

	// Proxy Mode Configuration
	OAuthRedirectURIs string // Comma-separated redirect URIs
	JWTSecret         string // Will be converted to []byte for oauth library
}

// ClusterConfig is one named cluster definition. Security settings may be
// given as flat fields, as nested sasl/ssl blocks, or indirectly through a
// Java client properties file; ResolveSecurity folds all three into a
// SecurityProfile.
type ClusterConfig struct {
	Description      string           `yaml:"description"`
	BootstrapServers BootstrapServers `yaml:"bootstrap_servers"`

	SecurityProtocol  string `yaml:"security_protocol"`
	SASLMechanism     string `yaml:"sasl_mechanism"`
	SASLPlainUsername string `yaml:"sasl_plain_username"`
	SASLPlainPassword string `yaml:"sasl_plain_password"`
	SSLCAFile         string `yaml:"ssl_cafile"`
	SSLCertFile       string `yaml:"ssl_certfile"`
	SSLKeyFile        string `yaml:"ssl_keyfile"`

	SASL *SASLBlock `yaml:"sasl"`
	SSL  *SSLBlock  `yaml:"ssl"`

	// Path to a Java client properties file. When set it takes precedence
	// over the flat and nested security fields.
	ClientProperties string `yaml:"client_properties"`
}

// SASLBlock is the nested form of the SASL settings.
type SASLBlock struct {
	Mechanism string `yaml:"mechanism"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// SSLBlock is the nested form of the SSL settings.
type SSLBlock struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"certfile"`
	KeyFile  string `yaml:"keyfile"`
}

// BootstrapServers accepts either a single "host:port" string (optionally
// comma separated) or a YAML list of strings.
type BootstrapServers []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BootstrapServers) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*b = splitServers(s)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*b = list
		return nil
	default:
		return fmt.Errorf("bootstrap_servers must be a string or a list of strings")
	}
}

// Normalized returns the server list with the default Kafka port appended to
// entries that omit one.
func (b BootstrapServers) Normalized() []string {
	out := make([]string, 0, len(b))
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, ":") {
			s = fmt.Sprintf("%s:%d", s, defaultKafkaPort)
		}
		out = append(out, s)
	}
	return out
}

func splitServers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// clustersFile is the on-disk shape of the clusters config file.
type clustersFile struct {
	Clusters map[string]ClusterConfig `yaml:"clusters"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() Config {
	clientID := getEnv("KAFKA_CLIENT_ID", "mcp-kafka")
	mcpTransport := getEnv("MCP_TRANSPORT", "stdio")

	// HTTP Port
	httpPortStr := getEnv("MCP_HTTP_PORT", "8080")
	httpPort, err := strconv.Atoi(httpPortStr)
	if err != nil {
		slog.Warn("Invalid MCP_HTTP_PORT value, using default 8080", "value", httpPortStr)
		httpPort = 8080
	}

	// OAuth Configuration
	oauthEnabledStr := getEnv("OAUTH_ENABLED", "false")
	oauthEnabled, err := strconv.ParseBool(oauthEnabledStr)
	if err != nil {
		slog.Warn("Invalid OAUTH_ENABLED value, using default false", "value", oauthEnabledStr)
		oauthEnabled = false
	}

	return Config{
		KafkaClientID: clientID,
		MCPTransport:  mcpTransport,

		HTTPPort: httpPort,

		OAuthEnabled:   oauthEnabled,
		OAuthMode:      getEnv("OAUTH_MODE", "native"),
		OAuthProvider:  getEnv("OAUTH_PROVIDER", "okta"),
		OAuthServerURL: getEnv("OAUTH_SERVER_URL", ""),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCAudience:     getEnv("OIDC_AUDIENCE", ""),

		OAuthRedirectURIs: getEnv("OAUTH_REDIRECT_URIS", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
	}
}

// LoadClusters populates c.Clusters. When clustersPath is non-empty the
// clusters config file is authoritative; otherwise a single implicit
// "default" cluster is built from the flat environment variables, with
// propertiesPath (or KAFKA_CLIENT_PROPERTIES) layered on top when given.
func (c *Config) LoadClusters(clustersPath, propertiesPath string) error {
	if clustersPath != "" {
		clusters, err := parseClustersFile(clustersPath)
		if err != nil {
			return err
		}
		c.Clusters = clusters
		return nil
	}

	if propertiesPath == "" {
		propertiesPath = getEnv("KAFKA_CLIENT_PROPERTIES", "")
	}

	cluster := ClusterConfig{
		Description:      "Default cluster",
		BootstrapServers: splitServers(getEnv("KAFKA_BROKERS", "localhost:9092")),

		SecurityProtocol:  getEnv("KAFKA_SECURITY_PROTOCOL", ""),
		SASLMechanism:     getEnv("KAFKA_SASL_MECHANISM", ""),
		SASLPlainUsername: getEnv("KAFKA_SASL_USER", ""),
		SASLPlainPassword: getEnv("KAFKA_SASL_PASSWORD", ""),
		SSLCAFile:         getEnv("KAFKA_TLS_CA_FILE", ""),
		SSLCertFile:       getEnv("KAFKA_TLS_CERT_FILE", ""),
		SSLKeyFile:        getEnv("KAFKA_TLS_KEY_FILE", ""),

		ClientProperties: propertiesPath,
	}

	c.Clusters = map[string]ClusterConfig{DefaultClusterName: cluster}
	return nil
}

// ClusterNames returns the configured cluster names in sorted order.
func (c *Config) ClusterNames() []string {
	names := make([]string, 0, len(c.Clusters))
	for name := range c.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseClustersFile reads and validates the clusters config file. Unknown
// top-level keys are a configuration error so that typos fail fast instead
// of silently dropping clusters.
func parseClustersFile(path string) (map[string]ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("reading clusters config %s: %v", path, err)}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parsing clusters config %s: %v", path, err)}
	}
	if len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			for i := 0; i < len(root.Content); i += 2 {
				if key := root.Content[i].Value; key != "clusters" {
					return nil, &ConfigError{Reason: fmt.Sprintf("unrecognized config key %q in %s", key, path)}
				}
			}
		}
	}

	var file clustersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parsing clusters config %s: %v", path, err)}
	}
	if len(file.Clusters) == 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("no clusters defined in %s", path)}
	}
	for name, cluster := range file.Clusters {
		if len(cluster.BootstrapServers) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("cluster %q: bootstrap_servers is required", name)}
		}
	}
	return file.Clusters, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
