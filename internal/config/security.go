package config

import (
	"context"
	"fmt"
	"strings"
)

// SecurityProtocol mirrors the Kafka client security.protocol values.
type SecurityProtocol string

const (
	ProtocolPlaintext     SecurityProtocol = "PLAINTEXT"
	ProtocolSSL           SecurityProtocol = "SSL"
	ProtocolSASLPlaintext SecurityProtocol = "SASL_PLAINTEXT"
	ProtocolSASLSSL       SecurityProtocol = "SASL_SSL"
)

// SecurityProfile is the normalized connection security for one cluster.
// Every configuration shape (flat fields, nested sasl/ssl blocks, Java
// client properties file) resolves into this one type.
type SecurityProfile struct {
	Protocol SecurityProtocol

	SASLMechanism string // "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	SASLUsername  string
	SASLPassword  string

	SSLCAFile   string
	SSLCertFile string
	SSLKeyFile  string
}

// RequiresSASL reports whether the protocol needs SASL credentials.
func (p SecurityProfile) RequiresSASL() bool {
	return p.Protocol == ProtocolSASLPlaintext || p.Protocol == ProtocolSASLSSL
}

// RequiresSSL reports whether the protocol needs a TLS dialer.
func (p SecurityProfile) RequiresSSL() bool {
	return p.Protocol == ProtocolSSL || p.Protocol == ProtocolSASLSSL
}

// ResolveSecurity produces the SecurityProfile for one cluster. The cluster
// name scopes the scratch directory used when a Java truststore has to be
// converted to PEM, so concurrent resolutions for different clusters never
// share scratch state.
//
// A missing CA file for SSL protocols is deliberately not an error here: it
// surfaces at connect time, matching the Kafka client's own behavior.
func ResolveSecurity(ctx context.Context, name string, cluster ClusterConfig) (SecurityProfile, error) {
	if cluster.ClientProperties != "" {
		return resolveFromProperties(ctx, name, cluster.ClientProperties)
	}

	profile := SecurityProfile{
		Protocol:      ProtocolPlaintext,
		SASLMechanism: cluster.SASLMechanism,
		SASLUsername:  cluster.SASLPlainUsername,
		SASLPassword:  cluster.SASLPlainPassword,
		SSLCAFile:     cluster.SSLCAFile,
		SSLCertFile:   cluster.SSLCertFile,
		SSLKeyFile:    cluster.SSLKeyFile,
	}

	if cluster.SecurityProtocol != "" {
		proto, err := parseProtocol(cluster.SecurityProtocol)
		if err != nil {
			return SecurityProfile{}, err
		}
		profile.Protocol = proto
	}

	// Nested blocks win over flat fields when both are present.
	if cluster.SASL != nil {
		if cluster.SASL.Mechanism != "" {
			profile.SASLMechanism = cluster.SASL.Mechanism
		}
		if cluster.SASL.Username != "" {
			profile.SASLUsername = cluster.SASL.Username
		}
		if cluster.SASL.Password != "" {
			profile.SASLPassword = cluster.SASL.Password
		}
	}
	if cluster.SSL != nil {
		if cluster.SSL.CAFile != "" {
			profile.SSLCAFile = cluster.SSL.CAFile
		}
		if cluster.SSL.CertFile != "" {
			profile.SSLCertFile = cluster.SSL.CertFile
		}
		if cluster.SSL.KeyFile != "" {
			profile.SSLKeyFile = cluster.SSL.KeyFile
		}
	}

	if err := validateSASL(name, profile); err != nil {
		return SecurityProfile{}, err
	}
	return profile, nil
}

// resolveFromProperties builds a profile from a Java client properties file,
// converting a configured truststore into a PEM CA file when no direct CA
// path is given.
func resolveFromProperties(ctx context.Context, name, path string) (SecurityProfile, error) {
	props, err := loadClientProperties(path)
	if err != nil {
		return SecurityProfile{}, err
	}

	profile := SecurityProfile{
		Protocol:      ProtocolPlaintext,
		SASLMechanism: props.SASLMechanism,
		SSLCAFile:     props.SSLCAFile,
		SSLCertFile:   props.SSLCertFile,
		SSLKeyFile:    props.SSLKeyFile,
	}
	if props.SecurityProtocol != "" {
		proto, err := parseProtocol(props.SecurityProtocol)
		if err != nil {
			return SecurityProfile{}, err
		}
		profile.Protocol = proto
	}
	if props.SASLJAASConfig != "" {
		profile.SASLUsername = parseJAASValue("username", props.SASLJAASConfig)
		profile.SASLPassword = parseJAASValue("password", props.SASLJAASConfig)
	}

	if profile.SSLCAFile == "" && props.TruststoreLocation != "" {
		caFile, err := convertTruststore(ctx, name, props.TruststoreLocation, props.TruststorePassword)
		if err != nil {
			return SecurityProfile{}, err
		}
		profile.SSLCAFile = caFile
	}

	if err := validateSASL(name, profile); err != nil {
		return SecurityProfile{}, err
	}
	return profile, nil
}

func validateSASL(name string, profile SecurityProfile) error {
	if !profile.RequiresSASL() {
		return nil
	}
	switch {
	case profile.SASLMechanism == "":
		return &ConfigError{Reason: fmt.Sprintf("cluster %q: %s requires sasl_mechanism", name, profile.Protocol)}
	case profile.SASLUsername == "" || profile.SASLPassword == "":
		return &ConfigError{Reason: fmt.Sprintf("cluster %q: %s requires SASL username and password", name, profile.Protocol)}
	}
	return nil
}

func parseProtocol(s string) (SecurityProtocol, error) {
	switch SecurityProtocol(strings.ToUpper(s)) {
	case ProtocolPlaintext:
		return ProtocolPlaintext, nil
	case ProtocolSSL:
		return ProtocolSSL, nil
	case ProtocolSASLPlaintext:
		return ProtocolSASLPlaintext, nil
	case ProtocolSASLSSL:
		return ProtocolSASLSSL, nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("unsupported security protocol %q", s)}
	}
}
