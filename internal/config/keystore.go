package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

const scratchDirName = "mcp-kafka-certs"

// convertTruststore converts a Java truststore (JKS) into a PEM CA file that
// the TLS dialer can consume: keytool re-imports the JKS as PKCS12, then
// openssl extracts the certificates as PEM. The scratch directory is scoped
// to the cluster name and purged before use so a previous run's output can
// never leak into this one.
func convertTruststore(ctx context.Context, clusterName, jksPath, password string) (string, error) {
	if _, err := os.Stat(jksPath); err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("truststore %s: %v", jksPath, err)}
	}

	scratch := filepath.Join(os.TempDir(), scratchDirName, clusterName)
	if err := os.RemoveAll(scratch); err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("purging scratch dir %s: %v", scratch, err)}
	}
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("creating scratch dir %s: %v", scratch, err)}
	}

	p12Path := filepath.Join(scratch, "truststore.p12")
	pemPath := filepath.Join(scratch, "ca.pem")

	keytool := exec.CommandContext(ctx, "keytool",
		"-importkeystore",
		"-srckeystore", jksPath,
		"-destkeystore", p12Path,
		"-deststoretype", "PKCS12",
		"-srcstorepass", password,
		"-deststorepass", password,
		"-noprompt",
	)
	if out, err := keytool.CombinedOutput(); err != nil {
		return "", &ConversionError{Step: "keytool", Output: string(out), Err: err}
	}

	openssl := exec.CommandContext(ctx, "openssl", "pkcs12",
		"-in", p12Path,
		"-out", pemPath,
		"-nokeys",
		"-passin", "pass:"+password,
	)
	if out, err := openssl.CombinedOutput(); err != nil {
		return "", &ConversionError{Step: "openssl", Output: string(out), Err: err}
	}

	slog.Info("Converted truststore to PEM", "cluster", clusterName, "source", jksPath, "ca_file", pemPath)
	return pemPath, nil
}
