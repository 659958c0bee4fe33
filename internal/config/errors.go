package config

import "fmt"

// ConfigError reports invalid or missing configuration. It is fatal at
// startup: the server refuses to run with a broken config rather than
// limping along with part of it.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// ConversionError reports a failed keystore conversion. It only affects the
// cluster whose truststore could not be converted; other clusters stay
// usable.
type ConversionError struct {
	Step   string // "keytool" or "openssl"
	Output string // combined output from the external tool, if any
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("keystore conversion (%s): %v: %s", e.Step, e.Err, e.Output)
	}
	return fmt.Sprintf("keystore conversion (%s): %v", e.Step, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
