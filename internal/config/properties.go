package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// clientProperties is the subset of Java client properties keys the server
// understands. Unrecognized keys are ignored.
type clientProperties struct {
	SecurityProtocol   string
	SASLMechanism      string
	SASLJAASConfig     string
	TruststoreLocation string
	TruststorePassword string
	SSLCAFile          string
	SSLCertFile        string
	SSLKeyFile         string
}

// loadClientProperties parses a Java key=value properties file. Properties
// files have no section header, so one is synthesized before handing the
// content to the INI parser.
func loadClientProperties(path string) (clientProperties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return clientProperties{}, &ConfigError{Reason: fmt.Sprintf("reading client properties %s: %v", path, err)}
	}

	source := append([]byte("[client]\n"), data...)
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, source)
	if err != nil {
		return clientProperties{}, &ConfigError{Reason: fmt.Sprintf("parsing client properties %s: %v", path, err)}
	}

	section := file.Section("client")
	return clientProperties{
		SecurityProtocol:   section.Key("security.protocol").String(),
		SASLMechanism:      section.Key("sasl.mechanism").String(),
		SASLJAASConfig:     section.Key("sasl.jaas.config").String(),
		TruststoreLocation: section.Key("ssl.truststore.location").String(),
		TruststorePassword: section.Key("ssl.truststore.password").String(),
		SSLCAFile:          section.Key("ssl.cafile").String(),
		SSLCertFile:        section.Key("ssl.certfile").String(),
		SSLKeyFile:         section.Key("ssl.keyfile").String(),
	}, nil
}

// parseJAASValue extracts one key="value" pair from a JAAS config string.
// It scans for the key, the '=' after it, then a quoted value where a
// backslash escapes the quote character. It returns an empty string when the
// key, the '=', or the opening quote is missing. This is intentionally not a
// full JAAS grammar; the value may sit among other key=value pairs and the
// surrounding structure is ignored.
func parseJAASValue(key, text string) string {
	keyPos := strings.Index(text, key)
	if keyPos == -1 {
		return ""
	}

	eqPos := strings.Index(text[keyPos+len(key):], "=")
	if eqPos == -1 {
		return ""
	}

	i := keyPos + len(key) + eqPos + 1
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}

	if i >= len(text) || (text[i] != '"' && text[i] != '\'') {
		return ""
	}

	quote := text[i]
	i++
	var value []byte
	for i < len(text) {
		ch := text[i]
		if ch == quote {
			if len(value) > 0 && value[len(value)-1] == '\\' {
				value[len(value)-1] = quote
			} else {
				break
			}
		} else {
			value = append(value, ch)
		}
		i++
	}

	return string(value)
}
