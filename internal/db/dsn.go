package db

import (
	"sort"
	"strings"

	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// keywordAliases maps accepted INI spellings to libpq keywords.
var keywordAliases = map[string]string{
	"database": "dbname",
	"username": "user",
}

// BuildConnString turns INI connection parameters into a libpq keyword/value
// connection string. Reserved pvsload keys are dropped, every other key is
// passed through unchanged so unknown keywords fail at connect time, the same
// way they would with any libpq client. Keys are emitted in sorted order.
func BuildConnString(params pvsload.ConnectionParams) string {
	settings := make(map[string]string, len(params))
	for key, value := range params {
		key = strings.ToLower(strings.TrimSpace(key))
		if isReserved(key) {
			continue
		}
		if alias, ok := keywordAliases[key]; ok {
			// An explicit libpq keyword wins over its alias.
			if _, exists := params[alias]; exists {
				continue
			}
			key = alias
		}
		settings[key] = value
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+quoteValue(settings[key]))
	}
	return strings.Join(parts, " ")
}

// RedactedConnString is BuildConnString with the password masked, for logs.
func RedactedConnString(params pvsload.ConnectionParams) string {
	redacted := make(pvsload.ConnectionParams, len(params))
	for key, value := range params {
		if strings.EqualFold(key, "password") {
			value = "********"
		}
		redacted[key] = value
	}
	return BuildConnString(redacted)
}

// quoteValue single-quotes a value, escaping backslashes and quotes.
func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func isReserved(key string) bool {
	for _, reserved := range pvsload.ReservedParamKeys {
		if key == reserved {
			return true
		}
	}
	return false
}
