package config

import (
	"fmt"

	"github.com/go-ini/ini"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// LoadConnectionParams reads the named section of an INI file and returns its
// keys verbatim. Keys from the INI DEFAULT section are included, as classic
// INI readers do. Key names are lower-cased.
//
// A missing file is treated like an empty one, so it surfaces as a missing
// section. No individual key is required here; bad or missing keys only show
// up when the connection attempt fails.
func LoadConnectionParams(filename, section string) (pvsload.ConnectionParams, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		InsensitiveKeys:         true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", filename, pvsload.ErrInvalidConfig, err)
	}

	if section == ini.DefaultSection || !file.HasSection(section) {
		return nil, fmt.Errorf("section %s not found in the %s file: %w", section, filename, pvsload.ErrConfigSectionNotFound)
	}

	params := make(pvsload.ConnectionParams)
	for _, key := range file.Section(ini.DefaultSection).Keys() {
		params[key.Name()] = key.Value()
	}
	for _, key := range file.Section(section).Keys() {
		params[key.Name()] = key.Value()
	}

	return params, nil
}
