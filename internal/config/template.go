// Package config holds the option surface of the network-modification
// tools: the flag-backed Options struct and the text template file that
// overlays it.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Template is a parsed "key = value" options file. Keys keep their full
// dotted form (for example "network.minCoherence"); values are stored
// verbatim with inline comments stripped.
type Template map[string]string

// autoValue maps each network.* template key to the value its "auto"
// sentinel stands for. "no" means the key defaults to disabled.
var autoValue = map[string]string{
	"network.coherenceBased":  "yes",
	"network.keepMinSpanTree": "yes",
	"network.minCoherence":    "0.7",
	"network.maskFile":        "mask.db",
	"network.maskAoi.yx":      "no",
	"network.maskAoi.lalo":    "no",
	"network.tempBaseMax":     "no",
	"network.perpBaseMax":     "no",
	"network.referenceFile":   "no",
	"network.excludeDate":     "no",
	"network.excludeIfgIndex": "no",
	"network.startDate":       "no",
	"network.endDate":         "no",
}

// ReadTemplate loads a template file from disk. A missing file is an
// error; the caller decides whether a template is optional.
func ReadTemplate(path string) (Template, error) {
	cleanPath := filepath.Clean(path)
	if _, err := os.Stat(cleanPath); err != nil {
		return nil, fmt.Errorf("failed to stat template file: %w", err)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	t, err := ParseTemplate(f)
	if err != nil {
		return nil, fmt.Errorf("template file %s: %w", cleanPath, err)
	}
	return t, nil
}

// ParseTemplate reads "key = value  #comment" lines. Blank lines,
// comment lines, and lines without an '=' are skipped; a repeated key
// keeps the last value.
func ParseTemplate(r io.Reader) (Template, error) {
	t := Template{}
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if key == "" {
			return nil, fmt.Errorf("line %d: option with empty key", lineno)
		}
		value := line[eq+1:]
		if hash := strings.Index(value, "#"); hash >= 0 {
			value = value[:hash]
		}
		t[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// lookup returns the value for key with the "auto" sentinel replaced
// by the key's default, and whether the key appears in the template.
func (t Template) lookup(key string) (string, bool) {
	value, found := t[key]
	if !found {
		return "", false
	}
	if strings.EqualFold(value, "auto") {
		value = autoValue[key]
	}
	return value, true
}

// resolve is lookup with disabled values collapsed: the second result
// is false when the key is absent or resolves to "no" or empty.
func (t Template) resolve(key string) (string, bool) {
	value, found := t.lookup(key)
	if !found || value == "" || strings.EqualFold(value, "no") {
		return "", false
	}
	return value, true
}

// splitList breaks a comma or whitespace separated template value into
// its tokens.
func splitList(value string) []string {
	return strings.Fields(strings.ReplaceAll(value, ",", " "))
}
