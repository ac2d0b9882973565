// Package zonefile reads zone descriptions authored as YAML (or JSON) files
// named after their domain, e.g. "foo.com.yaml", and converts them to the
// JSON records published in the zone store.
package zonefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions recognised as zone description files
var Extensions = []string{".yaml", ".yml", ".json"}

// Description is the authored form of a zone
type Description struct {
	Name        string     `yaml:"name" json:"name"`
	Redirects   []Redirect `yaml:"redirects" json:"redirects"`
	Fallthrough bool       `yaml:"fallthrough,omitempty" json:"fallthrough,omitempty"`
}

// Redirect is one authored redirect rule
type Redirect struct {
	From          string `yaml:"from" json:"from"`
	To            string `yaml:"to" json:"to"`
	Status        int    `yaml:"status,omitempty" json:"status,omitempty"`
	CaseSensitive bool   `yaml:"caseSensitive,omitempty" json:"caseSensitive,omitempty"`
	IncludeParams bool   `yaml:"includeParams,omitempty" json:"includeParams,omitempty"`
}

// Entry is a loaded description ready to be published under Domain
type Entry struct {
	Domain      string
	Path        string
	Description *Description
	Record      []byte // JSON record as stored
}

// Decode parses a YAML or JSON description. Unknown keys are rejected so
// that misspelled options do not silently fall back to their defaults.
func Decode(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	desc := &Description{}
	if err := dec.Decode(desc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty zone description")
		}
		return nil, err
	}

	for i, rule := range desc.Redirects {
		if rule.From == "" {
			return nil, fmt.Errorf("redirect %d: from is required", i)
		}
		if rule.To == "" {
			return nil, fmt.Errorf("redirect %d (%s): to is required", i, rule.From)
		}
	}

	if desc.Redirects == nil {
		desc.Redirects = []Redirect{}
	}

	return desc, nil
}

// Record serializes the description in the stored JSON format
func (d *Description) Record() ([]byte, error) {
	return json.Marshal(d)
}

// FromRecord decodes a stored JSON record back into a description
func FromRecord(data []byte) (*Description, error) {
	desc := &Description{}
	if err := json.Unmarshal(data, desc); err != nil {
		return nil, fmt.Errorf("failed to decode zone record: %w", err)
	}
	if desc.Redirects == nil {
		desc.Redirects = []Redirect{}
	}
	return desc, nil
}

// WriteYAML writes the description in its authored form
func (d *Description) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// DomainFromPath returns the domain a description file is published under
func DomainFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	for _, known := range Extensions {
		if ext == known {
			return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))), true
		}
	}
	return "", false
}

// LoadFile reads one description file
func LoadFile(path string) (*Entry, error) {
	domain, ok := DomainFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported extension, want one of %v", path, Extensions)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zone description: %w", err)
	}

	desc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if desc.Name == "" {
		desc.Name = domain
	}

	record, err := desc.Record()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode record: %w", path, err)
	}

	return &Entry{Domain: domain, Path: path, Description: desc, Record: record}, nil
}

// LoadDir reads every description file in dir, sorted by domain
func LoadDir(dir string) ([]*Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones directory: %w", err)
	}

	var entries []*Entry
	seen := make(map[string]string)

	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if _, ok := DomainFromPath(item.Name()); !ok {
			continue
		}

		entry, err := LoadFile(filepath.Join(dir, item.Name()))
		if err != nil {
			return nil, err
		}

		if prev, dup := seen[entry.Domain]; dup {
			return nil, fmt.Errorf("domain %s is described by both %s and %s", entry.Domain, prev, entry.Path)
		}
		seen[entry.Domain] = entry.Path
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Domain < entries[j].Domain
	})

	return entries, nil
}

// Load reads each path, expanding directories
func Load(paths ...string) ([]*Entry, error) {
	var entries []*Entry
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			dirEntries, err := LoadDir(path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, dirEntries...)
			continue
		}

		entry, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Records maps each entry's domain to its stored record
func Records(entries []*Entry) map[string][]byte {
	records := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		records[entry.Domain] = entry.Record
	}
	return records
}
