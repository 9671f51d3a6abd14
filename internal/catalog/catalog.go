// Package catalog holds the read-only service catalog and the fuzzy
// service-name matcher. The catalog maps numeric service ids to the full
// service name (method + URL as reported by the metrics store) and a cleaned
// path used for matching. It is loaded once at startup and never mutated.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one cataloged service.
type Entry struct {
	ServiceName string `yaml:"service_name"`
	ServicePath string `yaml:"service_path"`
}

// File is the on-disk catalog shape, produced by `slopilot services fetch`.
type File struct {
	ApplicationID int           `yaml:"application_id"`
	GeneratedAt   string        `yaml:"generated_at"`
	TotalServices int           `yaml:"total_services"`
	ServicesByID  map[int]Entry `yaml:"services_by_id"`
}

// Catalog is the loaded, iteration-stable view of a catalog file. Services
// are ordered by ascending id so matching is deterministic.
type Catalog struct {
	appID    int
	ids      []int
	services map[int]Entry
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service catalog: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse service catalog: %w", err)
	}
	return FromFile(&f), nil
}

// FromFile builds an in-memory catalog from a parsed file.
func FromFile(f *File) *Catalog {
	ids := make([]int, 0, len(f.ServicesByID))
	for id := range f.ServicesByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return &Catalog{
		appID:    f.ApplicationID,
		ids:      ids,
		services: f.ServicesByID,
	}
}

// Len reports the number of cataloged services.
func (c *Catalog) Len() int { return len(c.ids) }

// ApplicationID returns the application the catalog was fetched for.
func (c *Catalog) ApplicationID() int { return c.appID }

// Get looks up a service by id.
func (c *Catalog) Get(id int) (Entry, bool) {
	e, ok := c.services[id]
	return e, ok
}

// BuildFile assembles a catalog file from raw service names keyed by id,
// deriving the cleaned path for each.
func BuildFile(appID int, names map[int]string) *File {
	byID := make(map[int]Entry, len(names))
	for id, name := range names {
		byID[id] = Entry{
			ServiceName: name,
			ServicePath: CleanPath(name),
		}
	}
	return &File{
		ApplicationID: appID,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		TotalServices: len(byID),
		ServicesByID:  byID,
	}
}

// Write persists the catalog file as YAML.
func (f *File) Write(path string) error {
	raw, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal service catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write service catalog: %w", err)
	}
	return nil
}

// CleanPath derives the matchable path from a raw service name of the form
// "GET https://host/api/mobile-devices/dashboard-stats". The HTTP method,
// protocol and host are stripped; names that do not look like URLs are
// returned unchanged.
func CleanPath(serviceName string) string {
	raw := strings.TrimSpace(serviceName)
	if raw == "" {
		return raw
	}

	// Drop a leading "METHOD " token when present.
	url := raw
	if parts := strings.SplitN(raw, " ", 2); len(parts) == 2 {
		url = strings.TrimSpace(parts[1])
	}

	var path string
	if idx := strings.Index(url, "://"); idx >= 0 {
		afterProtocol := url[idx+3:]
		if slash := strings.Index(afterProtocol, "/"); slash >= 0 {
			path = afterProtocol[slash+1:]
		} else {
			path = ""
		}
	} else {
		path = strings.TrimPrefix(url, "/")
	}

	if path == "" {
		return raw
	}
	return path
}
