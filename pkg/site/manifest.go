package site

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Redirect maps a site path to an external URL via a meta-refresh stub
// page, so old links keep working after content moves off-site.
type Redirect struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// Manifest is the site description loaded from site.yaml. It controls
// presentation only; the data always comes from the snapshot.
type Manifest struct {
	Title              string     `yaml:"title"`
	City               string     `yaml:"city"`
	FeaturedCategories []string   `yaml:"featured_categories"`
	TopPayeeCount      int        `yaml:"top_payee_count"`
	Redirects          []Redirect `yaml:"redirects"`
}

// DefaultManifest mirrors the values the site shipped with before the
// manifest existed.
func DefaultManifest() *Manifest {
	return &Manifest{
		Title:              "Budget overview",
		City:               "Seattle",
		FeaturedCategories: []string{"Eating Out", "Coffee"},
		TopPayeeCount:      10,
	}
}

// LoadManifest reads a site manifest. A missing file is not an error; the
// defaults apply.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading site manifest: %w", err)
	}

	m := DefaultManifest()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing site manifest %s: %w", path, err)
	}
	if m.TopPayeeCount <= 0 {
		m.TopPayeeCount = 10
	}
	return m, nil
}
