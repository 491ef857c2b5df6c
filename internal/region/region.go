// Package region is the static directory of Canadian provinces and
// territories used to drive news searches.
package region

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

// Feed is a fixed RSS feed tied to a region (or national, when listed
// outside any region).
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Region is read-only after load.
type Region struct {
	Name        string   `yaml:"name" json:"name"`
	Abbr        string   `yaml:"abbr" json:"abbr"`
	Cities      []string `yaml:"cities" json:"cities"`
	Subregions  []string `yaml:"regions" json:"regions"`
	SearchTerms []string `yaml:"search_terms" json:"search_terms"`
	Feeds       []Feed   `yaml:"feeds" json:"-"`
}

type table struct {
	NationalFeeds []Feed   `yaml:"national_feeds"`
	Regions       []Region `yaml:"regions"`
}

// Directory resolves region names. It holds no mutable state.
type Directory struct {
	regions  []Region
	byName   map[string]int
	national []Feed
}

// Load parses a region table from YAML.
func Load(r io.Reader) (*Directory, error) {
	var t table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode region table: %w", err)
	}

	d := &Directory{
		regions:  t.Regions,
		byName:   make(map[string]int, len(t.Regions)),
		national: t.NationalFeeds,
	}
	for i, reg := range t.Regions {
		if strings.TrimSpace(reg.Name) == "" {
			return nil, fmt.Errorf("region #%d has no name", i)
		}
		if len(reg.SearchTerms) == 0 {
			return nil, fmt.Errorf("region %q has no search terms", reg.Name)
		}
		key := strings.ToLower(reg.Name)
		if _, dup := d.byName[key]; dup {
			return nil, fmt.Errorf("duplicate region %q", reg.Name)
		}
		d.byName[key] = i
	}
	return d, nil
}

var defaultDirectory = mustLoadDefault()

func mustLoadDefault() *Directory {
	d, err := Load(bytes.NewReader(regionsYAML))
	if err != nil {
		panic(err)
	}
	return d
}

// Default returns the built-in directory of the 13 provinces and territories.
func Default() *Directory {
	return defaultDirectory
}

// Lookup is a case-insensitive exact match on the region name.
func (d *Directory) Lookup(name string) (Region, bool) {
	i, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Region{}, false
	}
	return d.regions[i].clone(), true
}

// All returns every region in table order. Each region is a deep copy.
func (d *Directory) All() []Region {
	out := make([]Region, len(d.regions))
	for i, r := range d.regions {
		out[i] = r.clone()
	}
	return out
}

func (r Region) clone() Region {
	r.Cities = slices.Clone(r.Cities)
	r.Subregions = slices.Clone(r.Subregions)
	r.SearchTerms = slices.Clone(r.SearchTerms)
	r.Feeds = slices.Clone(r.Feeds)
	return r
}

// Names returns region names in table order.
func (d *Directory) Names() []string {
	names := make([]string, len(d.regions))
	for i, r := range d.regions {
		names[i] = r.Name
	}
	return names
}

// NationalFeeds are polled for every region before its own feeds.
func (d *Directory) NationalFeeds() []Feed {
	out := make([]Feed, len(d.national))
	copy(out, d.national)
	return out
}
