package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultCategoryColors is the category palette of the top-10 score dataset.
var DefaultCategoryColors = map[string]string{
	"GAME":           "#1f77b4",
	"ENTERTAINMENT":  "#ff7f0e",
	"PHOTOGRAPHY":    "#2ca02c",
	"VIDEO_PLAYERS":  "#d62728",
	"SHOPPING":       "#9467bd",
	"SOCIAL":         "#8c564b",
	"COMMUNICATION":  "#e377c2",
	"HOUSE_AND_HOME": "#7f7f7f",
	"WEATHER":        "#bcbd22",
	"EDUCATION":      "#17becf",
}

// fallbackColors are handed out, in order, to categories missing from the
// configured palette.
var fallbackColors = []string{
	"#aec7e8", "#ffbb78", "#98df8a", "#ff9896", "#c5b0d5",
	"#c49c94", "#f7b6d2", "#c7c7c7", "#dbdb8d", "#9edae5",
}

// Flat colors used when a chart is not split by category.
const (
	FlatBoxColor = "steelblue"
	FlatBarColor = "orange"
)

// Palette maps categories to colors. It is built once at startup and only
// read afterwards; there are no mutating methods.
type Palette struct {
	domain []string
	colors map[string]string
}

type paletteFile struct {
	Categories map[string]string `yaml:"categories"`
}

// LoadPalette reads a YAML palette file of the form
//
//	categories:
//	  GAME: "#1f77b4"
//
// An empty path yields DefaultCategoryColors.
func LoadPalette(path string) (map[string]string, error) {
	if path == "" {
		return DefaultCategoryColors, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("palette: read %q: %w", path, err)
	}
	var pf paletteFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("palette: parse %q: %w", path, err)
	}
	if len(pf.Categories) == 0 {
		return nil, fmt.Errorf("palette: %q defines no categories", path)
	}
	return pf.Categories, nil
}

// NewPalette builds a palette from base colors and assigns fallback colors
// to any category of the dataset that base does not cover. Categories are
// processed in sorted order so the assignment is stable between runs.
func NewPalette(base map[string]string, categories []string) *Palette {
	p := &Palette{colors: make(map[string]string, len(base)+len(categories))}
	for k, v := range base {
		p.colors[k] = v
	}
	extra := make([]string, 0)
	for _, c := range categories {
		if _, ok := p.colors[c]; !ok {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for i, c := range extra {
		p.colors[c] = fallbackColors[i%len(fallbackColors)]
	}
	for k := range p.colors {
		p.domain = append(p.domain, k)
	}
	sort.Strings(p.domain)
	return p
}

// Color returns the color of a category.
func (p *Palette) Color(category string) string {
	if c, ok := p.colors[category]; ok {
		return c
	}
	return fallbackColors[0]
}

// Domain returns the sorted category domain.
func (p *Palette) Domain() []string {
	out := make([]string, len(p.domain))
	copy(out, p.domain)
	return out
}

// Range returns colors aligned with Domain.
func (p *Palette) Range() []string {
	out := make([]string, len(p.domain))
	for i, c := range p.domain {
		out[i] = p.colors[c]
	}
	return out
}
