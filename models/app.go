package models

import (
	"math"
	"sort"
)

// RawApp holds one unprocessed row of the Play Store export, keyed by the
// source header. Values are kept verbatim until the preprocessor coerces them.
type RawApp struct {
	Line   int
	Fields map[string]string
}

// Get returns the raw value of a column, or "" when the row lacks it.
func (r *RawApp) Get(column string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[column]
}

// App is a cleaned, typed record of the analysis dataset.
type App struct {
	Name          string
	Category      string
	Rating        float64
	Reviews       int64
	Installs      int64
	Type          string
	ContentRating string
	Price         float64

	ReviewsLog         float64
	InstallsLog        float64
	RatingNormalized   float64
	ReviewsNormalized  float64
	InstallsNormalized float64
	PopularityScore    float64
}

// Table is the in-memory dataset. It is built once by the loader and never
// mutated afterwards, so any number of goroutines may read it.
type Table struct {
	apps           []*App
	hasScore       bool
	categories     []string
	types          []string
	contentRatings []string
}

// NewTable indexes apps into an immutable Table. The slice is owned by the
// table from this point on.
func NewTable(apps []*App, hasScore bool) *Table {
	t := &Table{apps: apps, hasScore: hasScore}
	t.categories = uniqueSorted(apps, func(a *App) string { return a.Category })
	t.types = uniqueSorted(apps, func(a *App) string { return a.Type })
	t.contentRatings = uniqueSorted(apps, func(a *App) string { return a.ContentRating })
	return t
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.apps) }

// At returns the i-th record.
func (t *Table) At(i int) *App { return t.apps[i] }

// HasScore reports whether popularity_score was present in the source.
func (t *Table) HasScore() bool { return t.hasScore }

// Categories returns the sorted unique categories.
func (t *Table) Categories() []string { return clone(t.categories) }

// Types returns the sorted unique app types.
func (t *Table) Types() []string { return clone(t.types) }

// ContentRatings returns the sorted unique content ratings.
func (t *Table) ContentRatings() []string { return clone(t.contentRatings) }

// Unique returns the sorted unique values of a filterable dimension.
func (t *Table) Unique(dim Dimension) []string {
	switch dim {
	case DimCategory:
		return t.Categories()
	case DimType:
		return t.Types()
	case DimContentRating:
		return t.ContentRatings()
	}
	return nil
}

// All returns a view over every record.
func (t *Table) All() *View {
	rows := make([]*App, len(t.apps))
	copy(rows, t.apps)
	return &View{Rows: rows, HasScore: t.hasScore}
}

// View is an ordered subset of a Table. Rows point into the table and must
// be treated as read-only.
type View struct {
	Rows     []*App
	HasScore bool
}

// Len returns the number of rows, tolerating a nil view.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Rows)
}

// Empty reports whether the view has no rows.
func (v *View) Empty() bool { return v.Len() == 0 }

func uniqueSorted(apps []*App, key func(*App) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, a := range apps {
		k := key(a)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Round rounds f half away from zero to the given number of decimals.
func Round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}
