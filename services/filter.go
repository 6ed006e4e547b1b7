package services

import (
	"errors"
	"fmt"

	"playstore-analytics/models"
)

// ErrIncompleteSelection is returned when a filter dimension is unset.
var ErrIncompleteSelection = errors.New("incomplete filter selection")

// ResolveSelection turns the values shown by a multi-select into the
// explicit set used for filtering. "All" anywhere expands to every available
// value and is never truncated. Explicit values are deduplicated in input
// order and cut to limit when limit > 0. The boolean reports whether "All"
// was expanded.
func ResolveSelection(selection, available []string, limit int) ([]string, bool) {
	if models.ContainsAll(selection) {
		out := make([]string, len(available))
		copy(out, available)
		return out, true
	}
	out := dedupe(selection)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, false
}

// CanonicalSelection applies the mutual-exclusion rule of the multi-select
// controls: either "All" alone or a non-empty set of explicit values, never
// both. prev is what the control showed before the change, next what it
// shows now.
func CanonicalSelection(prev, next []string) []string {
	if !models.ContainsAll(next) {
		return dedupe(next)
	}
	explicit := make([]string, 0, len(next))
	for _, v := range next {
		if v != models.All {
			explicit = append(explicit, v)
		}
	}
	if len(explicit) == 0 {
		return []string{models.All}
	}
	// "All" was already active: the user picked an explicit value.
	if models.ContainsAll(prev) {
		return dedupe(explicit)
	}
	return []string{models.All}
}

// CollapseCategories returns ["All"] when the explicit selection covers
// every available category, and the selection unchanged otherwise.
func CollapseCategories(selection, available []string) []string {
	if models.ContainsAll(selection) || len(available) == 0 {
		return selection
	}
	explicit := dedupe(selection)
	if len(explicit) != len(available) {
		return selection
	}
	have := toSet(explicit)
	for _, c := range available {
		if _, ok := have[c]; !ok {
			return selection
		}
	}
	return []string{models.All}
}

// Resolve expands a complete FilterState against the table. categoryLimit
// caps explicit category selections.
func Resolve(t *models.Table, state models.FilterState, categoryLimit int) (models.Selection, error) {
	if !state.Complete() {
		return models.Selection{}, ErrIncompleteSelection
	}
	lo, hi := ClampRange(state.RatingRange[0], state.RatingRange[1])

	sel := models.Selection{MinRating: lo, MaxRating: hi}
	sel.Types, sel.AllTypes = ResolveSelection(state.Types, t.Types(), 0)
	sel.ContentRatings, sel.AllContentRatings = ResolveSelection(state.ContentRatings, t.ContentRatings(), 0)
	sel.Categories, sel.AllCategories = ResolveSelection(state.Categories, t.Categories(), categoryLimit)
	return sel, nil
}

// ClampRange orders the slider handles and clamps them to the rating scale.
func ClampRange(a, b float64) (float64, float64) {
	if a > b {
		a, b = b, a
	}
	return clamp(a), clamp(b)
}

func clamp(v float64) float64 {
	if v < models.MinRating {
		return models.MinRating
	}
	if v > models.MaxRating {
		return models.MaxRating
	}
	return v
}

// Filter returns the rows of t matching every dimension of sel, in table
// order. Dimensions resolved from "All" do not restrict, blank cells
// included. An empty result is a valid view.
func Filter(t *models.Table, sel models.Selection) *models.View {
	types := toSet(sel.Types)
	ratings := toSet(sel.ContentRatings)
	cats := toSet(sel.Categories)

	match := func(a *models.App) bool {
		if !sel.AllTypes && !contains(types, a.Type) {
			return false
		}
		if a.Rating < sel.MinRating || a.Rating > sel.MaxRating {
			return false
		}
		if !sel.AllContentRatings && !contains(ratings, a.ContentRating) {
			return false
		}
		return sel.AllCategories || contains(cats, a.Category)
	}

	view := &models.View{Rows: make([]*models.App, 0), HasScore: t.HasScore()}
	for i := 0; i < t.Len(); i++ {
		if a := t.At(i); match(a) {
			view.Rows = append(view.Rows, a)
		}
	}
	return view
}

// ApplyFilters resolves state and filters t in one step.
func ApplyFilters(t *models.Table, state models.FilterState, categoryLimit int) (*models.View, models.Selection, error) {
	sel, err := Resolve(t, state, categoryLimit)
	if err != nil {
		return nil, sel, fmt.Errorf("filter: %w", err)
	}
	return Filter(t, sel), sel, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}

func toSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
