package models

// All is the selection sentinel meaning "no restriction on this dimension".
// It is never a literal category label.
const All = "All"

// Rating bounds of the range slider.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Dimension is a multi-valued filter dimension.
type Dimension string

const (
	DimType          Dimension = "type"
	DimContentRating Dimension = "content_rating"
	DimCategory      Dimension = "category"
)

// FilterState is the set of values currently shown by the filter controls.
// A nil or empty slice means the control is unset.
type FilterState struct {
	Types          []string  `json:"types"`
	RatingRange    []float64 `json:"rating_range"`
	ContentRatings []string  `json:"content_ratings"`
	Categories     []string  `json:"categories"`
}

// DefaultFilterState is what the dashboard shows on first load.
func DefaultFilterState() FilterState {
	return FilterState{
		Types:          []string{All},
		RatingRange:    []float64{MinRating, MaxRating},
		ContentRatings: []string{All},
		Categories:     []string{All},
	}
}

// Complete reports whether every dimension is populated.
func (f FilterState) Complete() bool {
	return len(f.Types) > 0 && len(f.ContentRatings) > 0 && len(f.Categories) > 0 &&
		len(f.RatingRange) == 2
}

// Values returns the selection of a multi-valued dimension.
func (f FilterState) Values(dim Dimension) []string {
	switch dim {
	case DimType:
		return f.Types
	case DimContentRating:
		return f.ContentRatings
	case DimCategory:
		return f.Categories
	}
	return nil
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := FilterState{
		Types:          cloneOrNil(f.Types),
		ContentRatings: cloneOrNil(f.ContentRatings),
		Categories:     cloneOrNil(f.Categories),
	}
	if f.RatingRange != nil {
		out.RatingRange = append([]float64(nil), f.RatingRange...)
	}
	return out
}

func cloneOrNil(s []string) []string {
	if s == nil {
		return nil
	}
	return clone(s)
}

// Selection is a FilterState resolved against a table: "All" has been
// expanded to explicit values and the category cap applied.
type Selection struct {
	Types          []string `json:"types"`
	MinRating      float64  `json:"min_rating"`
	MaxRating      float64  `json:"max_rating"`
	ContentRatings []string `json:"content_ratings"`
	Categories     []string `json:"categories"`
	// All* flags mark dimensions resolved from "All". Filtering skips them,
	// so rows with a blank value in that column still match.
	AllTypes          bool `json:"all_types"`
	AllContentRatings bool `json:"all_content_ratings"`
	AllCategories     bool `json:"all_categories"`
}

// ContainsAll reports whether values holds the All sentinel.
func ContainsAll(values []string) bool {
	for _, v := range values {
		if v == All {
			return true
		}
	}
	return false
}
