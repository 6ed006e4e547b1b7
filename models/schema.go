package models

// Column names shared by the raw export, the cleaned tables and every
// storage backend.
const (
	ColApp                = "App"
	ColCategory           = "Category"
	ColRating             = "Rating"
	ColReviews            = "Reviews"
	ColSize               = "Size"
	ColInstalls           = "Installs"
	ColType               = "Type"
	ColPrice              = "Price"
	ColContentRating      = "Content Rating"
	ColGenres             = "Genres"
	ColLastUpdated        = "Last Updated"
	ColCurrentVer         = "Current Ver"
	ColAndroidVer         = "Android Ver"
	ColReviewsLog         = "Reviews_log"
	ColInstallsLog        = "Installs_log"
	ColRatingNormalized   = "Rating_normalized"
	ColReviewsNormalized  = "Reviews_normalized"
	ColInstallsNormalized = "Installs_normalized"
	ColPopularityScore    = "popularity_score"
)

// DiscardColumns never survive preprocessing.
var DiscardColumns = []string{ColCurrentVer, ColLastUpdated, ColAndroidVer, ColSize, ColGenres}

// ColumnKind is the storage type of a column.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindFloat
	KindInt
)

// Column describes one output column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Schema is an ordered list of columns written for a table.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Has reports whether the schema contains name.
func (s Schema) Has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// BaseSchema is the minimum a dataset needs to be loaded.
var BaseSchema = Schema{
	{ColApp, KindString},
	{ColCategory, KindString},
	{ColRating, KindFloat},
	{ColReviews, KindInt},
	{ColInstalls, KindInt},
	{ColType, KindString},
	{ColContentRating, KindString},
}

// FullSchema is the cleaned table over every category, derived metrics
// included.
var FullSchema = Schema{
	{ColApp, KindString},
	{ColCategory, KindString},
	{ColRating, KindFloat},
	{ColReviews, KindInt},
	{ColInstalls, KindInt},
	{ColType, KindString},
	{ColPrice, KindFloat},
	{ColContentRating, KindString},
	{ColReviewsLog, KindFloat},
	{ColInstallsLog, KindFloat},
	{ColRatingNormalized, KindFloat},
	{ColReviewsNormalized, KindFloat},
	{ColInstallsNormalized, KindFloat},
	{ColPopularityScore, KindFloat},
}

// ScoreSchema is the production dataset: top categories with
// popularity_score and without intermediates.
var ScoreSchema = Schema{
	{ColApp, KindString},
	{ColCategory, KindString},
	{ColRating, KindFloat},
	{ColReviews, KindInt},
	{ColInstalls, KindInt},
	{ColType, KindString},
	{ColContentRating, KindString},
	{ColPopularityScore, KindFloat},
}

// SchemaFor picks the schema a loaded table round-trips with.
func SchemaFor(t *Table) Schema {
	if t.HasScore() {
		return ScoreSchema
	}
	return BaseSchema
}

// Value returns the typed value of a column for a record.
func (a *App) Value(column string) any {
	switch column {
	case ColApp:
		return a.Name
	case ColCategory:
		return a.Category
	case ColRating:
		return a.Rating
	case ColReviews:
		return a.Reviews
	case ColInstalls:
		return a.Installs
	case ColType:
		return a.Type
	case ColPrice:
		return a.Price
	case ColContentRating:
		return a.ContentRating
	case ColReviewsLog:
		return a.ReviewsLog
	case ColInstallsLog:
		return a.InstallsLog
	case ColRatingNormalized:
		return a.RatingNormalized
	case ColReviewsNormalized:
		return a.ReviewsNormalized
	case ColInstallsNormalized:
		return a.InstallsNormalized
	case ColPopularityScore:
		return a.PopularityScore
	}
	return nil
}

// Set assigns a typed value to a column. Unknown columns are ignored.
func (a *App) Set(column string, v any) {
	switch column {
	case ColApp:
		a.Name, _ = v.(string)
	case ColCategory:
		a.Category, _ = v.(string)
	case ColType:
		a.Type, _ = v.(string)
	case ColContentRating:
		a.ContentRating, _ = v.(string)
	case ColRating:
		a.Rating = toFloat(v)
	case ColPrice:
		a.Price = toFloat(v)
	case ColReviewsLog:
		a.ReviewsLog = toFloat(v)
	case ColInstallsLog:
		a.InstallsLog = toFloat(v)
	case ColRatingNormalized:
		a.RatingNormalized = toFloat(v)
	case ColReviewsNormalized:
		a.ReviewsNormalized = toFloat(v)
	case ColInstallsNormalized:
		a.InstallsNormalized = toFloat(v)
	case ColPopularityScore:
		a.PopularityScore = toFloat(v)
	case ColReviews:
		a.Reviews = toInt(v)
	case ColInstalls:
		a.Installs = toInt(v)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	}
	return 0
}
