package services

import (
	"math"
	"sort"

	"playstore-analytics/config"
	"playstore-analytics/models"
)

// Field names used in chart data rows.
const (
	fieldApp        = "App"
	fieldCategory   = "Category"
	fieldInstalls   = "Installs"
	fieldReviews    = "Reviews"
	fieldRating     = "Rating"
	fieldScore      = "popularity_score"
	fieldCount      = "Count"
	fieldPercentage = "Percentage"
	fieldBinStart   = "bin_start"
	fieldBinEnd     = "bin_end"
	fieldBinCount   = "count"
)

// Interaction parameter names of the engagement scatter.
const (
	ParamCategorySelect = "category_select"
	ParamZoomX          = "zoom_x"
	ParamZoomY          = "zoom_y"
)

// NoScoreMessage replaces the popularity chart when the dataset has no
// popularity_score column.
const NoScoreMessage = "Popularity score not available"

// ChartContext carries everything a builder needs besides the view.
type ChartContext struct {
	// Categories is the resolved category selection of the cycle.
	Categories    []string
	AllCategories bool
	Palette       *config.Palette

	CategoryLimit  int
	TopN           int
	EngagementTopN int
	HistogramBins  int
}

// NewChartContext fills the numeric settings from cfg.
func NewChartContext(cfg *config.Config, palette *config.Palette, sel models.Selection) ChartContext {
	return ChartContext{
		Categories:     sel.Categories,
		AllCategories:  sel.AllCategories,
		Palette:        palette,
		CategoryLimit:  cfg.CategoryLimit,
		TopN:           cfg.TopN,
		EngagementTopN: cfg.EngagementTopN,
		HistogramBins:  cfg.HistogramBins,
	}
}

// Grouped reports whether few enough categories are selected to draw one
// series per category.
func (c ChartContext) Grouped() bool {
	limit := c.CategoryLimit
	if limit <= 0 {
		limit = 4
	}
	return len(c.Categories) > 0 && len(c.Categories) <= limit
}

func (c ChartContext) palette() *config.Palette {
	if c.Palette == nil {
		return config.NewPalette(config.DefaultCategoryColors, c.Categories)
	}
	return c.Palette
}

func (c ChartContext) categoryColor() models.Encoding {
	p := c.palette()
	return models.Encoding{
		Channel: models.ChannelColor,
		Field:   fieldCategory,
		Type:    models.Nominal,
		Title:   fieldCategory,
		Scale:   &models.Scale{Domain: p.Domain(), Range: p.Range()},
	}
}

// colorOrFlat colors by category when grouped and with a single flat color
// otherwise.
func (c ChartContext) colorOrFlat(flat string) models.Encoding {
	if c.Grouped() {
		return c.categoryColor()
	}
	return models.Encoding{Channel: models.ChannelColor, Value: flat}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ChartBuilder turns a filtered view into one chart.
type ChartBuilder func(view *models.View, ctx ChartContext) *models.ChartSpec

// ChartBuilders lists every chart output in publishing order. The word
// cloud is built separately because it also yields an image artifact.
var ChartBuilders = []struct {
	ID    models.OutputID
	Build ChartBuilder
}{
	{models.OutputCategoryChart, CategoryInstallsRanking},
	{models.OutputEngagementChart, EngagementScatter},
	{models.OutputDensityPlot, RatingDistribution},
	{models.OutputReviewsHistogram, ReviewsHistogram},
	{models.OutputPopularityChart, PopularityByCategory},
	{models.OutputCategoryPie, CategorySharePie},
	{models.OutputTopAppsChart, TopApps},
	{models.OutputRatingsChart, AverageRatingByCategory},
	{models.OutputReviewsChart, AverageReviewsByCategory},
}

// group accumulates one key of a grouping aggregation.
type group struct {
	key   string
	count int
	sum   float64
}

func (g *group) mean() float64 { return g.sum / float64(g.count) }

// aggregate groups rows by key in order of first appearance. Groups with no
// rows never exist.
func aggregate(rows []*models.App, key func(*models.App) string, value func(*models.App) float64) []*group {
	index := make(map[string]int)
	var groups []*group
	for _, a := range rows {
		k := key(a)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &group{key: k})
		}
		groups[i].count++
		groups[i].sum += value(a)
	}
	return groups
}

// sortGroups orders groups descending by metric; ties keep first appearance.
func sortGroups(groups []*group, metric func(*group) float64) {
	sort.SliceStable(groups, func(i, j int) bool {
		return metric(groups[i]) > metric(groups[j])
	})
}

func byCategory(a *models.App) string { return a.Category }
func byApp(a *models.App) string      { return a.Name }

func installs(a *models.App) float64 { return float64(a.Installs) }
func reviews(a *models.App) float64  { return float64(a.Reviews) }
func rating(a *models.App) float64   { return a.Rating }
func score(a *models.App) float64    { return a.PopularityScore }

func thousands(v float64) float64 { return models.Round(v/1000, 3) }

// CategoryInstallsRanking ranks categories by total installs.
func CategoryInstallsRanking(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputCategoryChart)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	groups := aggregate(view.Rows, byCategory, installs)
	sortGroups(groups, func(g *group) float64 { return g.sum })
	if n := orDefault(ctx.TopN, 10); len(groups) > n {
		groups = groups[:n]
	}

	data := make([]models.Row, len(groups))
	for i, g := range groups {
		data[i] = models.Row{fieldCategory: g.key, fieldInstalls: thousands(g.sum)}
	}
	color := ctx.categoryColor()
	color.NoLegend = true
	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkBar,
		Title: "Top Categories by Installs",
		Encodings: []models.Encoding{
			{Channel: models.ChannelY, Field: fieldCategory, Type: models.Nominal, Title: fieldCategory, Sort: "-x"},
			{Channel: models.ChannelX, Field: fieldInstalls, Type: models.Quantitative, Title: "Installs (thousands)"},
			color,
			{Channel: models.ChannelTooltip, Field: fieldInstalls, Type: models.Quantitative, Format: ",.0f"},
		},
		Data: data,
	}
}

// EngagementScatter plots reviews against installs for the most popular
// apps. Apps are ranked by popularity_score when the dataset has it and by
// installs otherwise.
func EngagementScatter(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputEngagementChart)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	rows := make([]*models.App, len(view.Rows))
	copy(rows, view.Rows)
	rank := installs
	if view.HasScore {
		rank = score
	}
	sort.SliceStable(rows, func(i, j int) bool { return rank(rows[i]) > rank(rows[j]) })
	if n := orDefault(ctx.EngagementTopN, 50); len(rows) > n {
		rows = rows[:n]
	}

	data := make([]models.Row, len(rows))
	for i, a := range rows {
		data[i] = models.Row{
			fieldApp:      a.Name,
			fieldCategory: a.Category,
			fieldInstalls: thousands(float64(a.Installs)),
			fieldReviews:  thousands(float64(a.Reviews)),
			fieldRating:   a.Rating,
		}
	}
	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkCircle,
		Title: "Engagement: Reviews vs Installs",
		Encodings: []models.Encoding{
			{Channel: models.ChannelX, Field: fieldReviews, Type: models.Quantitative, Title: "Reviews (thousands)"},
			{Channel: models.ChannelY, Field: fieldInstalls, Type: models.Quantitative, Title: "Installs (thousands)"},
			{Channel: models.ChannelSize, Field: fieldInstalls, Type: models.Quantitative, Scale: &models.Scale{Extent: []float64{10, 500}}, NoLegend: true},
			ctx.categoryColor(),
			{Channel: models.ChannelOpacity, Condition: &models.Condition{Param: ParamCategorySelect, Value: 0.8, Otherwise: 0.2}},
			{Channel: models.ChannelTooltip, Field: fieldApp, Type: models.Nominal},
			{Channel: models.ChannelTooltip, Field: fieldCategory, Type: models.Nominal},
			{Channel: models.ChannelTooltip, Field: fieldInstalls, Type: models.Quantitative, Format: ",.1f"},
			{Channel: models.ChannelTooltip, Field: fieldReviews, Type: models.Quantitative, Format: ",.1f"},
			{Channel: models.ChannelTooltip, Field: fieldRating, Type: models.Quantitative, Format: ".1f"},
		},
		Params: []models.Param{
			{Name: ParamCategorySelect, Select: "point", Fields: []string{fieldCategory}, Bind: "legend"},
			{Name: ParamZoomX, Select: "interval", Channels: []models.Channel{models.ChannelX}, Bind: "scales"},
			{Name: ParamZoomY, Select: "interval", Channels: []models.Channel{models.ChannelY}, Bind: "scales"},
		},
		Data: data,
	}
}

// RatingDistribution is a box plot of Rating, one box per category when
// grouped and a single box otherwise.
func RatingDistribution(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputDensityPlot)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	grouped := ctx.Grouped()
	data := make([]models.Row, len(view.Rows))
	for i, a := range view.Rows {
		row := models.Row{fieldRating: a.Rating}
		if grouped {
			row[fieldCategory] = a.Category
		}
		data[i] = row
	}

	enc := []models.Encoding{
		{Channel: models.ChannelX, Field: fieldRating, Type: models.Quantitative, Title: fieldRating,
			Aggregate: models.AggregateBoxplot, Scale: &models.Scale{Extent: []float64{models.MinRating, models.MaxRating}}},
	}
	if grouped {
		enc = append(enc, models.Encoding{Channel: models.ChannelY, Field: fieldCategory, Type: models.Nominal, Title: fieldCategory})
	}
	enc = append(enc, ctx.colorOrFlat(config.FlatBoxColor))
	return &models.ChartSpec{
		ID:        id,
		Mark:      models.MarkBoxplot,
		Title:     "Rating Distribution",
		Encodings: enc,
		Data:      data,
	}
}

// ReviewsHistogram bins Reviews into equal-width bins over the view's
// range. Counts are split by category when grouped; empty bins are omitted.
func ReviewsHistogram(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputReviewsHistogram)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	bins := orDefault(ctx.HistogramBins, 25)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, a := range view.Rows {
		lo = math.Min(lo, float64(a.Reviews))
		hi = math.Max(hi, float64(a.Reviews))
	}
	step := (hi - lo) / float64(bins)
	if step == 0 {
		step = 1
	}

	grouped := ctx.Grouped()
	type binKey struct {
		bin int
		cat string
	}
	counts := make(map[binKey]int)
	var catOrder []string
	seenCat := make(map[string]struct{})
	for _, a := range view.Rows {
		b := BinIndex(float64(a.Reviews), lo, step, bins)
		k := binKey{bin: b}
		if grouped {
			k.cat = a.Category
			if _, ok := seenCat[a.Category]; !ok {
				seenCat[a.Category] = struct{}{}
				catOrder = append(catOrder, a.Category)
			}
		}
		counts[k]++
	}
	if !grouped {
		catOrder = []string{""}
	}

	data := make([]models.Row, 0, len(counts))
	for b := 0; b < bins; b++ {
		for _, c := range catOrder {
			n := counts[binKey{bin: b, cat: c}]
			if n == 0 {
				continue
			}
			row := models.Row{
				fieldBinStart: lo + float64(b)*step,
				fieldBinEnd:   lo + float64(b+1)*step,
				fieldBinCount: n,
			}
			if grouped {
				row[fieldCategory] = c
			}
			data = append(data, row)
		}
	}

	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkBar,
		Title: "Reviews Histogram",
		Encodings: []models.Encoding{
			{Channel: models.ChannelX, Field: fieldBinStart, Type: models.Quantitative, Title: fieldReviews,
				Bin: &models.Bin{MaxBins: bins, Start: lo, Step: step}},
			{Channel: models.ChannelX2, Field: fieldBinEnd},
			{Channel: models.ChannelY, Field: fieldBinCount, Type: models.Quantitative, Title: "Number of apps"},
			ctx.colorOrFlat(config.FlatBarColor),
		},
		Opacity: 0.75,
		Data:    data,
	}
}

// BinIndex places v into one of bins equal-width bins starting at lo. The
// maximum value falls into the last bin.
func BinIndex(v, lo, step float64, bins int) int {
	b := int((v - lo) / step)
	if b < 0 {
		return 0
	}
	if b >= bins {
		return bins - 1
	}
	return b
}

// PopularityByCategory shows the mean popularity_score per category.
func PopularityByCategory(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputPopularityChart)
	if !view.Empty() && !view.HasScore {
		return models.NoDataChart(id, NoScoreMessage)
	}
	return meanByCategory(view, ctx, id, "Average Popularity Score by Category", fieldScore, score, 5, true)
}

// AverageRatingByCategory shows the mean Rating per category.
func AverageRatingByCategory(view *models.View, ctx ChartContext) *models.ChartSpec {
	return meanByCategory(view, ctx, string(models.OutputRatingsChart), "Average Rating by Category", fieldRating, rating, 2, false)
}

// AverageReviewsByCategory shows the mean review count per category.
func AverageReviewsByCategory(view *models.View, ctx ChartContext) *models.ChartSpec {
	return meanByCategory(view, ctx, string(models.OutputReviewsChart), "Average Reviews by Category", fieldReviews, reviews, 0, false)
}

func meanByCategory(view *models.View, ctx ChartContext, id, title, field string,
	value func(*models.App) float64, decimals int, flatWhenUngrouped bool) *models.ChartSpec {
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	groups := aggregate(view.Rows, byCategory, value)
	sortGroups(groups, (*group).mean)

	data := make([]models.Row, len(groups))
	for i, g := range groups {
		data[i] = models.Row{fieldCategory: g.key, field: models.Round(g.mean(), decimals)}
	}
	color := ctx.categoryColor()
	if flatWhenUngrouped {
		color = ctx.colorOrFlat(config.FlatBarColor)
	}
	color.NoLegend = true
	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkBar,
		Title: title,
		Encodings: []models.Encoding{
			{Channel: models.ChannelX, Field: fieldCategory, Type: models.Nominal, Title: fieldCategory, Sort: "-y"},
			{Channel: models.ChannelY, Field: field, Type: models.Quantitative, Title: title},
			color,
		},
		Data: data,
	}
}

// CategorySharePie shows each category's share of the selected apps.
func CategorySharePie(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputCategoryPie)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	groups := aggregate(view.Rows, byCategory, func(*models.App) float64 { return 1 })
	sortGroups(groups, func(g *group) float64 { return float64(g.count) })

	total := float64(view.Len())
	data := make([]models.Row, len(groups))
	for i, g := range groups {
		data[i] = models.Row{
			fieldCategory:   g.key,
			fieldCount:      g.count,
			fieldPercentage: models.Round(float64(g.count)/total*100, 2),
		}
	}
	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkArc,
		Title: "Category Share",
		Encodings: []models.Encoding{
			{Channel: models.ChannelTheta, Field: fieldCount, Type: models.Quantitative},
			ctx.categoryColor(),
			{Channel: models.ChannelText, Field: fieldPercentage, Type: models.Quantitative, Format: ".1f"},
			{Channel: models.ChannelTooltip, Field: fieldCategory, Type: models.Nominal},
			{Channel: models.ChannelTooltip, Field: fieldPercentage, Type: models.Quantitative, Format: ".1f"},
		},
		Data: data,
	}
}

// TopApps ranks apps by total installs. Apps sharing a name are summed.
func TopApps(view *models.View, ctx ChartContext) *models.ChartSpec {
	id := string(models.OutputTopAppsChart)
	if view.Empty() {
		return models.NoDataChart(id, "")
	}
	groups := aggregate(view.Rows, byApp, installs)
	sortGroups(groups, func(g *group) float64 { return g.sum })
	if n := orDefault(ctx.TopN, 10); len(groups) > n {
		groups = groups[:n]
	}
	data := make([]models.Row, len(groups))
	for i, g := range groups {
		data[i] = models.Row{fieldApp: g.key, fieldInstalls: thousands(g.sum)}
	}
	return &models.ChartSpec{
		ID:    id,
		Mark:  models.MarkBar,
		Title: "Top Apps by Installs",
		Encodings: []models.Encoding{
			{Channel: models.ChannelY, Field: fieldApp, Type: models.Nominal, Title: fieldApp, Sort: "-x"},
			{Channel: models.ChannelX, Field: fieldInstalls, Type: models.Quantitative, Title: "Installs (thousands)"},
			{Channel: models.ChannelColor, Value: config.FlatBoxColor},
		},
		Data: data,
	}
}
