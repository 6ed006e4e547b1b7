package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate computes mean, min and max of Rating, Installs and Reviews.
// Rating's mean is rounded to 2 decimals, the others to whole numbers. An
// empty view yields sentinel statistics.
func (s *SummaryService) Generate(view *models.View) *models.SummaryStats {
	if view.Empty() {
		return models.EmptySummary()
	}
	return &models.SummaryStats{
		Rating:   metricStats(models.MetricRating, view.Rows, rating, 2),
		Installs: metricStats(models.MetricInstalls, view.Rows, installs, 0),
		Reviews:  metricStats(models.MetricReviews, view.Rows, reviews, 0),
	}
}

func metricStats(name string, rows []*models.App, value func(*models.App) float64, decimals int) models.MetricStats {
	m := models.MetricStats{Metric: name, Min: math.Inf(1), Max: math.Inf(-1), Valid: true}
	var total float64
	for _, a := range rows {
		v := value(a)
		total += v
		m.Min = math.Min(m.Min, v)
		m.Max = math.Max(m.Max, v)
	}
	m.Mean = models.Round(total/float64(len(rows)), decimals)
	return m
}

// SummaryChart is the record set {Metric, Mean, Min, Max} as a table spec.
func SummaryChart(stats *models.SummaryStats) *models.ChartSpec {
	data := make([]models.Row, 0, 3)
	for _, m := range stats.Rows() {
		data = append(data, models.Row{
			"Metric": m.Metric,
			"Mean":   m.DisplayMean(),
			"Min":    m.DisplayMin(),
			"Max":    m.DisplayMax(),
		})
	}
	return &models.ChartSpec{
		ID:    string(models.OutputSummaryTable),
		Mark:  models.MarkText,
		Title: "Summary Statistics",
		Encodings: []models.Encoding{
			{Channel: models.ChannelText, Field: "Metric", Type: models.Nominal},
			{Channel: models.ChannelText, Field: "Mean", Type: models.Nominal},
			{Channel: models.ChannelText, Field: "Min", Type: models.Nominal},
			{Channel: models.ChannelText, Field: "Max", Type: models.Nominal},
		},
		Data:   data,
		NoData: stats.Empty(),
	}
}

// Print writes a console report of the stats and the apps-per-category
// distribution of view.
func (s *SummaryService) Print(w io.Writer, stats *models.SummaryStats, view *models.View) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	title := color.New(color.FgMagenta, color.Bold)
	section := color.New(color.FgYellow, color.Bold)

	fmt.Fprintln(w)
	title.Fprintln(w, sep)
	title.Fprintln(w, "  PLAY STORE SUMMARY")
	title.Fprintln(w, sep)
	fmt.Fprintln(w)

	section.Fprintln(w, "  Overview")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Apps in view : %s\n\n", humanize.Comma(int64(view.Len())))

	section.Fprintln(w, "  Summary Statistics")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Mean", "Min", "Max"})
	for _, m := range stats.Rows() {
		table.Append([]string{m.Metric, m.DisplayMean(), m.DisplayMin(), m.DisplayMax()})
	}
	table.Render()
	fmt.Fprintln(w)

	section.Fprintln(w, "  Apps by Category")
	fmt.Fprintf(w, "  %s\n", thin)
	counts := categoryCounts(view)
	if len(counts) == 0 {
		fmt.Fprintln(w, "  No data")
	} else {
		top := counts[0].count
		for _, cc := range counts {
			width := 1
			if top > 0 {
				width = int(math.Ceil(float64(cc.count) / float64(top) * 30))
			}
			fmt.Fprintf(w, "  %-24s %s (%s)\n", truncate(cc.category, 22), strings.Repeat("█", width), humanize.Comma(int64(cc.count)))
		}
	}
	fmt.Fprintln(w)
	title.Fprintln(w, sep)
	fmt.Fprintln(w)
}

type categoryCount struct {
	category string
	count    int
}

// categoryCounts sorts categories by number of apps, then by name.
func categoryCounts(view *models.View) []categoryCount {
	if view.Empty() {
		return nil
	}
	groups := aggregate(view.Rows, byCategory, func(*models.App) float64 { return 1 })
	out := make([]categoryCount, len(groups))
	for i, g := range groups {
		out[i] = categoryCount{category: g.key, count: g.count}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].category < out[j].category
	})
	return out
}

// truncate shortens s to max runes, ending in "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
