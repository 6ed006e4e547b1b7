package services

import (
	"testing"

	"playstore-analytics/config"
	"playstore-analytics/models"
)

func testContext(categories []string, all bool) ChartContext {
	return ChartContext{
		Categories:     categories,
		AllCategories:  all,
		Palette:        config.NewPalette(config.DefaultCategoryColors, categories),
		CategoryLimit:  4,
		TopN:           10,
		EngagementTopN: 50,
		HistogramBins:  25,
	}
}

// sixCategories exceeds the grouping limit.
var sixCategories = []string{"GAME", "EDUCATION", "SOCIAL", "SHOPPING", "WEATHER", "BEAUTY"}

func fullView() *models.View { return testTable().All() }

func emptyView() *models.View { return &models.View{Rows: []*models.App{}, HasScore: true} }

func TestBuildersReturnNoDataOnEmptyView(t *testing.T) {
	ctx := testContext([]string{"GAME"}, false)
	for _, b := range ChartBuilders {
		spec := b.Build(emptyView(), ctx)
		if spec == nil {
			t.Fatalf("%s: nil spec", b.ID)
		}
		if !spec.NoData || spec.Message != models.NoDataMessage || spec.Mark != models.MarkText {
			t.Errorf("%s: expected no-data spec, got %+v", b.ID, spec)
		}
		if spec.ID != string(b.ID) {
			t.Errorf("spec id %q published under %q", spec.ID, b.ID)
		}
	}
	spec, cloud, err := WordCloudChart(emptyView(), ctx, NewWordCloudRenderer(200, 100))
	if err != nil || cloud != nil || !spec.NoData {
		t.Errorf("word cloud on empty view: spec=%+v cloud=%v err=%v", spec, cloud, err)
	}
	if nilSpec := CategoryInstallsRanking(nil, ctx); !nilSpec.NoData {
		t.Error("nil view should be treated as empty")
	}
}

func TestCategoryInstallsRanking(t *testing.T) {
	spec := CategoryInstallsRanking(fullView(), testContext(nil, true))
	if spec.Mark != models.MarkBar {
		t.Errorf("mark: got %s", spec.Mark)
	}
	// GAME = 10,550,000, SOCIAL = 5,000,000, EDUCATION = 100,000, ...
	wantOrder := []string{"GAME", "SOCIAL", "EDUCATION", "SHOPPING", "WEATHER"}
	if len(spec.Data) != len(wantOrder) {
		t.Fatalf("rows: got %d, want %d", len(spec.Data), len(wantOrder))
	}
	for i, c := range wantOrder {
		if spec.Data[i][fieldCategory] != c {
			t.Errorf("row %d: got %v, want %s", i, spec.Data[i][fieldCategory], c)
		}
	}
	if got := spec.Data[0][fieldInstalls]; got != 10550.0 {
		t.Errorf("GAME installs in thousands: got %v, want 10550", got)
	}
	if y := spec.Encoding(models.ChannelY); y == nil || y.Field != fieldCategory {
		t.Errorf("y encoding: %+v", y)
	}
}

func TestCategoryInstallsRankingTopN(t *testing.T) {
	ctx := testContext(nil, true)
	ctx.TopN = 2
	spec := CategoryInstallsRanking(fullView(), ctx)
	if len(spec.Data) != 2 {
		t.Errorf("rows: got %d, want 2", len(spec.Data))
	}
}

func TestEngagementScatterRanking(t *testing.T) {
	ctx := testContext(nil, true)
	ctx.EngagementTopN = 3
	spec := EngagementScatter(fullView(), ctx)
	if len(spec.Data) != 3 {
		t.Fatalf("rows: got %d, want 3", len(spec.Data))
	}
	// ranked by popularity_score: 0.9, 0.7, 0.6
	want := []string{"Candy Blast", "Chatter", "Space Wars"}
	for i, name := range want {
		if spec.Data[i][fieldApp] != name {
			t.Errorf("row %d: got %v, want %s", i, spec.Data[i][fieldApp], name)
		}
	}

	noScore := &models.View{Rows: fullView().Rows, HasScore: false}
	spec = EngagementScatter(noScore, ctx)
	// ranked by installs: 10M, 5M, 500k
	if spec.Data[1][fieldApp] != "Chatter" || spec.Data[2][fieldApp] != "Space Wars" {
		t.Errorf("install ranking: %v", spec.Data)
	}
}

func TestEngagementScatterInteractions(t *testing.T) {
	spec := EngagementScatter(fullView(), testContext(nil, true))
	names := map[string]string{}
	for _, p := range spec.Params {
		names[p.Name] = p.Bind
	}
	if names[ParamCategorySelect] != "legend" || names[ParamZoomX] != "scales" || names[ParamZoomY] != "scales" {
		t.Errorf("params: %+v", spec.Params)
	}
	op := spec.Encoding(models.ChannelOpacity)
	if op == nil || op.Condition == nil || op.Condition.Value != 0.8 || op.Condition.Otherwise != 0.2 {
		t.Errorf("opacity: %+v", op)
	}
	size := spec.Encoding(models.ChannelSize)
	if size == nil || size.Scale == nil || size.Scale.Extent[0] != 10 || size.Scale.Extent[1] != 500 {
		t.Errorf("size: %+v", size)
	}
	if got := spec.Data[0][fieldReviews]; got != 120.0 {
		t.Errorf("reviews in thousands: got %v, want 120", got)
	}
}

func TestPaletteConsistentAcrossBuilders(t *testing.T) {
	ctx := testContext([]string{"GAME", "SOCIAL"}, false)
	view := fullView()
	var domain, colors []string
	for _, b := range ChartBuilders {
		enc := b.Build(view, ctx).Encoding(models.ChannelColor)
		if enc == nil || enc.Field != fieldCategory {
			continue
		}
		if domain == nil {
			domain, colors = enc.Scale.Domain, enc.Scale.Range
			continue
		}
		for i := range domain {
			if enc.Scale.Domain[i] != domain[i] || enc.Scale.Range[i] != colors[i] {
				t.Errorf("%s: palette differs at %d", b.ID, i)
			}
		}
	}
	if domain == nil {
		t.Fatal("no builder colored by category")
	}
	for i, c := range domain {
		if c == "GAME" && colors[i] != config.DefaultCategoryColors["GAME"] {
			t.Errorf("GAME color: got %s", colors[i])
		}
	}
}

func TestRatingDistributionGrouping(t *testing.T) {
	grouped := RatingDistribution(fullView(), testContext([]string{"GAME", "SOCIAL"}, false))
	if grouped.Mark != models.MarkBoxplot || grouped.Encoding(models.ChannelY) == nil {
		t.Errorf("grouped box plot needs a category axis: %+v", grouped.Encodings)
	}
	if c := grouped.Encoding(models.ChannelColor); c.Field != fieldCategory {
		t.Errorf("grouped color: %+v", c)
	}

	flat := RatingDistribution(fullView(), testContext(sixCategories, true))
	if flat.Encoding(models.ChannelY) != nil {
		t.Error("ungrouped box plot must not split by category")
	}
	if c := flat.Encoding(models.ChannelColor); c.Value != config.FlatBoxColor {
		t.Errorf("flat color: %+v", c)
	}
	if _, ok := flat.Data[0][fieldCategory]; ok {
		t.Error("ungrouped rows carry no category")
	}
}

func TestReviewsHistogramCoversEveryRow(t *testing.T) {
	for _, cats := range [][]string{{"GAME", "EDUCATION"}, sixCategories} {
		ctx := testContext(cats, len(cats) > 4)
		spec := ReviewsHistogram(fullView(), ctx)
		total := 0
		for _, r := range spec.Data {
			n := r[fieldBinCount].(int)
			if n == 0 {
				t.Error("empty bins must be omitted")
			}
			total += n
		}
		if total != fullView().Len() {
			t.Errorf("bins count %d rows, want %d", total, fullView().Len())
		}
		bin := spec.Encoding(models.ChannelX).Bin
		if bin == nil || bin.MaxBins != 25 || bin.Start != 0 || bin.Step != 120000.0/25 {
			t.Errorf("bin: %+v", bin)
		}
		if ctx.Grouped() {
			if _, ok := spec.Data[0][fieldCategory]; !ok {
				t.Error("grouped histogram rows need a category")
			}
		} else if c := spec.Encoding(models.ChannelColor); c.Value != config.FlatBarColor {
			t.Errorf("single series color: %+v", c)
		}
	}
}

func TestBinIndex(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0}, {3.9, 0}, {4, 1}, {99, 24}, {100, 24},
	}
	for _, tt := range tests {
		if got := BinIndex(tt.v, 0, 4, 25); got != tt.want {
			t.Errorf("BinIndex(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestReviewsHistogramConstantValues(t *testing.T) {
	view := &models.View{Rows: []*models.App{
		{Category: "GAME", Reviews: 7}, {Category: "GAME", Reviews: 7},
	}}
	spec := ReviewsHistogram(view, testContext(nil, true))
	if len(spec.Data) != 1 || spec.Data[0][fieldBinCount] != 2 {
		t.Errorf("constant reviews should land in one bin: %v", spec.Data)
	}
}

func TestPopularityByCategory(t *testing.T) {
	spec := PopularityByCategory(fullView(), testContext(nil, true))
	if spec.NoData {
		t.Fatal("unexpected no-data spec")
	}
	prev := 2.0
	for _, r := range spec.Data {
		v := r[fieldScore].(float64)
		if v > prev {
			t.Errorf("not sorted descending: %v", spec.Data)
		}
		prev = v
	}
	if c := spec.Encoding(models.ChannelColor); c.Value != config.FlatBarColor {
		t.Errorf("ungrouped color: %+v", c)
	}
	grouped := PopularityByCategory(fullView(), testContext([]string{"GAME"}, false))
	if c := grouped.Encoding(models.ChannelColor); c.Field != fieldCategory {
		t.Errorf("grouped color: %+v", c)
	}

	noScore := PopularityByCategory(&models.View{Rows: fullView().Rows}, testContext(nil, true))
	if !noScore.NoData || noScore.Message != NoScoreMessage {
		t.Errorf("expected no-score placeholder, got %+v", noScore)
	}
}

func TestCategorySharePie(t *testing.T) {
	spec := CategorySharePie(fullView(), testContext(nil, true))
	if spec.Mark != models.MarkArc {
		t.Errorf("mark: %s", spec.Mark)
	}
	sum := 0.0
	for _, r := range spec.Data {
		sum += r[fieldPercentage].(float64)
	}
	if sum < 99.9 || sum > 100.1 {
		t.Errorf("percentages sum to %v", sum)
	}
	if spec.Data[0][fieldCategory] != "GAME" || spec.Data[0][fieldCount] != 3 {
		t.Errorf("largest slice: %v", spec.Data[0])
	}
	if txt := spec.Encoding(models.ChannelText); txt == nil || txt.Format != ".1f" {
		t.Errorf("text encoding: %+v", txt)
	}
}

func TestTopAppsSumsDuplicateNames(t *testing.T) {
	spec := TopApps(fullView(), testContext(nil, true))
	if spec.Data[0][fieldApp] != "Candy Blast" || spec.Data[0][fieldInstalls] != 10050.0 {
		t.Errorf("top app: %v", spec.Data[0])
	}
	seen := map[any]bool{}
	for _, r := range spec.Data {
		if seen[r[fieldApp]] {
			t.Errorf("duplicate app %v", r[fieldApp])
		}
		seen[r[fieldApp]] = true
	}
}

func TestAverageByCategory(t *testing.T) {
	spec := AverageRatingByCategory(fullView(), testContext(nil, true))
	got := map[any]any{}
	for _, r := range spec.Data {
		got[r[fieldCategory]] = r[fieldRating]
	}
	if got["GAME"] != 4.47 || got["EDUCATION"] != 2.55 {
		t.Errorf("average ratings: %v", got)
	}
	reviews := AverageReviewsByCategory(fullView(), testContext(nil, true))
	if reviews.Data[0][fieldCategory] != "SOCIAL" || reviews.Data[0][fieldReviews] != 80000.0 {
		t.Errorf("average reviews: %v", reviews.Data[0])
	}
}

func TestGroupsNeverEmpty(t *testing.T) {
	view, _, err := ApplyFilters(testTable(), stateOf([]string{models.All}, 1, 5, []string{models.All}, []string{"GAME", "WEATHER"}), 4)
	if err != nil {
		t.Fatal(err)
	}
	spec := CategoryInstallsRanking(view, testContext([]string{"GAME", "WEATHER"}, false))
	if len(spec.Data) != 2 {
		t.Errorf("only selected categories may appear: %v", spec.Data)
	}
}
