package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

func newTestLogger() *utils.Logger { return utils.NopLogger() }

const rawHeader = "App,Category,Rating,Reviews,Size,Installs,Type,Price,Content Rating,Genres,Last Updated,Current Ver,Android Ver\n"

const rawFixture = rawHeader +
	`Photo Editor,ART_AND_DESIGN,4.1,159,19M,"10,000+",Free,0,Everyone,Art & Design,"January 7, 2018",1.0.0,4.0.3 and up
Coloring book,ART_AND_DESIGN,,967,14M,"500,000+",Free,0,Everyone,Art & Design,"January 15, 2018",2.0.0,4.0.3 and up
Sketch Pro,ART_AND_DESIGN,4.7,87510,8.7M,"5,000,000+",,0,Everyone,Art & Design,"August 1, 2018",1.2.4,4.0.3 and up
Broken Row,ART_AND_DESIGN,19,3.0M,1000+,Free,0,Everyone,,"February 11, 2018",1.0.19,4.0 and up,
Space Blaster,GAME,4.5,"2,000",50M,"1,000,000+",,$2.99,Teen,Arcade,"June 1, 2018",3.1,5.0 and up
Odd Installs,GAME,4.0,10,1M,Free,Free,0,Everyone,Arcade,"June 1, 2018",1,4.0 and up
Pocket Quiz,FAMILY,3.5,12k,2M,"100+",Paid,$0.99,Everyone,Trivia,"May 5, 2018",1,4.1 and up
Lonely,BEAUTY,,5,1M,"10+",Free,0,Everyone,Beauty,"May 5, 2018",1,4.1 and up
`

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "googleplaystore.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func cleanFixture(t *testing.T) CleanResult {
	t.Helper()
	p := NewPreprocessor(newTestLogger(), 10)
	raw, malformed, err := p.ReadRaw(writeRaw(t, rawFixture))
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if malformed != 0 {
		t.Fatalf("malformed: got %d, want 0", malformed)
	}
	return p.Clean(raw)
}

func findApp(apps []*models.App, name string) *models.App {
	for _, a := range apps {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func TestCleanDropsRatingAboveFive(t *testing.T) {
	res := cleanFixture(t)
	if findApp(res.Full, "Broken Row") != nil {
		t.Error("row with rating 19 must be dropped")
	}
	if res.Report.DroppedRating != 1 {
		t.Errorf("DroppedRating: got %d, want 1", res.Report.DroppedRating)
	}
	for _, a := range res.Full {
		if a.Rating < 1 || a.Rating > 5 {
			t.Errorf("%s rating %v out of [1,5]", a.Name, a.Rating)
		}
	}
}

func TestCleanImputesRatingWithCategoryMean(t *testing.T) {
	res := cleanFixture(t)
	a := findApp(res.Full, "Coloring book")
	if a == nil {
		t.Fatal("Coloring book missing")
	}
	// mean of 4.1 and 4.7, rounded to one decimal
	if a.Rating != 4.4 {
		t.Errorf("imputed rating: got %v, want 4.4", a.Rating)
	}
	if findApp(res.Full, "Lonely") != nil {
		t.Error("unrated app in an unrated category must be dropped")
	}
	if res.Report.DroppedUnrated != 1 {
		t.Errorf("DroppedUnrated: got %d, want 1", res.Report.DroppedUnrated)
	}
}

func TestCleanParsesInstalls(t *testing.T) {
	res := cleanFixture(t)
	tests := []struct {
		app  string
		want int64
	}{
		{"Photo Editor", 10000},
		{"Sketch Pro", 5000000},
		{"Pocket Quiz", 100},
	}
	for _, tt := range tests {
		a := findApp(res.Full, tt.app)
		if a == nil {
			t.Fatalf("%s missing", tt.app)
		}
		if a.Installs != tt.want {
			t.Errorf("%s installs: got %d, want %d", tt.app, a.Installs, tt.want)
		}
	}
	if findApp(res.Full, "Odd Installs") != nil {
		t.Error("row with unparsable installs must be dropped")
	}
}

func TestCleanImputesType(t *testing.T) {
	res := cleanFixture(t)
	if got := findApp(res.Full, "Sketch Pro").Type; got != "Free" {
		t.Errorf("Sketch Pro type: got %q, want Free", got)
	}
	if got := findApp(res.Full, "Space Blaster").Type; got != "Paid" {
		t.Errorf("Space Blaster type: got %q, want Paid", got)
	}
	// populated values are left untouched even when Price disagrees
	if got := findApp(res.Full, "Pocket Quiz").Type; got != "Paid" {
		t.Errorf("Pocket Quiz type: got %q, want Paid", got)
	}
}

func TestImputeTypeOnlyFillsMissing(t *testing.T) {
	tests := []struct {
		raw   string
		price float64
		want  string
	}{
		{"", 0, "Free"},
		{"  ", 2.99, "Paid"},
		{"NaN", 0, "Free"},
		{"nan", 0.99, "Paid"},
		{"Free", 4.99, "Free"},
		{" Paid ", 0, "Paid"},
		{"0", 0, "0"},
	}
	for _, tt := range tests {
		if got := imputeType(tt.raw, tt.price); got != tt.want {
			t.Errorf("imputeType(%q, %v) = %q, want %q", tt.raw, tt.price, got, tt.want)
		}
	}
}

func TestCleanCoercesReviews(t *testing.T) {
	res := cleanFixture(t)
	if got := findApp(res.Full, "Space Blaster").Reviews; got != 2000 {
		t.Errorf("Space Blaster reviews: got %d, want 2000", got)
	}
	if got := findApp(res.Full, "Pocket Quiz").Reviews; got != 12000 {
		t.Errorf("Pocket Quiz reviews: got %d, want 12000", got)
	}
}

func TestPopularityScoreBoundsAndRoundTrip(t *testing.T) {
	res := cleanFixture(t)
	if len(res.Score) == 0 {
		t.Fatal("empty score table")
	}
	for _, a := range res.Score {
		if a.PopularityScore < 0 || a.PopularityScore > 1 {
			t.Errorf("%s score %v out of [0,1]", a.Name, a.PopularityScore)
		}
		if got := PopularityScore(a, res.Bounds); math.Abs(got-a.PopularityScore) > 1e-5 {
			t.Errorf("%s recomputed score %v, stored %v", a.Name, got, a.PopularityScore)
		}
		want := (a.RatingNormalized + a.ReviewsNormalized + a.InstallsNormalized) / 3
		if math.Abs(want-a.PopularityScore) > 5e-6 {
			t.Errorf("%s score %v is not the mean of its normalized inputs %v", a.Name, a.PopularityScore, want)
		}
	}
}

func TestTopCategoriesLimit(t *testing.T) {
	p := NewPreprocessor(newTestLogger(), 1)
	raw, _, err := p.ReadRaw(writeRaw(t, rawFixture))
	if err != nil {
		t.Fatal(err)
	}
	res := p.Clean(raw)
	if len(res.TopCategories) != 1 {
		t.Fatalf("top categories: got %v", res.TopCategories)
	}
	for _, a := range res.Score {
		if a.Category != res.TopCategories[0] {
			t.Errorf("score table holds %s outside %v", a.Category, res.TopCategories)
		}
	}
}

func TestReadRawSkipsMalformedRows(t *testing.T) {
	p := NewPreprocessor(newTestLogger(), 10)
	content := rawHeader + "Short,GAME,4.0\n" +
		`Fine,GAME,4.0,1,1M,"1+",Free,0,Everyone,Arcade,x,1,4.0` + "\n"
	raw, malformed, err := p.ReadRaw(writeRaw(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 1 || malformed != 1 {
		t.Errorf("got %d rows and %d malformed, want 1 and 1", len(raw), malformed)
	}
}

func TestRunWritesBothOutputs(t *testing.T) {
	p := NewPreprocessor(newTestLogger(), 10)
	store := &recordingStore{}
	p.WithStore(store)
	out := filepath.Join(t.TempDir(), "preprocessed")

	report, err := p.Run(context.Background(), writeRaw(t, rawFixture), out, storage.FormatCSV)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	full, err := storage.Load(context.Background(), report.FullPath, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("load full: %v", err)
	}
	if full.Len() != report.Kept {
		t.Errorf("full rows: got %d, want %d", full.Len(), report.Kept)
	}
	score, err := storage.Load(context.Background(), report.ScorePath, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("load score: %v", err)
	}
	if !score.HasScore() || score.Len() != report.ScoreRows {
		t.Errorf("score table: HasScore=%v rows=%d want %d", score.HasScore(), score.Len(), report.ScoreRows)
	}
	if store.rows != report.ScoreRows || !store.hasScore {
		t.Errorf("store received %d rows (score=%v)", store.rows, store.hasScore)
	}

	data, err := os.ReadFile(report.FullPath)
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	for _, dropped := range models.DiscardColumns {
		if strings.Contains(header, dropped) {
			t.Errorf("discarded column %q still present in %q", dropped, header)
		}
	}
}

func TestRunMissingInput(t *testing.T) {
	p := NewPreprocessor(newTestLogger(), 10)
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), t.TempDir(), storage.FormatCSV)
	if !errors.Is(err, storage.ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got %v", err)
	}
}

func TestRunOutputDirectoryError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	p := NewPreprocessor(newTestLogger(), 10)
	_, err := p.Run(context.Background(), writeRaw(t, rawFixture), filepath.Join(blocker, "out"), storage.FormatCSV)
	if !errors.Is(err, storage.ErrOutputDirectory) {
		t.Errorf("expected ErrOutputDirectory, got %v", err)
	}
}

func TestParseHelpers(t *testing.T) {
	installs := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"10,000+", 10000, true},
		{"0", 0, true},
		{"1,000,000,000+", 1000000000, true},
		{"Free", 0, false},
	}
	for _, tt := range installs {
		got, ok := parseInstalls(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseInstalls(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}

	prices := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"0", 0, true},
		{"$4.99", 4.99, true},
		{"Everyone", 0, false},
	}
	for _, tt := range prices {
		got, ok := parsePrice(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parsePrice(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}

	if _, ok := parseRating("NaN"); ok {
		t.Error("NaN rating must be treated as missing")
	}
}

type recordingStore struct {
	rows     int
	hasScore bool
}

func (r *recordingStore) Write(_ context.Context, apps []*models.App, hasScore bool) error {
	r.rows, r.hasScore = len(apps), hasScore
	return nil
}
func (r *recordingStore) FetchAll(context.Context) (*models.Table, error) { return nil, nil }
func (r *recordingStore) Close() error                                     { return nil }
