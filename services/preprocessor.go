package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

var (
	// reviewsRegexp captures abbreviated counts such as "3.0M" or "12k".
	reviewsRegexp = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([kKmM]?)$`)
	// priceRegexp captures "$4.99", "4.99" and "0".
	priceRegexp = regexp.MustCompile(`^\$?\s*(\d+(?:\.\d+)?)$`)
)

// Output file stems of a preprocessing run.
const (
	CleanFileStem = "clean_data"
	ScoreFileStem = "clean_data_score"
)

// ScoreBounds are the min/max used to normalize the popularity inputs.
type ScoreBounds struct {
	RatingMin, RatingMax           float64
	ReviewsLogMin, ReviewsLogMax   float64
	InstallsLogMin, InstallsLogMax float64
}

// PreprocessReport summarises one cleaning run.
type PreprocessReport struct {
	Read             int
	Kept             int
	DroppedRating    int
	DroppedUnrated   int
	DroppedMalformed int
	TopCategories    []string
	ScoreRows        int
	FullPath         string
	ScorePath        string
}

// CleanResult is the in-memory outcome of Clean.
type CleanResult struct {
	Full          []*models.App
	Score         []*models.App
	TopCategories []string
	Bounds        ScoreBounds
	Report        PreprocessReport
}

// Preprocessor turns the raw Play Store export into the analysis tables.
type Preprocessor struct {
	logger        *utils.Logger
	topCategories int
	store         storage.AppStore
}

// NewPreprocessor creates a Preprocessor keeping the topCategories best
// categories in the score table.
func NewPreprocessor(logger *utils.Logger, topCategories int) *Preprocessor {
	if topCategories < 1 {
		topCategories = 10
	}
	return &Preprocessor{logger: logger, topCategories: topCategories}
}

// WithStore makes Run also replace the database copy of the score table.
func (p *Preprocessor) WithStore(store storage.AppStore) *Preprocessor {
	p.store = store
	return p
}

// Run reads the raw CSV at input, cleans it and writes
// <outputDir>/clean_data.<format> and <outputDir>/clean_data_score.<format>.
func (p *Preprocessor) Run(ctx context.Context, input, outputDir string, format storage.Format) (*PreprocessReport, error) {
	raw, malformed, err := p.ReadRaw(input)
	if err != nil {
		p.logger.Error("[preprocess] %v", err)
		return nil, err
	}

	res := p.Clean(raw)
	res.Report.Read += malformed
	res.Report.DroppedMalformed += malformed

	if err := storage.EnsureDir(outputDir); err != nil {
		p.logger.Error("[preprocess] %v", err)
		return nil, err
	}

	fullPath := filepath.Join(outputDir, CleanFileStem+"."+string(format))
	if err := storage.WriteTableFile(fullPath, res.Full, models.FullSchema); err != nil {
		p.logger.Error("[preprocess] write %s: %v", fullPath, err)
		return nil, err
	}
	p.logger.Info("[preprocess] Cleaned data saved to %s", fullPath)

	scorePath := filepath.Join(outputDir, ScoreFileStem+"."+string(format))
	if err := storage.WriteTableFile(scorePath, res.Score, models.ScoreSchema); err != nil {
		p.logger.Error("[preprocess] write %s: %v", scorePath, err)
		return nil, err
	}
	p.logger.Info("[preprocess] Cleaned data score saved to %s", scorePath)

	if p.store != nil {
		if err := p.store.Write(ctx, res.Score, true); err != nil {
			p.logger.Error("[preprocess] database write failed: %v", err)
			return nil, err
		}
		p.logger.Info("[preprocess] Score table stored in PostgreSQL (%d rows)", len(res.Score))
	}

	res.Report.FullPath = fullPath
	res.Report.ScorePath = scorePath
	return &res.Report, nil
}

// ReadRaw reads the raw export. Rows whose field count differs from the
// header are malformed and skipped; their number is returned.
func (p *Preprocessor) ReadRaw(path string) ([]*models.RawApp, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: raw data file %s", storage.ErrInputNotFound, path)
		}
		return nil, 0, fmt.Errorf("preprocess: open %q: %w", path, err)
	}
	defer f.Close()
	return p.readRaw(bufio.NewReader(f))
}

func (p *Preprocessor) readRaw(r io.Reader) ([]*models.RawApp, int, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true

	header, err := rd.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("preprocess: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var raw []*models.RawApp
	malformed := 0
	line := 1
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			p.logger.Warn("[preprocess] line %d unreadable: %v", line, err)
			malformed++
			continue
		}
		if len(rec) != len(header) {
			p.logger.Debug("[preprocess] line %d has %d fields, want %d", line, len(rec), len(header))
			malformed++
			continue
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			fields[h] = rec[i]
		}
		raw = append(raw, &models.RawApp{Line: line, Fields: fields})
	}
	return raw, malformed, nil
}

type stagedApp struct {
	raw       *models.RawApp
	rating    float64
	hasRating bool
}

// Clean applies the cleaning steps in order: drop ratings above 5, impute
// missing ratings with the category mean, drop discarded columns, impute
// Type from Price, parse Installs and Reviews, round Rating, derive the
// normalized metrics and popularity_score, and restrict the score table to
// the best categories by mean score.
func (p *Preprocessor) Clean(raw []*models.RawApp) CleanResult {
	res := CleanResult{Report: PreprocessReport{Read: len(raw)}}

	staged := make([]stagedApp, 0, len(raw))
	for _, r := range raw {
		rating, ok := parseRating(r.Get(models.ColRating))
		if ok && rating > models.MaxRating {
			p.logger.Debug("[preprocess] line %d dropped: rating %.1f > 5", r.Line, rating)
			res.Report.DroppedRating++
			continue
		}
		staged = append(staged, stagedApp{raw: r, rating: rating, hasRating: ok})
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range staged {
		if s.hasRating {
			cat := strings.TrimSpace(s.raw.Get(models.ColCategory))
			sums[cat] += s.rating
			counts[cat]++
		}
	}

	full := make([]*models.App, 0, len(staged))
	for _, s := range staged {
		category := strings.TrimSpace(s.raw.Get(models.ColCategory))
		if !s.hasRating {
			if counts[category] == 0 {
				res.Report.DroppedUnrated++
				continue
			}
			s.rating = sums[category] / float64(counts[category])
		}

		price, ok := parsePrice(s.raw.Get(models.ColPrice))
		if !ok {
			p.logger.Debug("[preprocess] line %d dropped: price %q", s.raw.Line, s.raw.Get(models.ColPrice))
			res.Report.DroppedMalformed++
			continue
		}
		installs, ok := parseInstalls(s.raw.Get(models.ColInstalls))
		if !ok {
			p.logger.Debug("[preprocess] line %d dropped: installs %q", s.raw.Line, s.raw.Get(models.ColInstalls))
			res.Report.DroppedMalformed++
			continue
		}
		reviews, ok := parseReviews(s.raw.Get(models.ColReviews))
		if !ok {
			p.logger.Debug("[preprocess] line %d dropped: reviews %q", s.raw.Line, s.raw.Get(models.ColReviews))
			res.Report.DroppedMalformed++
			continue
		}

		appType := imputeType(s.raw.Get(models.ColType), price)
		if appType != "Free" && appType != "Paid" {
			p.logger.Warn("[preprocess] line %d: unexpected type %q kept", s.raw.Line, appType)
		}

		full = append(full, &models.App{
			Name:          normaliseText(s.raw.Get(models.ColApp)),
			Category:      category,
			Rating:        models.Round(s.rating, 1),
			Reviews:       reviews,
			Installs:      installs,
			Type:          appType,
			ContentRating: normaliseText(s.raw.Get(models.ColContentRating)),
			Price:         price,
		})
	}

	res.Bounds = derivePopularity(full)
	res.Full = full
	res.TopCategories = topCategoriesByScore(full, p.topCategories)

	keep := make(map[string]struct{}, len(res.TopCategories))
	for _, c := range res.TopCategories {
		keep[c] = struct{}{}
	}
	for _, a := range full {
		if _, ok := keep[a.Category]; ok {
			res.Score = append(res.Score, a)
		}
	}

	res.Report.Kept = len(full)
	res.Report.ScoreRows = len(res.Score)
	res.Report.TopCategories = res.TopCategories
	p.logger.Info("[preprocess] Cleaned %d → %d apps (rating>5: %d, unrated: %d, malformed: %d); score table %d rows over %d categories",
		res.Report.Read, res.Report.Kept, res.Report.DroppedRating, res.Report.DroppedUnrated,
		res.Report.DroppedMalformed, res.Report.ScoreRows, len(res.TopCategories))
	return res
}

// derivePopularity fills the log, normalized and popularity_score columns
// of every app and returns the normalization bounds.
func derivePopularity(apps []*models.App) ScoreBounds {
	if len(apps) == 0 {
		return ScoreBounds{}
	}
	b := ScoreBounds{
		RatingMin: math.Inf(1), RatingMax: math.Inf(-1),
		ReviewsLogMin: math.Inf(1), ReviewsLogMax: math.Inf(-1),
		InstallsLogMin: math.Inf(1), InstallsLogMax: math.Inf(-1),
	}
	for _, a := range apps {
		a.ReviewsLog = math.Log1p(float64(a.Reviews))
		a.InstallsLog = math.Log1p(float64(a.Installs))
		b.RatingMin = math.Min(b.RatingMin, a.Rating)
		b.RatingMax = math.Max(b.RatingMax, a.Rating)
		b.ReviewsLogMin = math.Min(b.ReviewsLogMin, a.ReviewsLog)
		b.ReviewsLogMax = math.Max(b.ReviewsLogMax, a.ReviewsLog)
		b.InstallsLogMin = math.Min(b.InstallsLogMin, a.InstallsLog)
		b.InstallsLogMax = math.Max(b.InstallsLogMax, a.InstallsLog)
	}
	for _, a := range apps {
		a.RatingNormalized = minMax(a.Rating, b.RatingMin, b.RatingMax)
		a.ReviewsNormalized = minMax(a.ReviewsLog, b.ReviewsLogMin, b.ReviewsLogMax)
		a.InstallsNormalized = minMax(a.InstallsLog, b.InstallsLogMin, b.InstallsLogMax)
		a.PopularityScore = models.Round((a.RatingNormalized+a.ReviewsNormalized+a.InstallsNormalized)/3, 5)
	}
	return b
}

// PopularityScore recomputes the score of one record from its Rating,
// Reviews and Installs.
func PopularityScore(a *models.App, b ScoreBounds) float64 {
	r := minMax(a.Rating, b.RatingMin, b.RatingMax)
	v := minMax(math.Log1p(float64(a.Reviews)), b.ReviewsLogMin, b.ReviewsLogMax)
	i := minMax(math.Log1p(float64(a.Installs)), b.InstallsLogMin, b.InstallsLogMax)
	return models.Round((r+v+i)/3, 5)
}

// minMax scales v into [0,1]; a constant column maps to 0.
func minMax(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// topCategoriesByScore ranks categories by mean popularity_score. Ties keep
// the order in which categories first appear.
func topCategoriesByScore(apps []*models.App, n int) []string {
	type catScore struct {
		cat   string
		sum   float64
		count int
	}
	index := make(map[string]int)
	var cats []*catScore
	for _, a := range apps {
		i, ok := index[a.Category]
		if !ok {
			i = len(cats)
			index[a.Category] = i
			cats = append(cats, &catScore{cat: a.Category})
		}
		cats[i].sum += a.PopularityScore
		cats[i].count++
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].sum/float64(cats[i].count) > cats[j].sum/float64(cats[j].count)
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.cat
	}
	return out
}

// parseRating returns ok=false for missing values ("", "NaN").
func parseRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseInstalls strips thousands separators and the trailing "+":
// "10,000+" → 10000.
func parseInstalls(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "+")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseReviews coerces review counts, accepting "3.0M" and "12k".
func parseReviews(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	m := reviewsRegexp.FindStringSubmatch(s)
	if len(m) < 3 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return int64(math.Round(v)), true
}

// parsePrice accepts "0", "4.99" and "$4.99".
func parsePrice(raw string) (float64, bool) {
	m := priceRegexp.FindStringSubmatch(strings.TrimSpace(raw))
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// imputeType keeps a populated Type and derives a blank or NaN one from
// Price.
func imputeType(raw string, price float64) string {
	if t := strings.TrimSpace(raw); t != "" && !strings.EqualFold(t, "NaN") {
		return t
	}
	if price == 0 {
		return "Free"
	}
	return "Paid"
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
