package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"playstore-analytics/config"
	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

// ErrUnknownControl is returned for events from a control the dashboard
// does not have.
var ErrUnknownControl = errors.New("unknown control")

// AllOutputs lists every published output in order.
var AllOutputs = []models.OutputID{
	models.OutputCategoryChart,
	models.OutputEngagementChart,
	models.OutputDensityPlot,
	models.OutputReviewsHistogram,
	models.OutputPopularityChart,
	models.OutputCategoryPie,
	models.OutputWordCloud,
	models.OutputTopAppsChart,
	models.OutputRatingsChart,
	models.OutputReviewsChart,
	models.OutputSummaryTable,
}

// Dispatch maps each control to the outputs a change of it recomputes.
// Every chart reads all four filters, so each filter control drives every
// output; the category control also feeds its own displayed value.
var Dispatch = map[models.ControlID][]models.OutputID{
	models.ControlCategory:      AllOutputs,
	models.ControlRating:        AllOutputs,
	models.ControlType:          AllOutputs,
	models.ControlContentRating: AllOutputs,
	models.ControlApply:         AllOutputs,
}

// Publisher receives the bundle of every completed cycle.
type Publisher interface {
	Publish(ctx context.Context, b *models.Bundle) error
}

// JSONPublisher writes one JSON bundle per line.
type JSONPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONPublisher(w io.Writer) *JSONPublisher {
	return &JSONPublisher{enc: json.NewEncoder(w)}
}

func (p *JSONPublisher) Publish(_ context.Context, b *models.Bundle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(b); err != nil {
		return fmt.Errorf("publish: encode bundle %d: %w", b.Seq, err)
	}
	return nil
}

// Options returns the dropdown choices of each multi-select: "All"
// followed by the sorted unique values of the loaded table.
func Options(t *models.Table) map[models.ControlID][]string {
	withAll := func(values []string) []string {
		return append([]string{models.All}, values...)
	}
	return map[models.ControlID][]string{
		models.ControlCategory:      withAll(t.Categories()),
		models.ControlType:          withAll(t.Types()),
		models.ControlContentRating: withAll(t.ContentRatings()),
	}
}

// rendered is everything a cycle computes from one view. It is what the
// cache stores.
type rendered struct {
	Rows    int                                    `json:"rows"`
	Charts  map[models.OutputID]*models.ChartSpec `json:"charts"`
	Summary []models.MetricStats                   `json:"summary"`
	Cloud   *models.WordCloud                      `json:"wordcloud,omitempty"`
}

// Controller is the reactive state machine between the filter controls
// and the published outputs. Cycles are serialized; the table is only read.
type Controller struct {
	table   *models.Table
	palette *config.Palette
	cfg     *config.Config
	cache   storage.Cache
	logger  *utils.Logger
	summary *SummaryService
	cloud   *WordCloudRenderer
	dataset string

	mu     sync.Mutex
	state  models.FilterState
	staged models.FilterState
	seq    uint64
}

// NewController creates a controller showing the default filters. cache
// may be nil.
func NewController(table *models.Table, palette *config.Palette, cfg *config.Config, cache storage.Cache, logger *utils.Logger) *Controller {
	if palette == nil {
		palette = config.NewPalette(config.DefaultCategoryColors, table.Categories())
	}
	c := &Controller{
		table:   table,
		palette: palette,
		cfg:     cfg,
		cache:   cache,
		logger:  logger,
		summary: NewSummaryService(logger),
		cloud:   NewWordCloudRenderer(cfg.WordCloudWidth, cfg.WordCloudHeight),
		state:   models.DefaultFilterState(),
		staged:  models.DefaultFilterState(),
	}
	c.dataset = c.fingerprint()
	return c
}

// State returns the filter values currently applied.
func (c *Controller) State() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Options returns the dropdown choices of the loaded table.
func (c *Controller) Options() map[models.ControlID][]string {
	return Options(c.table)
}

// Initial renders the dashboard for the current filters without an event.
func (c *Controller) Initial(ctx context.Context) *models.Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle(ctx, "")
}

// Update replaces every filter at once and runs a cycle. Multi-select
// values go through the mutual-exclusion rule against the current state.
func (c *Controller) Update(ctx context.Context, next models.FilterState) *models.Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.canonical(c.state, next)
	c.staged = c.state.Clone()
	return c.cycle(ctx, models.ControlApply)
}

// Handle applies one control event. In batched mode filter changes are
// staged and only the apply button starts a cycle.
func (c *Controller) Handle(ctx context.Context, ev models.Event) (*models.Bundle, error) {
	if _, ok := Dispatch[ev.Control]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownControl, ev.Control)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Control == models.ControlApply {
		if c.cfg.Batched() {
			c.state = c.staged.Clone()
		}
		return c.cycle(ctx, ev.Control), nil
	}

	if c.cfg.Batched() {
		c.staged = applyEvent(c.staged, ev)
		c.seq++
		c.logger.Debug("[controller] staged %s", ev.Control)
		return &models.Bundle{
			Seq:      c.seq,
			Trigger:  ev.Control,
			Trace:    []models.CycleState{models.StateIdle},
			State:    models.StateIdle,
			Staged:   true,
			Controls: controls(c.staged),
			Range:    c.staged.RatingRange,
		}, nil
	}

	c.state = applyEvent(c.state, ev)
	c.staged = c.state.Clone()
	return c.cycle(ctx, ev.Control), nil
}

// Run handles events until the channel closes or ctx is cancelled,
// publishing bundles in arrival order.
func (c *Controller) Run(ctx context.Context, events <-chan models.Event, pub Publisher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b, err := c.Handle(ctx, ev)
			if err != nil {
				c.logger.Warn("[controller] %v", err)
				continue
			}
			if err := pub.Publish(ctx, b); err != nil {
				return err
			}
		}
	}
}

func applyEvent(s models.FilterState, ev models.Event) models.FilterState {
	out := s.Clone()
	switch ev.Control {
	case models.ControlCategory:
		out.Categories = CanonicalSelection(s.Categories, ev.Values)
	case models.ControlType:
		out.Types = CanonicalSelection(s.Types, ev.Values)
	case models.ControlContentRating:
		out.ContentRatings = CanonicalSelection(s.ContentRatings, ev.Values)
	case models.ControlRating:
		if len(ev.Range) == 2 {
			lo, hi := ClampRange(ev.Range[0], ev.Range[1])
			out.RatingRange = []float64{lo, hi}
		} else {
			out.RatingRange = nil
		}
	}
	return out
}

func (c *Controller) canonical(prev, next models.FilterState) models.FilterState {
	out := models.FilterState{
		Types:          CanonicalSelection(prev.Types, next.Types),
		ContentRatings: CanonicalSelection(prev.ContentRatings, next.ContentRatings),
		Categories:     CanonicalSelection(prev.Categories, next.Categories),
	}
	if len(next.RatingRange) == 2 {
		lo, hi := ClampRange(next.RatingRange[0], next.RatingRange[1])
		out.RatingRange = []float64{lo, hi}
	}
	return out
}

// cycle runs Validating → Filtering → (Empty | Rendering) → Idle on the
// applied state. The caller holds c.mu.
func (c *Controller) cycle(ctx context.Context, trigger models.ControlID) *models.Bundle {
	c.seq++
	b := &models.Bundle{
		Seq:     c.seq,
		Trigger: trigger,
		Trace:   []models.CycleState{models.StateValidating},
	}

	if !c.state.Complete() {
		c.logger.Debug("[controller] cycle %d: filter unset, publishing blank outputs", b.Seq)
		b.Trace = append(b.Trace, models.StateIdle)
		b.State = models.StateIdle
		b.Charts = make(map[models.OutputID]*models.ChartSpec, len(AllOutputs))
		for _, id := range AllOutputs {
			b.Charts[id] = models.BlankChart(string(id))
		}
		b.Controls = controls(c.state)
		b.Range = c.state.RatingRange
		return b
	}

	b.Trace = append(b.Trace, models.StateFiltering)

	// A selection covering every category snaps back to "All" and is
	// applied as such; a truncated one displays what was applied.
	c.state.Categories = CollapseCategories(c.state.Categories, c.table.Categories())
	sel, err := Resolve(c.table, c.state, c.cfg.CategoryLimit)
	if err != nil {
		// Complete() was checked above; Resolve cannot fail here.
		c.logger.Error("[controller] resolve: %v", err)
	}
	if !sel.AllCategories {
		c.state.Categories = sel.Categories
	}
	c.state.RatingRange = []float64{sel.MinRating, sel.MaxRating}
	c.staged = c.state.Clone()

	out := c.render(ctx, sel)
	if out.Rows == 0 {
		b.Trace = append(b.Trace, models.StateEmpty)
		b.State = models.StateEmpty
	} else {
		b.Trace = append(b.Trace, models.StateRendering)
		b.State = models.StateRendering
	}
	b.Trace = append(b.Trace, models.StateIdle)

	b.Rows = out.Rows
	b.Charts = out.Charts
	b.Summary = out.Summary
	b.Cloud = out.Cloud
	b.Controls = controls(c.state)
	b.Range = c.state.RatingRange
	c.logger.Debug("[controller] cycle %d (%s): %d rows, state %s", b.Seq, trigger, b.Rows, b.State)
	return b
}

// render filters the table and runs every builder on the same view,
// consulting the cache first.
func (c *Controller) render(ctx context.Context, sel models.Selection) *rendered {
	key := c.cacheKey(sel)
	if out := c.cached(ctx, key); out != nil {
		return out
	}

	view := Filter(c.table, sel)
	chartCtx := NewChartContext(c.cfg, c.palette, sel)
	out := &rendered{
		Rows:   view.Len(),
		Charts: make(map[models.OutputID]*models.ChartSpec, len(AllOutputs)),
	}

	var mu sync.Mutex
	pool := utils.NewWorkerPool(c.cfg.RenderWorkers)
	for _, b := range ChartBuilders {
		pool.Submit(func() {
			spec := b.Build(view, chartCtx)
			mu.Lock()
			out.Charts[b.ID] = spec
			mu.Unlock()
		})
	}
	pool.Submit(func() {
		spec, cloud, err := WordCloudChart(view, chartCtx, c.cloud)
		if err != nil {
			c.logger.Warn("[controller] word cloud: %v", err)
		}
		mu.Lock()
		out.Charts[models.OutputWordCloud] = spec
		out.Cloud = cloud
		mu.Unlock()
	})
	pool.Wait()

	stats := c.summary.Generate(view)
	out.Charts[models.OutputSummaryTable] = SummaryChart(stats)
	out.Summary = stats.Rows()

	c.store(ctx, key, out)
	return out
}

func (c *Controller) cached(ctx context.Context, key string) *rendered {
	if c.cache == nil {
		return nil
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("[controller] cache get: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var out rendered
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Warn("[controller] cache entry %s unreadable: %v", key[:12], err)
		return nil
	}
	c.logger.Debug("[controller] cache hit %s", key[:12])
	return &out
}

func (c *Controller) store(ctx context.Context, key string, out *rendered) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Warn("[controller] cache encode: %v", err)
		return
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		c.logger.Warn("[controller] cache set: %v", err)
	}
}

// cacheKey identifies a resolved selection on this dataset and settings.
func (c *Controller) cacheKey(sel models.Selection) string {
	data, _ := json.Marshal(struct {
		Dataset   string           `json:"dataset"`
		Selection models.Selection `json:"selection"`
	}{c.dataset, sel})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fingerprint identifies the loaded rows, the palette and the chart
// settings. Redis entries outlive the process, so two datasets of the same
// shape must not share keys.
func (c *Controller) fingerprint() string {
	h := sha256.New()
	settings, _ := json.Marshal(struct {
		HasScore   bool     `json:"has_score"`
		TopN       int      `json:"top_n"`
		Engagement int      `json:"engagement_top_n"`
		Bins       int      `json:"bins"`
		Limit      int      `json:"limit"`
		Cloud      [2]int   `json:"cloud"`
		Domain     []string `json:"domain"`
		Range      []string `json:"range"`
	}{
		c.table.HasScore(), c.cfg.TopN, c.cfg.EngagementTopN, c.cfg.HistogramBins,
		c.cfg.CategoryLimit, [2]int{c.cloud.Width, c.cloud.Height},
		c.palette.Domain(), c.palette.Range(),
	})
	h.Write(settings)
	for i := 0; i < c.table.Len(); i++ {
		a := c.table.At(i)
		fmt.Fprintf(h, "%q|%q|%g|%d|%d|%q|%q|%g|%g\n",
			a.Name, a.Category, a.Rating, a.Reviews, a.Installs,
			a.Type, a.ContentRating, a.Price, a.PopularityScore)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func controls(s models.FilterState) map[models.ControlID][]string {
	return map[models.ControlID][]string{
		models.ControlCategory:      s.Categories,
		models.ControlType:          s.Types,
		models.ControlContentRating: s.ContentRatings,
	}
}
