package models

// ControlID identifies a filter control of the dashboard.
type ControlID string

const (
	ControlCategory      ControlID = "category-filter"
	ControlRating        ControlID = "rating-slider"
	ControlType          ControlID = "app-type-filter"
	ControlContentRating ControlID = "content-rating-filter"
	ControlApply         ControlID = "apply-filters"
)

// OutputID identifies a published output.
type OutputID string

const (
	OutputCategoryChart    OutputID = "category-chart"
	OutputEngagementChart  OutputID = "engagement-chart"
	OutputDensityPlot      OutputID = "density-plot"
	OutputReviewsHistogram OutputID = "reviews-histogram"
	OutputPopularityChart  OutputID = "popularity-chart"
	OutputCategoryPie      OutputID = "category-pie"
	OutputWordCloud        OutputID = "wordcloud"
	OutputTopAppsChart     OutputID = "top-apps-chart"
	OutputRatingsChart     OutputID = "ratings-chart"
	OutputReviewsChart     OutputID = "reviews-chart"
	OutputSummaryTable     OutputID = "summary-stats-table"
)

// Event is one change of a filter control. Values carries multi-select
// values, Range the two slider handles.
type Event struct {
	Control ControlID `json:"control"`
	Values  []string  `json:"values,omitempty"`
	Range   []float64 `json:"range,omitempty"`
}

// CycleState is a state of the reactive controller.
type CycleState string

const (
	StateIdle       CycleState = "idle"
	StateValidating CycleState = "validating"
	StateFiltering  CycleState = "filtering"
	StateEmpty      CycleState = "empty"
	StateRendering  CycleState = "rendering"
)

// WordWeight is one word of a word cloud.
type WordWeight struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// WordCloud is the rendered word cloud artifact.
type WordCloud struct {
	Words  []WordWeight `json:"words"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	PNG    []byte       `json:"png,omitempty"`
}

// Bundle is everything one reactive cycle publishes. Every chart, the
// summary and the word cloud come from the same filtered view.
type Bundle struct {
	Seq      uint64                  `json:"seq"`
	Trigger  ControlID               `json:"trigger,omitempty"`
	Trace    []CycleState            `json:"trace"`
	State    CycleState              `json:"state"`
	Staged   bool                    `json:"staged,omitempty"`
	Rows     int                     `json:"rows"`
	Controls map[ControlID][]string  `json:"controls"`
	Range    []float64               `json:"rating_range,omitempty"`
	Charts   map[OutputID]*ChartSpec `json:"charts,omitempty"`
	Summary  []MetricStats           `json:"summary,omitempty"`
	Cloud    *WordCloud              `json:"wordcloud,omitempty"`
}

// Chart returns the spec published under id, or nil.
func (b *Bundle) Chart(id OutputID) *ChartSpec {
	if b == nil || b.Charts == nil {
		return nil
	}
	return b.Charts[id]
}
