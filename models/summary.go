package models

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Placeholders published instead of NaN when a view is empty.
const (
	NoDataSentinel = "No data"
	DashSentinel   = "-"
)

// Metric names of the summary table.
const (
	MetricRating   = "Rating"
	MetricInstalls = "Installs"
	MetricReviews  = "Reviews"
)

// MetricStats is one row of the summary statistics table.
type MetricStats struct {
	Metric string
	Mean   float64
	Min    float64
	Max    float64
	Valid  bool
}

// DisplayMean formats the mean the way the dashboard cards show it.
func (m MetricStats) DisplayMean() string {
	if !m.Valid {
		return NoDataSentinel
	}
	return m.format(m.Mean)
}

// DisplayMin formats the minimum, or a dash when there is no data.
func (m MetricStats) DisplayMin() string {
	if !m.Valid {
		return DashSentinel
	}
	return m.format(m.Min)
}

// DisplayMax formats the maximum, or a dash when there is no data.
func (m MetricStats) DisplayMax() string {
	if !m.Valid {
		return DashSentinel
	}
	return m.format(m.Max)
}

func (m MetricStats) format(v float64) string {
	if m.Metric == MetricRating {
		return fmt.Sprintf("%.2f", v)
	}
	return humanize.Comma(int64(v))
}

// MarshalJSON emits {Metric, Mean, Min, Max}; sentinels replace numbers on
// empty input.
func (m MetricStats) MarshalJSON() ([]byte, error) {
	row := struct {
		Metric string `json:"Metric"`
		Mean   any    `json:"Mean"`
		Min    any    `json:"Min"`
		Max    any    `json:"Max"`
	}{Metric: m.Metric}
	if m.Valid {
		row.Mean, row.Min, row.Max = m.Mean, m.Min, m.Max
	} else {
		row.Mean, row.Min, row.Max = NoDataSentinel, DashSentinel, DashSentinel
	}
	return json.Marshal(row)
}

// UnmarshalJSON accepts both numeric and sentinel rows.
func (m *MetricStats) UnmarshalJSON(data []byte) error {
	var row struct {
		Metric string `json:"Metric"`
		Mean   any    `json:"Mean"`
		Min    any    `json:"Min"`
		Max    any    `json:"Max"`
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	m.Metric = row.Metric
	mean, ok := row.Mean.(float64)
	if !ok {
		m.Valid = false
		return nil
	}
	m.Mean = mean
	m.Min, _ = row.Min.(float64)
	m.Max, _ = row.Max.(float64)
	m.Valid = true
	return nil
}

// SummaryStats holds the per-metric statistics of a filtered view.
type SummaryStats struct {
	Rating   MetricStats
	Installs MetricStats
	Reviews  MetricStats
}

// Rows returns the record set in display order.
func (s *SummaryStats) Rows() []MetricStats {
	return []MetricStats{s.Rating, s.Installs, s.Reviews}
}

// Empty reports whether the stats carry sentinels only.
func (s *SummaryStats) Empty() bool {
	return !s.Rating.Valid && !s.Installs.Valid && !s.Reviews.Valid
}

// EmptySummary returns sentinel statistics.
func EmptySummary() *SummaryStats {
	return &SummaryStats{
		Rating:   MetricStats{Metric: MetricRating},
		Installs: MetricStats{Metric: MetricInstalls},
		Reviews:  MetricStats{Metric: MetricReviews},
	}
}
