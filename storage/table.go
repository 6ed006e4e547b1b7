package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"playstore-analytics/models"
)

// frame is a column-oriented view of a decoded file that assemble turns
// into a Table.
type frame struct {
	names []string
	rows  int
	value func(col, row int) any
}

// assemble converts a decoded frame into an immutable Table. Every column
// of models.BaseSchema must be present; popularity_score is optional.
func assemble(f frame) (*models.Table, error) {
	index := make(map[string]int, len(f.names))
	for i, n := range f.names {
		index[strings.TrimSpace(n)] = i
	}
	for _, c := range models.BaseSchema {
		if _, ok := index[c.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c.Name)
		}
	}
	_, hasScore := index[models.ColPopularityScore]

	kinds := make(map[string]models.ColumnKind)
	for _, c := range models.FullSchema {
		kinds[c.Name] = c.Kind
	}

	apps := make([]*models.App, 0, f.rows)
	for r := 0; r < f.rows; r++ {
		a := &models.App{}
		for name, col := range index {
			kind, known := kinds[name]
			if !known {
				continue
			}
			a.Set(name, coerce(kind, f.value(col, r)))
		}
		apps = append(apps, a)
	}
	return models.NewTable(apps, hasScore), nil
}

// coerce normalises a decoded cell to the Go type of its column kind.
func coerce(kind models.ColumnKind, v any) any {
	switch kind {
	case models.KindString:
		switch s := v.(type) {
		case nil:
			return ""
		case string:
			return strings.TrimSpace(s)
		default:
			return fmt.Sprint(s)
		}
	case models.KindFloat:
		f := toFloat(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0.0
		}
		return f
	case models.KindInt:
		f := toFloat(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return int64(0)
		}
		return int64(math.Round(f))
	}
	return v
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// formatCell renders a typed value as text for CSV.
func formatCell(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}
