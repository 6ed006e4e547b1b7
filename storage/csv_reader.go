package storage

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"playstore-analytics/models"
)

// ReadCSVTable decodes a cleaned CSV dataset through a gota DataFrame.
// Numeric columns are read as floats and rounded into integer columns by
// assemble, so "10000" and "10000.0" load the same way.
func ReadCSVTable(r io.Reader) (*models.Table, error) {
	types := make(map[string]series.Type)
	for _, c := range models.FullSchema {
		if c.Kind == models.KindString {
			types[c.Name] = series.String
		} else {
			types[c.Name] = series.Float
		}
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("csv: read dataframe: %w", df.Err)
	}

	names := df.Names()
	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = df.Col(n)
	}

	return assemble(frame{
		names: names,
		rows:  df.Nrow(),
		value: func(col, row int) any {
			s := cols[col]
			if s.Type() == series.Float {
				return s.Elem(row).Float()
			}
			return s.Elem(row).String()
		},
	})
}
