package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"playstore-analytics/models"
)

// CSVWriter writes records to a CSV stream, header first.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	writer *csv.Writer
	schema models.Schema
}

// NewCSVWriter wraps w and writes the header row of schema.
func NewCSVWriter(w io.Writer, schema models.Schema) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Names()); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{writer: cw, schema: schema}, nil
}

// Write appends one row per record.
func (c *CSVWriter) Write(apps []*models.App) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := make([]string, len(c.schema))
	for _, a := range apps {
		for i, col := range c.schema {
			row[i] = formatCell(a.Value(col.Name))
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	return nil
}

// Close flushes buffered rows.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.writer.Error()
}

// csvEncoder adapts CSVWriter to TableEncoder.
type csvEncoder struct{}

func (csvEncoder) Encode(w io.Writer, apps []*models.App, schema models.Schema) error {
	cw, err := NewCSVWriter(w, schema)
	if err != nil {
		return err
	}
	if err := cw.Write(apps); err != nil {
		return err
	}
	return cw.Close()
}
