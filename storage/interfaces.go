package storage

import (
	"context"
	"errors"
	"io"

	"playstore-analytics/models"
)

var (
	// ErrInputNotFound is returned when a dataset file does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrOutputDirectory is returned when an output directory cannot be created.
	ErrOutputDirectory = errors.New("cannot create output directory")
	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMissingColumn is returned when a dataset lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// TableEncoder serialises records in one file format.
type TableEncoder interface {
	Encode(w io.Writer, apps []*models.App, schema models.Schema) error
}

// AppStore is the interface a database backend must satisfy.
type AppStore interface {
	Write(ctx context.Context, apps []*models.App, hasScore bool) error
	FetchAll(ctx context.Context) (*models.Table, error)
	Close() error
}

// Cache memoizes rendered outputs by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
