package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"playstore-analytics/models"
)

// Format is a dataset file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(name), ".")); f {
	case FormatCSV, FormatParquet, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func encoderFor(f Format) (TableEncoder, error) {
	switch f {
	case FormatCSV:
		return csvEncoder{}, nil
	case FormatParquet:
		return parquetEncoder{}, nil
	case FormatXLSX:
		return xlsxEncoder{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w %q: %v", ErrOutputDirectory, dir, err)
	}
	return nil
}

// WriteTableFile writes apps to path in the format implied by its extension.
// The data goes to a temporary file in the same directory which is renamed
// over path only after a successful encode, so a failed write never leaves
// a truncated output behind.
func WriteTableFile(path string, apps []*models.App, schema models.Schema) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	enc, err := encoderFor(format)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: create temp file in %q: %w", format, dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	// bufio hides Close from encoders that would otherwise close the sink.
	bw := bufio.NewWriter(tmp)
	if err := enc.Encode(bw, apps, schema); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%s: flush %q: %w", format, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close %q: %w", format, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: rename into %q: %w", format, path, err)
	}
	committed = true
	return nil
}

// LoadOptions configures Load.
type LoadOptions struct {
	// DSN is used when the source is the literal "postgres".
	DSN string
	// Connect opens a database store; nil uses NewPostgresStore.
	Connect func(ctx context.Context, dsn string) (AppStore, error)
}

// IsDatabaseSource reports whether source names a database rather than a file.
func IsDatabaseSource(source string) bool {
	return source == "postgres" ||
		strings.HasPrefix(source, "postgres://") ||
		strings.HasPrefix(source, "postgresql://")
}

// Load reads a dataset into an immutable Table. Files are decoded by
// extension (csv, parquet, xlsx); database sources are fetched from the
// apps table.
func Load(ctx context.Context, source string, opts LoadOptions) (*models.Table, error) {
	if IsDatabaseSource(source) {
		dsn := source
		if source == "postgres" {
			dsn = opts.DSN
		}
		connect := opts.Connect
		if connect == nil {
			connect = func(ctx context.Context, dsn string) (AppStore, error) {
				return NewPostgresStore(ctx, dsn, nil)
			}
		}
		store, err := connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.FetchAll(ctx)
	}

	format, err := FormatFromPath(source)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, source)
		}
		return nil, fmt.Errorf("%s: open %q: %w", format, source, err)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return ReadCSVTable(bufio.NewReader(f))
	case FormatParquet:
		return ReadParquetTable(ctx, f)
	case FormatXLSX:
		return ReadXLSXTable(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
