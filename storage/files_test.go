package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playstore-analytics/models"
)

func sampleApps() []*models.App {
	return []*models.App{
		{Name: "Candy Blast", Category: "GAME", Rating: 4.5, Reviews: 120000, Installs: 10000000, Type: "Free", ContentRating: "Everyone", PopularityScore: 0.81234},
		{Name: "Math Tutor", Category: "EDUCATION", Rating: 4.1, Reviews: 3200, Installs: 100000, Type: "Paid", ContentRating: "Everyone", Price: 2.99, PopularityScore: 0.5},
		{Name: "Chatter", Category: "SOCIAL", Rating: 3.9, Reviews: 0, Installs: 0, Type: "Free", ContentRating: "Teen", PopularityScore: 0.1},
	}
}

func assertSameApps(t *testing.T, got *models.Table, want []*models.App, withScore bool) {
	t.Helper()
	if got.Len() != len(want) {
		t.Fatalf("rows: got %d, want %d", got.Len(), len(want))
	}
	if got.HasScore() != withScore {
		t.Errorf("HasScore: got %v, want %v", got.HasScore(), withScore)
	}
	for i, w := range want {
		g := got.At(i)
		if g.Name != w.Name || g.Category != w.Category || g.Type != w.Type || g.ContentRating != w.ContentRating {
			t.Errorf("row %d text fields: got %+v, want %+v", i, g, w)
		}
		if g.Rating != w.Rating || g.Reviews != w.Reviews || g.Installs != w.Installs {
			t.Errorf("row %d numbers: got %v/%d/%d, want %v/%d/%d",
				i, g.Rating, g.Reviews, g.Installs, w.Rating, w.Reviews, w.Installs)
		}
		if withScore && g.PopularityScore != w.PopularityScore {
			t.Errorf("row %d score: got %v, want %v", i, g.PopularityScore, w.PopularityScore)
		}
	}
}

func TestRoundTripFormats(t *testing.T) {
	for _, ext := range []string{"csv", "xlsx", "parquet"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "clean_data_score."+ext)
			if err := WriteTableFile(path, sampleApps(), models.ScoreSchema); err != nil {
				t.Fatalf("write: %v", err)
			}
			tbl, err := Load(context.Background(), path, LoadOptions{})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			assertSameApps(t, tbl, sampleApps(), true)
		})
	}
}

func TestRoundTripWithoutScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.csv")
	if err := WriteTableFile(path, sampleApps(), models.BaseSchema); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertSameApps(t, tbl, sampleApps(), false)
}

func TestLoadIndexesUniqueValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.csv")
	if err := WriteTableFile(path, sampleApps(), models.ScoreSchema); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(context.Background(), path, LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cats := tbl.Categories()
	want := []string{"EDUCATION", "GAME", "SOCIAL"}
	if strings.Join(cats, ",") != strings.Join(want, ",") {
		t.Errorf("categories: got %v, want %v", cats, want)
	}
	if got := tbl.Types(); len(got) != 2 {
		t.Errorf("types: got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{})
	if !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load(context.Background(), "data.json", LoadOptions{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := "App,Category,Rating\nA,GAME,4.0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), path, LoadOptions{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadDatabaseSourceUsesConnector(t *testing.T) {
	var gotDSN string
	store := &fakeStore{table: models.NewTable(sampleApps(), true)}
	tbl, err := Load(context.Background(), "postgres", LoadOptions{
		DSN: "host=db",
		Connect: func(_ context.Context, dsn string) (AppStore, error) {
			gotDSN = dsn
			return store, nil
		},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotDSN != "host=db" {
		t.Errorf("dsn: got %q", gotDSN)
	}
	if tbl.Len() != 3 || !store.closed {
		t.Errorf("expected 3 rows and a closed store, got %d rows closed=%v", tbl.Len(), store.closed)
	}
}

func TestWriteTableFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := WriteTableFile(path, sampleApps(), models.FullSchema); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.csv" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents: %v", names)
	}
}

func TestWriteTableFileUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := WriteTableFile(path, sampleApps(), models.FullSchema)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("no output file expected")
	}
}

func TestWriteTableFileOutputDirectoryError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	err := WriteTableFile(filepath.Join(blocker, "sub", "out.csv"), sampleApps(), models.FullSchema)
	if !errors.Is(err, ErrOutputDirectory) {
		t.Errorf("expected ErrOutputDirectory, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{".csv", FormatCSV, true},
		{"PARQUET", FormatParquet, true},
		{"xlsx", FormatXLSX, true},
		{"json", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

type fakeStore struct {
	table  *models.Table
	closed bool
}

func (f *fakeStore) Write(context.Context, []*models.App, bool) error { return nil }
func (f *fakeStore) FetchAll(context.Context) (*models.Table, error) { return f.table, nil }
func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}
