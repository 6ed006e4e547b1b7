package storage

import (
	"context"
	"testing"

	"playstore-analytics/models"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(4)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("empty cache should miss")
	}
	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Errorf("Get: got %q %v %v", v, ok, err)
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)
	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Set(ctx, "b", []byte("2"))
	_ = c.Set(ctx, "a", []byte("3"))
	_ = c.Set(ctx, "c", []byte("4"))

	if c.Len() != 2 {
		t.Errorf("len: got %d, want 2", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("a should have been evicted first")
	}
	if v, ok, _ := c.Get(ctx, "c"); !ok || string(v) != "4" {
		t.Errorf("c: got %q %v", v, ok)
	}
}

func TestPostgresRowConversion(t *testing.T) {
	apps := sampleApps()
	rows := toRows(apps, true)
	if len(rows) != len(apps) {
		t.Fatalf("rows: got %d", len(rows))
	}
	if !rows[0].PopularityScore.Valid || rows[0].PopularityScore.Float64 != apps[0].PopularityScore {
		t.Errorf("score not carried: %+v", rows[0].PopularityScore)
	}

	back, hasScore := fromRows(rows)
	if !hasScore {
		t.Error("expected score-bearing rows")
	}
	assertSameApps(t, models.NewTable(back, hasScore), apps, true)

	_, hasScore = fromRows(toRows(apps, false))
	if hasScore {
		t.Error("rows without score must not produce a score table")
	}
}
