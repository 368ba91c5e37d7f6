package main

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAnalyticsFlushOnStop(t *testing.T) {
	a := NewAnalytics(openTestDB(t))

	a.Track(EvtServerStart, "", "")
	a.Track(EvtPlayerJoin, "s1", eventData(map[string]any{"username": "ann"}))
	a.Track(EvtPlayerJoin, "s2", eventData(map[string]any{"username": "bob"}))
	a.Track(EvtPlayerKill, "s2", eventData(map[string]any{"shooter": "s1", "victim": "bob"}))
	a.Track(EvtPlayerKill, "s1", eventData(map[string]any{"shooter": "s2", "victim": "ann"}))
	a.Track(EvtPlayerKill, "s2", eventData(map[string]any{"shooter": "s1", "victim": "bob"}))
	a.Track(EvtPlayerLeave, "s2", "")
	a.Stop()
	a.Stop()

	counts, err := a.EventCounts(1)
	if err != nil {
		t.Fatalf("event counts: %v", err)
	}
	want := map[string]int{EvtServerStart: 1, EvtPlayerJoin: 2, EvtPlayerKill: 3, EvtPlayerLeave: 1}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("%s: expected %d, got %d", typ, n, counts[typ])
		}
	}

	top, err := a.TopShooters(10)
	if err != nil {
		t.Fatalf("top shooters: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 shooters, got %+v", top)
	}
	if top[0].ShooterID != "s1" || top[0].Kills != 2 || top[1].ShooterID != "s2" || top[1].Kills != 1 {
		t.Errorf("unexpected ranking %+v", top)
	}
}

func TestAnalyticsBatchFlush(t *testing.T) {
	a := NewAnalytics(openTestDB(t))
	defer a.Stop()

	for i := 0; i < analyticsBatchSize; i++ {
		a.Track(EvtPlayerJoin, "s", "")
	}

	// a full batch is written without waiting for the flush interval
	deadline := 200
	for ; deadline > 0; deadline-- {
		counts, err := a.EventCounts(1)
		if err != nil {
			t.Fatal(err)
		}
		if counts[EvtPlayerJoin] == analyticsBatchSize {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch was not flushed")
}

func TestAnalyticsWithoutDB(t *testing.T) {
	a := NewAnalytics(nil)
	a.Track(EvtPlayerJoin, "s", "")
	a.Stop()

	counts, err := a.EventCounts(7)
	if err != nil || counts != nil {
		t.Errorf("expected nil counts without a db, got %v, %v", counts, err)
	}
	top, err := a.TopShooters(5)
	if err != nil || top != nil {
		t.Errorf("expected nil shooters without a db, got %v, %v", top, err)
	}
}

func TestOpenDBMigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		db, err := OpenDB(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		db.Close()
	}
}
