package main

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtServerStart = "server_start"
	EvtPlayerJoin  = "player_join"
	EvtPlayerLeave = "player_leave"
	EvtPlayerKill  = "player_kill"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	SessionID string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics writes gameplay events to SQLite in batches from a background goroutine
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// eventData encodes event metadata, returning "" if it cannot be encoded
func eventData(fields map[string]any) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, sessionID, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full, drop event rather than blocking the game loop
	}
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain what is already queued
			for drained := false; !drained; {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					drained = true
				}
			}
			a.flush(batch)
			return
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		Log.Errorw("analytics: begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, session_id, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		Log.Errorw("analytics: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, sid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			Log.Errorw("analytics: insert", "type", evt.Type, "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		Log.Errorw("analytics: commit", "err", err)
	}
}

// --- Query methods for the admin API ---

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// TopShooters returns the sessions with the most kills
func (a *Analytics) TopShooters(limit int) ([]ShooterCount, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT json_extract(data, '$.shooter') AS shooter, COUNT(*) AS cnt
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
		GROUP BY shooter ORDER BY cnt DESC, shooter LIMIT ?
	`, EvtPlayerKill, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ShooterCount
	for rows.Next() {
		var sc ShooterCount
		if err := rows.Scan(&sc.ShooterID, &sc.Kills); err != nil {
			continue
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// ShooterCount holds the kill count of one shooter
type ShooterCount struct {
	ShooterID string `json:"shooter_id"`
	Kills     int    `json:"kills"`
}
