package main

import (
	"context"
	"testing"

	"github.com/jbantin/multiplayer-proto/protocol"
)

// queuedTypes drains the client's queue and returns the message types in order
func queuedTypes(t *testing.T, c *Client) []string {
	t.Helper()
	var out []string
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			f, err := protocol.Unmarshal(c.enc, b)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, f.T)
		default:
			return out
		}
	}
}

func TestHubAddBeforeFirstCommand(t *testing.T) {
	g := newTestGame(nil)
	hub := NewHub(g)
	c := NewClient(hub, nil, "127.0.0.1", protocol.JSON, 32)

	if !hub.Add(c) {
		t.Fatal("add should succeed on a running hub")
	}
	// a join handled right after the upgrade must find the session
	c.handleMessage(protocol.JSON, mustFrame(t, protocol.JSON, protocol.MsgJoin, protocol.JoinMsg{Username: "ann"}))

	got := queuedTypes(t, c)
	want := []string{
		protocol.MsgMap, protocol.MsgPlayers, protocol.MsgProjectiles, protocol.MsgEnemies,
		protocol.MsgWelcome, protocol.MsgPlayers, protocol.MsgProjectiles, protocol.MsgEnemies,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestHubRemoveRightAfterAdd(t *testing.T) {
	g := newTestGame(nil)
	hub := NewHub(g)
	c := NewClient(hub, nil, "127.0.0.1", protocol.JSON, 32)

	hub.Add(c)
	c.handleMessage(protocol.JSON, mustFrame(t, protocol.JSON, protocol.MsgJoin, protocol.JoinMsg{}))
	hub.Remove(c)
	hub.Remove(c)

	if hub.ClientCount() != 0 || g.SessionCount() != 0 || g.PlayerCount() != 0 {
		t.Errorf("expected nothing left, got %d clients, %d sessions, %d players",
			hub.ClientCount(), g.SessionCount(), g.PlayerCount())
	}
	if !c.closed {
		t.Error("removed client should be closed")
	}
}

func TestHubShutdown(t *testing.T) {
	g := newTestGame(nil)
	hub := NewHub(g)
	live := NewClient(hub, nil, "127.0.0.1", protocol.JSON, 32)
	hub.Add(live)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	if !live.closed || hub.ClientCount() != 0 {
		t.Error("shutdown should close every client")
	}

	late := NewClient(hub, nil, "127.0.0.1", protocol.JSON, 32)
	if hub.Add(late) {
		t.Error("add after shutdown should be refused")
	}
	if g.SessionCount() != 1 {
		t.Errorf("refused client should not reach the game, %d sessions", g.SessionCount())
	}

	// read pumps exiting after shutdown must not block
	for i := 0; i < 200; i++ {
		hub.Remove(live)
	}
	if g.SessionCount() != 0 {
		t.Errorf("expected the session removed, got %d", g.SessionCount())
	}
}

func TestHubConnectionLimits(t *testing.T) {
	hub := NewHub(newTestGame(nil))
	hub.SetLimits(2, 3)

	hub.TrackConnect("a")
	hub.TrackConnect("a")
	if hub.CanAccept("a") {
		t.Error("per-address limit not enforced")
	}
	hub.TrackConnect("b")
	if hub.CanAccept("c") {
		t.Error("total limit not enforced")
	}
	hub.TrackDisconnect("a")
	if !hub.CanAccept("a") || hub.TotalConns() != 2 {
		t.Errorf("disconnect should free a slot, total %d", hub.TotalConns())
	}
}
