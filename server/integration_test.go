package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jbantin/multiplayer-proto/protocol"
	"golang.org/x/crypto/bcrypt"
)

// ---------- helpers ----------

type testServer struct {
	srv   *httptest.Server
	hub   *Hub
	game  *Game
	wsURL string
}

// startTestServer spins up an httptest.Server with a running hub and game loop
func startTestServer(t *testing.T, opts RouteOptions) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)
	if opts.ClientDir == "" {
		opts.ClientDir = tmpDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	game := NewGame(DefaultTileMap(), 1)
	hub := NewHub(game)
	go hub.Run(ctx)
	go game.Run(ctx, 5*time.Millisecond)

	srv := httptest.NewServer(SetupRoutes(hub, opts))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testServer{
		srv:   srv,
		hub:   hub,
		game:  game,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

// dialWS opens a WebSocket connection to the test server
func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads one message and decodes its envelope in the encoding the message type implies
func readFrame(t *testing.T, conn *websocket.Conn) protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	enc := protocol.JSON
	if msgType == websocket.BinaryMessage {
		enc = protocol.MsgPack
	}
	f, err := protocol.Unmarshal(enc, raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f
}

// readUntil skips frames until one of type typ arrives
func readUntil(t *testing.T, conn *websocket.Conn, typ string) protocol.Frame {
	t.Helper()
	for i := 0; i < 500; i++ {
		if f := readFrame(t, conn); f.T == typ {
			return f
		}
	}
	t.Fatalf("no %s frame received", typ)
	return protocol.Frame{}
}

// sendMsg sends a typed message in the given encoding
func sendMsg(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, msgType string, data interface{}) {
	t.Helper()
	raw, err := protocol.Marshal(enc, msgType, data)
	if err != nil {
		t.Fatal(err)
	}
	wsType := websocket.TextMessage
	if enc.Binary() {
		wsType = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(wsType, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// join sends a join and returns the session id from the welcome
func join(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, name string) string {
	t.Helper()
	sendMsg(t, conn, enc, protocol.MsgJoin, protocol.JoinMsg{Username: name})
	welcome, err := protocol.DecodePayload[protocol.WelcomeMsg](readUntil(t, conn, protocol.MsgWelcome))
	if err != nil {
		t.Fatal(err)
	}
	if welcome.ID == "" {
		t.Fatal("welcome without id")
	}
	return welcome.ID
}

// waitForPlayer reads snapshots until cond holds for the given player
func waitForPlayer(t *testing.T, conn *websocket.Conn, id string, cond func(protocol.PlayerState) bool) protocol.PlayerState {
	t.Helper()
	for i := 0; i < 200; i++ {
		players, err := protocol.DecodePayload[protocol.PlayersSnapshot](readUntil(t, conn, protocol.MsgPlayers))
		if err != nil {
			t.Fatal(err)
		}
		if p, ok := players[id]; ok && cond(p) {
			return p
		}
	}
	t.Fatalf("player %s never reached the expected state", id)
	return protocol.PlayerState{}
}

// ---------- WebSocket flow ----------

func TestConnectReceivesMapFirst(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	c := dialWS(t, ts.wsURL)

	f := readFrame(t, c)
	if f.T != protocol.MsgMap {
		t.Fatalf("expected map first, got %s", f.T)
	}
	m, err := protocol.DecodePayload[protocol.MapSnapshot](f)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Layers) != 4 || m.Cols != MapCols {
		t.Errorf("unexpected map: %d layers, %d cols", len(m.Layers), m.Cols)
	}

	// spectators receive state before joining
	readUntil(t, c, protocol.MsgEnemies)
}

func TestJoinAndMoveJSON(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	c := dialWS(t, ts.wsURL)

	id := join(t, c, protocol.JSON, "Tester")
	start := waitForPlayer(t, c, id, func(p protocol.PlayerState) bool { return true })
	if start.Username != "Tester" || start.Health != PlayerMaxHealth {
		t.Errorf("unexpected player %+v", start)
	}

	sendMsg(t, c, protocol.JSON, protocol.MsgMove, protocol.MoveMsg{Dir: "up", Seq: 1})
	moved := waitForPlayer(t, c, id, func(p protocol.PlayerState) bool { return p.Seq == 1 })
	if moved.Y > start.Y {
		t.Errorf("moving up should not increase y: %f -> %f", start.Y, moved.Y)
	}
}

func TestJoinMsgPack(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	c := dialWS(t, ts.wsURL+"?enc=msgpack")

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, _, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary frames, got type %d", msgType)
	}

	id := join(t, c, protocol.MsgPack, "Packer")
	sendMsg(t, c, protocol.MsgPack, protocol.MsgAim, protocol.AimMsg{Angle: 1.25})
	p := waitForPlayer(t, c, id, func(p protocol.PlayerState) bool { return p.Angle == 1.25 })
	if p.Username != "Packer" {
		t.Errorf("unexpected username %q", p.Username)
	}
}

func TestMalformedKeepsConnection(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	c := dialWS(t, ts.wsURL)

	c.WriteMessage(websocket.TextMessage, []byte("{not json"))
	sendMsg(t, c, protocol.JSON, "teleport", map[string]int{"x": 1})
	sendMsg(t, c, protocol.JSON, protocol.MsgMove, protocol.MoveMsg{Dir: "up", Seq: 1}) // before join

	join(t, c, protocol.JSON, "Survivor")
	if got := ts.game.Metrics().Snapshot()["malformed_messages"]; got != int64(2) {
		t.Errorf("expected 2 malformed messages, got %v", got)
	}
}

func TestDisconnectRemovesPlayerOverWS(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	a := dialWS(t, ts.wsURL)
	b := dialWS(t, ts.wsURL)

	idA := join(t, a, protocol.JSON, "A")
	idB := join(t, b, protocol.JSON, "B")
	waitForPlayer(t, b, idA, func(protocol.PlayerState) bool { return true })

	a.Close()
	for i := 0; i < 200; i++ {
		players, err := protocol.DecodePayload[protocol.PlayersSnapshot](readUntil(t, b, protocol.MsgPlayers))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := players[idA]; !ok {
			if _, ok := players[idB]; !ok {
				t.Fatal("remaining player vanished")
			}
			return
		}
	}
	t.Fatal("disconnected player still in snapshots")
}

func TestConnectionLimit(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	ts.hub.SetLimits(1, 10)

	dialWS(t, ts.wsURL)
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err == nil {
		t.Fatal("second connection from the same address should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
}

// ---------- HTTP surface ----------

func TestHealthz(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health %v", body)
	}
}

func TestCacheControlHeader(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	resp, err := http.Get(ts.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control: no-cache, got %q", cc)
	}
}

func TestQRCode(t *testing.T) {
	ts := startTestServer(t, RouteOptions{PublicURL: "http://192.168.1.20:3000/"})
	resp, err := http.Get(ts.srv.URL + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("response is not a PNG")
	}
}

func TestProtocolSchema(t *testing.T) {
	ts := startTestServer(t, RouteOptions{})
	resp, err := http.Get(ts.srv.URL + "/protocol/schema")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var schemas map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&schemas); err != nil {
		t.Fatal(err)
	}
	for _, typ := range []string{protocol.MsgMove, protocol.MsgPlayers, protocol.MsgHit} {
		if _, ok := schemas[typ]; !ok {
			t.Errorf("schema for %s missing", typ)
		}
	}
}

func TestAdminLoginAndStats(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	admin, err := NewAdminAuth("admin", string(hash), "secret")
	if err != nil {
		t.Fatal(err)
	}
	analytics := NewAnalytics(openTestDB(t))
	t.Cleanup(analytics.Stop)
	ts := startTestServer(t, RouteOptions{Admin: admin, Analytics: analytics})

	resp, err := http.Get(ts.srv.URL + "/admin/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.srv.URL+"/admin/login", "application/json", strings.NewReader(`{"username":"admin","password":"bad"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad password, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.srv.URL+"/admin/login", "application/json", strings.NewReader(`{"username":"admin","password":"pw"}`))
	if err != nil {
		t.Fatal(err)
	}
	var login map[string]string
	json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if login["token"] == "" {
		t.Fatalf("expected a token, got status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/admin/stats?days=1", nil)
	req.Header.Set("Authorization", "Bearer "+login["token"])
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"metrics", "players", "sessions", "events", "top_shooters"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %s", key)
		}
	}
}
