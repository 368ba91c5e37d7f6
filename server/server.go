package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/jbantin/multiplayer-proto/protocol"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// RouteOptions carries the optional collaborators of the HTTP surface
type RouteOptions struct {
	ClientDir string
	PublicURL string
	SendQueue int
	Admin     *AdminAuth // nil disables /admin
	Analytics *Analytics // nil omits event stats
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log.Debugw("write json response", "err", err)
	}
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, opts RouteOptions) *http.ServeMux {
	mux := http.NewServeMux()

	if opts.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(opts.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint; ?enc=msgpack selects binary frames
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		hub.TrackConnect(ip)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.TrackDisconnect(ip)
			Log.Warnw("upgrade error", "addr", ip, "err", err)
			return
		}

		enc := protocol.ParseEncoding(r.URL.Query().Get("enc"))
		client := NewClient(hub, conn, ip, enc, opts.SendQueue)
		if !hub.Add(client) {
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"tick":     hub.game.CurrentTick(),
			"players":  hub.game.PlayerCount(),
			"sessions": hub.ClientCount(),
		})
	})

	// QR code of the join URL, for phones on the same network
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		target := opts.PublicURL
		if target == "" {
			target = "http://" + r.Host + "/"
		}
		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			Log.Errorw("qr encode", "url", target, "err", err)
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	mux.HandleFunc("/protocol/schema", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, protocol.Schemas())
	})

	if opts.Admin != nil {
		mux.HandleFunc("POST /admin/login", adminLoginHandler(opts.Admin))
		mux.Handle("GET /admin/stats", opts.Admin.Middleware(adminStatsHandler(hub, opts.Analytics)))
	}

	return mux
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func adminLoginHandler(auth *AdminAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminLoginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		token, err := auth.Login(req.Username, req.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrRateLimited):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		case errors.Is(err, ErrInvalidCredentials):
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		case err != nil:
			Log.Errorw("admin login", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func adminStatsHandler(hub *Hub, analytics *Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "bad days", http.StatusBadRequest)
				return
			}
			days = n
		}

		resp := map[string]any{
			"metrics":  hub.game.Metrics().Snapshot(),
			"players":  hub.game.PlayerCount(),
			"sessions": hub.ClientCount(),
			"conns":    hub.TotalConns(),
		}
		if analytics != nil {
			counts, err := analytics.EventCounts(days)
			if err != nil {
				Log.Errorw("event counts", "err", err)
			}
			top, err := analytics.TopShooters(10)
			if err != nil {
				Log.Errorw("top shooters", "err", err)
			}
			resp["events"] = counts
			resp["top_shooters"] = top
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
