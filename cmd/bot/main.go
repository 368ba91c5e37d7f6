// Command bot is a headless client for load and latency testing. It joins the
// arena, wanders and shoots at random, and keeps a predicted position
// reconciled against the server's snapshots the way a browser client does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jbantin/multiplayer-proto/predict"
	"github.com/jbantin/multiplayer-proto/protocol"
	"go.uber.org/zap"
)

const (
	playerSpeed  = 3.0 // pixels per move command, must match the server
	renderEvery  = time.Second / 60
	reportEvery  = 5 * time.Second
	correctionPx = 0.5
)

var directions = []protocol.Direction{protocol.DirUp, protocol.DirDown, protocol.DirLeft, protocol.DirRight}

type options struct {
	url       string
	enc       protocol.Encoding
	name      string
	moveEvery time.Duration
	fireEvery time.Duration
	duration  time.Duration
	seed      uint64
}

func main() {
	var (
		opts  options
		enc   string
		debug bool
	)
	flag.StringVar(&opts.url, "url", "ws://localhost:3000/ws", "server websocket URL")
	flag.StringVar(&enc, "enc", "json", "frame encoding: json or msgpack")
	flag.StringVar(&opts.name, "name", "bot", "display name")
	flag.DurationVar(&opts.moveEvery, "move-every", 50*time.Millisecond, "interval between move commands")
	flag.DurationVar(&opts.fireEvery, "fire-every", time.Second, "interval between shots (0: never)")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this long (0: until interrupted)")
	flag.Uint64Var(&opts.seed, "seed", 0, "random seed (0: time based)")
	flag.BoolVar(&debug, "debug", false, "log every correction")
	flag.Parse()
	opts.enc = protocol.ParseEncoding(enc)
	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}

	logger, err := newLogger(debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if err := run(ctx, log, opts); err != nil {
		log.Errorw("bot stopped", "err", err)
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// bot is the client-side state shared between the read loop and the send loop
type bot struct {
	log *zap.SugaredLogger

	mu          sync.Mutex
	id          string
	pred        *predict.Predictor
	remote      *predict.Interpolator
	snapshots   int
	corrections int
	hits        int
}

func run(ctx context.Context, log *zap.SugaredLogger, opts options) error {
	u, err := url.Parse(opts.url)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if opts.enc.Binary() {
		q := u.Query()
		q.Set("enc", opts.enc.String())
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()
	log.Infow("connected", "url", u.String(), "encoding", opts.enc.String())

	b := &bot{
		log:    log,
		pred:   predict.NewPredictor(),
		remote: predict.NewInterpolator(),
	}

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop(conn, opts.enc) }()

	if err := send(conn, opts.enc, protocol.MsgJoin, protocol.JoinMsg{Username: opts.name}); err != nil {
		return err
	}
	err = b.sendLoop(ctx, conn, opts)

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	b.report()
	if err != nil {
		return err
	}
	select {
	case err := <-readErr:
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return err
		}
	case <-time.After(time.Second):
	}
	return nil
}

// sendLoop issues moves and shots and steps the display until ctx is done.
// It is the only writer on conn.
func (b *bot) sendLoop(ctx context.Context, conn *websocket.Conn, opts options) error {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed>>1|1))

	move := time.NewTicker(opts.moveEvery)
	defer move.Stop()
	render := time.NewTicker(renderEvery)
	defer render.Stop()
	report := time.NewTicker(reportEvery)
	defer report.Stop()
	var fire <-chan time.Time
	if opts.fireEvery > 0 {
		t := time.NewTicker(opts.fireEvery)
		defer t.Stop()
		fire = t.C
	}

	dir := directions[0]
	runLeft := 0
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-move.C:
			if !b.joined() {
				continue
			}
			if runLeft == 0 {
				dir = directions[rng.IntN(len(directions))]
				runLeft = 5 + rng.IntN(20)
			}
			runLeft--
			dx, dy := dir.Delta()
			b.mu.Lock()
			in := b.pred.Apply(dx*playerSpeed, dy*playerSpeed)
			b.mu.Unlock()
			if err := send(conn, opts.enc, protocol.MsgMove, protocol.MoveMsg{Dir: string(dir), Seq: in.Seq}); err != nil {
				return err
			}

		case <-fire:
			if !b.joined() {
				continue
			}
			angle := rng.Float64()*2*math.Pi - math.Pi
			b.mu.Lock()
			pos := b.pred.Displayed()
			b.mu.Unlock()
			if err := send(conn, opts.enc, protocol.MsgAim, protocol.AimMsg{Angle: angle}); err != nil {
				return err
			}
			if err := send(conn, opts.enc, protocol.MsgFire, protocol.FireMsg{X: pos.X, Y: pos.Y, Angle: angle}); err != nil {
				return err
			}

		case <-render.C:
			b.mu.Lock()
			b.pred.Step()
			b.remote.Step()
			b.mu.Unlock()

		case <-report.C:
			b.report()
		}
	}
}

// readLoop decodes frames until the connection fails
func (b *bot) readLoop(conn *websocket.Conn, enc protocol.Encoding) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f, err := protocol.Unmarshal(enc, raw)
		if err != nil {
			b.log.Warnw("undecodable frame", "err", err)
			continue
		}
		if err := b.handle(f); err != nil {
			b.log.Warnw("bad payload", "type", f.T, "err", err)
		}
	}
}

func (b *bot) handle(f protocol.Frame) error {
	switch f.T {
	case protocol.MsgWelcome:
		msg, err := protocol.DecodePayload[protocol.WelcomeMsg](f)
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.id = msg.ID
		b.mu.Unlock()
		b.log.Infow("joined", "session", msg.ID, "tick", msg.Tick)

	case protocol.MsgPlayers:
		players, err := protocol.DecodePayload[protocol.PlayersSnapshot](f)
		if err != nil {
			return err
		}
		b.applyPlayers(players)

	case protocol.MsgHit:
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()

	case protocol.MsgMap, protocol.MsgProjectiles, protocol.MsgEnemies:
		// not simulated by the bot

	default:
		return errors.New("unknown message type")
	}
	return nil
}

// applyPlayers reconciles the local player and feeds the others to the interpolator
func (b *bot) applyPlayers(players protocol.PlayersSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots++

	seen := make(map[string]bool, len(players))
	for id, p := range players {
		pos := predict.Vec{X: p.X, Y: p.Y}
		if id == b.id {
			before := b.pred.Target()
			b.pred.Reconcile(pos, p.Seq)
			after := b.pred.Target()
			if d := math.Hypot(after.X-before.X, after.Y-before.Y); d > correctionPx && b.snapshots > 1 {
				b.corrections++
				b.log.Debugw("prediction corrected", "by", d, "acked", p.Seq, "pending", len(b.pred.Pending()))
			}
			continue
		}
		seen[id] = true
		b.remote.Update(id, pos)
	}
	b.remote.Retain(seen)
}

func (b *bot) joined() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id != ""
}

func (b *bot) report() {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos := b.pred.Displayed()
	b.log.Infow("status",
		"session", b.id,
		"x", pos.X,
		"y", pos.Y,
		"acked", b.pred.Acked(),
		"pending", len(b.pred.Pending()),
		"remote_players", len(b.remote.IDs()),
		"snapshots", b.snapshots,
		"corrections", b.corrections,
		"hits_seen", b.hits,
	)
}

func send(conn *websocket.Conn, enc protocol.Encoding, t string, data interface{}) error {
	raw, err := protocol.Marshal(enc, t, data)
	if err != nil {
		return err
	}
	msgType := websocket.TextMessage
	if enc.Binary() {
		msgType = websocket.BinaryMessage
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(msgType, raw); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}
