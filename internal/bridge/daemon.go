// Package bridge implements the bridge daemon of spec §4.C: a
// multi-client local-socket server that multiplexes requests onto a
// single full-duplex framed pipe to the router process, correlating
// replies by id.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/codec"
	"github.com/surfbridge/surf/internal/config"
	"github.com/surfbridge/surf/internal/diagstatus"
	"github.com/surfbridge/surf/internal/obslog"
	"github.com/surfbridge/surf/internal/protocol"
)

// Upstream is the framed pipe to the router — either a spawned child
// process's stdio or, in --native-host mode, the daemon's own stdio.
type Upstream interface {
	Reader() *codec.Reader
	Writer() *codec.Writer
	// Restart is called after an EOF on Reader; it should block until a
	// new upstream is available and return the replacement, or an error
	// if the upstream can never come back (native-host mode).
	Restart(ctx context.Context) (Upstream, error)
	Close() error
}

// Daemon is the bridge daemon process.
type Daemon struct {
	cfgMu sync.RWMutex
	cfg   config.Config
	log   *zap.Logger

	listener net.Listener

	reg    *registry
	queues *siteQueues
	stats  *diagstatus.Stats

	upstream   Upstream
	upstreamMu sync.RWMutex
	writeCh    chan []byte

	connCounter uint64
	idCounter   atomic.Uint64
	idPrefix    string
}

func New(cfg config.Config, upstream Upstream) *Daemon {
	return &Daemon{
		cfg:      cfg,
		log:      obslog.For("bridge"),
		reg:      newRegistry(),
		queues:   newSiteQueues(),
		stats:    diagstatus.NewStats(),
		upstream: upstream,
		writeCh:  make(chan []byte, 256),
		idPrefix: fmt.Sprintf("u%d", time.Now().UnixNano()),
	}
}

// Stats exposes the daemon's request counters for the diagstatus server to
// serve at /stats.
func (d *Daemon) Stats() *diagstatus.Stats { return d.stats }

// Run binds the socket and runs the accept loop plus the upstream
// reader/writer supervisor until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.cfgMu.RLock()
	socketPath := d.cfg.Socket.Path
	d.cfgMu.RUnlock()
	l, err := tryBind(socketPath)
	if err != nil {
		if err == errAnotherInstance {
			d.log.Info("another instance owns the socket, exiting cleanly")
			return nil
		}
		return bridgeerr.Wrap(bridgeerr.Transport, "bind socket", err)
	}
	d.listener = l
	defer l.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.acceptLoop(gctx) })
	g.Go(func() error { return d.upstreamWriter(gctx) })
	g.Go(func() error { return d.upstreamReader(gctx) })

	err = g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (d *Daemon) acceptLoop(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = d.listener.Close()
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.log.Warn("accept error", zap.Error(err))
			continue
		}
		id := atomic.AddUint64(&d.connCounter, 1)
		cc := newClientConn(id, conn)
		go d.serveClient(ctx, cc)
	}
}

func (d *Daemon) serveClient(ctx context.Context, cc *clientConn) {
	d.stats.ActiveClients.Add(1)
	defer func() {
		_ = cc.Close()
		d.reg.purgeConn(cc)
		d.stats.ActiveClients.Add(-1)
	}()

	dec := json.NewDecoder(cc.conn)
	for {
		var req protocol.Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				d.log.Debug("client decode error", zap.Error(err))
			}
			return
		}
		go d.handleRequest(ctx, cc, req)
	}
}

// handleRequest rewrites the client id, registers a pending entry,
// optionally waits its turn in a per-site queue, and forwards the
// request upstream. The original id is restored on reply or timeout.
func (d *Daemon) handleRequest(ctx context.Context, cc *clientConn, req protocol.Request) {
	d.stats.RequestsTotal.Add(1)

	if req.Params.Tool == pingTool {
		// Answered directly so the singleton probe in tryBind reflects
		// this daemon's own liveness, not the router's — forwarding it
		// upstream would make the probe depend on the router process and
		// still read as "answered" off an unrelated unknown-tool error.
		resp := protocol.OK(req.ID, protocol.Text("pong"))
		_ = cc.writeJSON(resp)
		return
	}

	upstreamID := d.nextUpstreamID()
	timeout := d.timeoutFor(req.Params.Tool)

	p := &pendingRequest{
		upstreamID: upstreamID,
		conn:       cc,
		originalID: req.ID,
		tool:       req.Params.Tool,
		deadline:   time.Now().Add(timeout),
	}
	p.timer = time.AfterFunc(timeout, func() { d.onTimeout(upstreamID) })
	d.reg.put(p)

	if d.isSerialized(req.Params.Tool) {
		// Held until the reply is delivered or the request times out
		// (finishWithError/deliver), not until the frame is forwarded —
		// the site-keyed tools this guards drive a browser tab through a
		// long UI sequence that outlives the write to upstream.
		release := d.queues.acquire(siteKeyFor(req.Params.Tool, req.Params.TabID, ""))
		if !d.reg.attachRelease(upstreamID, release) {
			// p already finished (timeout or connection close) while this
			// request waited for its queue turn.
			release()
			return
		}
	}

	upstreamReq := req
	upstreamReq.ID = upstreamID
	data, err := json.Marshal(upstreamReq)
	if err != nil {
		d.finishWithError(upstreamID, bridgeerr.Protocol, "malformed request")
		return
	}

	d.upstreamMu.RLock()
	w := d.upstream.Writer()
	d.upstreamMu.RUnlock()

	if err := w.WriteMessage(data); err != nil {
		d.finishWithError(upstreamID, bridgeerr.Transport, "native host unavailable")
	}
}

func (d *Daemon) isSerialized(tool string) bool {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	for _, t := range d.cfg.Serialize.SiteKeyedTools {
		if t == tool {
			return true
		}
	}
	return false
}

func (d *Daemon) timeoutFor(tool string) time.Duration {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	if t, ok := d.cfg.Router.PerToolTimeout[tool]; ok {
		return t
	}
	if d.cfg.Router.DefaultTimeout > 0 {
		return d.cfg.Router.DefaultTimeout
	}
	return 30 * time.Second
}

// UpdateConfig swaps in a freshly loaded config, applied live to every
// subsequent request. The socket listener and upstream pipe are
// untouched — only timeout/serialisation knobs change, per the
// hot-reload contract documented in SPEC_FULL.md.
func (d *Daemon) UpdateConfig(cfg config.Config) {
	d.cfgMu.Lock()
	d.cfg = cfg
	d.cfgMu.Unlock()
}

func (d *Daemon) nextUpstreamID() string {
	return fmt.Sprintf("%s-%d", d.idPrefix, d.idCounter.Add(1))
}

// onTimeout synthesises a timeout error reply, per §4.C. A late upstream
// reply for this id will find nothing in the registry and is dropped by
// upstreamReader's call to deliver.
func (d *Daemon) onTimeout(upstreamID string) {
	d.finishWithError(upstreamID, bridgeerr.Timeout, "deadline expired before reply")
}

func (d *Daemon) finishWithError(upstreamID string, kind bridgeerr.Kind, msg string) {
	p, ok := d.reg.take(upstreamID)
	if !ok {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.release != nil {
		p.release()
	}
	d.stats.RequestsFailed.Add(1)
	resp := protocol.Fail(p.originalID, string(kind), protocol.Text(msg))
	_ = p.conn.writeJSON(resp)
}

// upstreamWriter drains writeCh; enqueue (via Writer().WriteMessage) is
// the only suspension point for senders, per §5. Presently requests are
// written directly from handleRequest via the upstream's Writer, which
// already serialises via codec.Writer's internal mutex. No code path
// sends on writeCh at present; the self-ping is answered directly on
// the client connection and never reaches upstream.
func (d *Daemon) upstreamWriter(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-d.writeCh:
			d.upstreamMu.RLock()
			w := d.upstream.Writer()
			d.upstreamMu.RUnlock()
			if err := w.WriteMessage(frame); err != nil {
				d.log.Warn("upstream write failed", zap.Error(err))
			}
		}
	}
}

// upstreamReader owns stdin (there is exactly one reader task, per §4.C)
// and on EOF aborts every in-flight request before awaiting a
// replacement upstream.
func (d *Daemon) upstreamReader(ctx context.Context) error {
	for {
		d.upstreamMu.RLock()
		r := d.upstream.Reader()
		d.upstreamMu.RUnlock()

		msg, err := r.ReadMessage()
		if err != nil {
			d.log.Warn("upstream disconnected", zap.Error(err))
			d.abortAllInFlight()

			next, rerr := d.upstream.Restart(ctx)
			if rerr != nil {
				return rerr
			}
			d.stats.UpstreamRestarts.Add(1)
			d.upstreamMu.Lock()
			d.upstream = next
			d.upstreamMu.Unlock()
			continue
		}

		var resp protocol.Response
		if err := json.Unmarshal(msg, &resp); err != nil {
			d.log.Warn("malformed upstream message, dropping", zap.Error(err))
			continue
		}
		d.deliver(resp)
	}
}

func (d *Daemon) deliver(resp protocol.Response) {
	p, ok := d.reg.take(resp.ID)
	if !ok {
		// Connection closed, timed out, or a duplicate reply for an id
		// already delivered — dropped silently per §4.C/§8.
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.release != nil {
		p.release()
	}
	if resp.IsError() {
		d.stats.RequestsFailed.Add(1)
	}
	resp.ID = p.originalID
	_ = p.conn.writeJSON(resp)
}

func (d *Daemon) abortAllInFlight() {
	for _, p := range d.reg.drainAll() {
		if p.timer != nil {
			p.timer.Stop()
		}
		if p.release != nil {
			p.release()
		}
		d.stats.RequestsFailed.Add(1)
		resp := protocol.Fail(p.originalID, string(bridgeerr.Transport), protocol.Text("native host disconnected"))
		_ = p.conn.writeJSON(resp)
	}
}
