package bridge

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/surfbridge/surf/internal/codec"
	"github.com/surfbridge/surf/internal/config"
	"github.com/surfbridge/surf/internal/protocol"
)

// pipeUpstream is an in-memory Upstream for tests: a pair of io.Pipes
// wired so the test can play the role of the router process.
type pipeUpstream struct {
	reader      *codec.Reader
	writer      *codec.Writer
	routerRead  *codec.Reader // what the fake router reads (daemon's writes)
	routerWrite *codec.Writer // what the fake router writes (daemon's reads)
	restarted   chan struct{}
}

func newPipeUpstream(t *testing.T) *pipeUpstream {
	daemonIn, routerOut := net.Pipe()
	routerIn, daemonOut := net.Pipe()
	t.Cleanup(func() {
		daemonIn.Close()
		routerOut.Close()
		routerIn.Close()
		daemonOut.Close()
	})
	return &pipeUpstream{
		reader:      codec.NewReader(daemonIn),
		writer:      codec.NewWriter(daemonOut),
		routerRead:  codec.NewReader(routerIn),
		routerWrite: codec.NewWriter(routerOut),
		restarted:   make(chan struct{}, 1),
	}
}

func (p *pipeUpstream) Reader() *codec.Reader { return p.reader }
func (p *pipeUpstream) Writer() *codec.Writer { return p.writer }
func (p *pipeUpstream) Close() error          { return nil }
func (p *pipeUpstream) Restart(ctx context.Context) (Upstream, error) {
	select {
	case p.restarted <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Socket.Path = filepath.Join(t.TempDir(), "surf.sock")
	return cfg
}

func dialClient(t *testing.T, path string) net.Conn {
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", path)
		if err == nil {
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	return conn
}

func TestDaemonRoundTripsRequestThroughUpstream(t *testing.T) {
	cfg := testConfig(t)
	up := newPipeUpstream(t)
	d := New(cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	// fake router: echo back a success response with the id it received
	go func() {
		msg, err := up.routerRead.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			return
		}
		resp := protocol.OK(req.ID, protocol.Text("pong"))
		data, _ := json.Marshal(resp)
		_ = up.routerWrite.WriteMessage(data)
	}()

	conn := dialClient(t, cfg.Socket.Path)
	defer conn.Close()

	reqLine, _ := json.Marshal(protocol.Request{
		Type:   "tool_request",
		Params: protocol.ToolParams{Tool: "tabs.list"},
		ID:     "client-1",
	})
	_, err := conn.Write(append(reqLine, '\n'))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp protocol.Response
	dec := json.NewDecoder(conn)
	require.NoError(t, dec.Decode(&resp))

	require.Equal(t, "client-1", resp.ID)
	require.False(t, resp.IsError())
	require.Equal(t, "pong", resp.Result.Content[0].Text)
}

func TestDaemonSynthesizesTimeoutError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Router.DefaultTimeout = 50 * time.Millisecond
	up := newPipeUpstream(t)
	d := New(cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	go func() {
		// fake router receives but never replies
		_, _ = up.routerRead.ReadMessage()
	}()

	conn := dialClient(t, cfg.Socket.Path)
	defer conn.Close()

	reqLine, _ := json.Marshal(protocol.Request{
		Type:   "tool_request",
		Params: protocol.ToolParams{Tool: "tabs.list"},
		ID:     "client-2",
	})
	_, err := conn.Write(append(reqLine, '\n'))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp protocol.Response
	dec := json.NewDecoder(conn)
	require.NoError(t, dec.Decode(&resp))

	require.Equal(t, "client-2", resp.ID)
	require.True(t, resp.IsError())
	require.Equal(t, "timeout", resp.Error.Kind)
}

func TestDaemonPurgesRegistryOnClientDisconnect(t *testing.T) {
	cfg := testConfig(t)
	up := newPipeUpstream(t)
	d := New(cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	received := make(chan string, 1)
	go func() {
		msg, err := up.routerRead.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.Request
		_ = json.Unmarshal(msg, &req)
		received <- req.ID
	}()

	conn := dialClient(t, cfg.Socket.Path)
	reqLine, _ := json.Marshal(protocol.Request{
		Type:   "tool_request",
		Params: protocol.ToolParams{Tool: "tabs.list"},
		ID:     "client-3",
	})
	_, err := conn.Write(append(reqLine, '\n'))
	require.NoError(t, err)

	var upstreamID string
	select {
	case upstreamID = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("router never received forwarded request")
	}
	conn.Close()

	require.Eventually(t, func() bool {
		d.reg.mu.Lock()
		_, ok := d.reg.entries[upstreamID]
		d.reg.mu.Unlock()
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "registry entry should be purged after client disconnect")
}

func TestDaemonSecondInstanceExitsCleanly(t *testing.T) {
	cfg := testConfig(t)
	up1 := newPipeUpstream(t)
	d1 := New(cfg, up1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d1.Run(ctx) }()

	go func() {
		for {
			msg, err := up1.routerRead.ReadMessage()
			if err != nil {
				return
			}
			var req protocol.Request
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			resp := protocol.OK(req.ID, protocol.Text("pong"))
			data, _ := json.Marshal(resp)
			_ = up1.routerWrite.WriteMessage(data)
		}
	}()

	probe := dialClient(t, cfg.Socket.Path) // ensure socket exists and answers
	defer probe.Close()

	up2 := newPipeUpstream(t)
	d2 := New(cfg, up2)
	err := d2.Run(context.Background())
	require.NoError(t, err)
}

func TestDaemonSerializesSiteKeyedToolUntilReplyDelivered(t *testing.T) {
	cfg := testConfig(t)
	cfg.Serialize.SiteKeyedTools = []string{"ai.ask"}
	up := newPipeUpstream(t)
	d := New(cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	// forwarded captures every request the moment it reaches the router,
	// decoupled from reply timing below — this is what lets the test
	// distinguish "forwarded before its predecessor's reply" (the bug)
	// from "forwarded only after the predecessor's reply is delivered"
	// (the fix), rather than just reflecting net.Pipe's own blocking.
	forwarded := make(chan protocol.Request, 2)
	go func() {
		for {
			msg, err := up.routerRead.ReadMessage()
			if err != nil {
				return
			}
			var req protocol.Request
			_ = json.Unmarshal(msg, &req)
			forwarded <- req
		}
	}()

	conn1 := dialClient(t, cfg.Socket.Path)
	defer conn1.Close()
	conn2 := dialClient(t, cfg.Socket.Path)
	defer conn2.Close()

	req1, _ := json.Marshal(protocol.Request{Type: "tool_request", Params: protocol.ToolParams{Tool: "ai.ask"}, ID: "first"})
	_, err := conn1.Write(append(req1, '\n'))
	require.NoError(t, err)

	var first protocol.Request
	select {
	case first = <-forwarded:
	case <-time.After(2 * time.Second):
		t.Fatal("router never received the first request")
	}
	// The daemon forwards its own rewritten upstream id, not the client's.
	require.Equal(t, d.idPrefix+"-1", first.ID)

	req2, _ := json.Marshal(protocol.Request{Type: "tool_request", Params: protocol.ToolParams{Tool: "ai.ask"}, ID: "second"})
	_, err = conn2.Write(append(req2, '\n'))
	require.NoError(t, err)

	select {
	case <-forwarded:
		t.Fatal("second request reached the router before the first's reply was delivered")
	case <-time.After(150 * time.Millisecond):
	}

	resp := protocol.OK(first.ID, protocol.Text("ok"))
	data, _ := json.Marshal(resp)
	require.NoError(t, up.routerWrite.WriteMessage(data))

	select {
	case second := <-forwarded:
		require.Equal(t, d.idPrefix+"-2", second.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("second request was never forwarded after the first's reply was delivered")
	}
}

func TestDaemonAnswersSelfPingWithoutForwardingUpstream(t *testing.T) {
	cfg := testConfig(t)
	up := newPipeUpstream(t)
	d := New(cfg, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	forwarded := make(chan struct{}, 1)
	go func() {
		if _, err := up.routerRead.ReadMessage(); err == nil {
			forwarded <- struct{}{}
		}
	}()

	conn := dialClient(t, cfg.Socket.Path)
	defer conn.Close()

	reqLine, _ := json.Marshal(protocol.Request{
		Type:   "tool_request",
		Params: protocol.ToolParams{Tool: pingTool},
		ID:     "ping-1",
	})
	_, err := conn.Write(append(reqLine, '\n'))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp protocol.Response
	dec := json.NewDecoder(conn)
	require.NoError(t, dec.Decode(&resp))

	require.Equal(t, "ping-1", resp.ID)
	require.False(t, resp.IsError())

	select {
	case <-forwarded:
		t.Fatal("self-ping should be answered by the daemon, not forwarded upstream")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
