// Package router implements the extension's role from spec §4.D: a tool
// dispatch table, a debugger-session pool, the debugger/scripting
// fallback policy, accessibility element references, a screenshot
// cache, and the network-capture feed. It plays the part a real browser
// extension's background page would play, driving Chromium over the
// Chrome DevTools Protocol via go-rod instead of chrome.debugger
// (SPEC_FULL.md Open Question resolution #1).
package router

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/capture"
	"github.com/surfbridge/surf/internal/codec"
	"github.com/surfbridge/surf/internal/obslog"
	"github.com/surfbridge/surf/internal/protocol"
)

// Router owns the browser, the tab pool, and the reply stream back to
// the daemon over the framed pipe.
type Router struct {
	pool            *Pool
	screenshots     *ScreenshotCache
	captureStore    *capture.Store
	navTimeout      time.Duration
	autoWaitTimeout time.Duration

	log *zap.Logger

	tabLocks   sync.Map // tabId -> *sync.Mutex, serialises input per §5
}

func New(store *capture.Store, navTimeout, autoWaitTimeout time.Duration, screenshotCapBytes int64) *Router {
	return &Router{
		pool:            NewPool(),
		screenshots:     NewScreenshotCache(screenshotCapBytes),
		captureStore:    store,
		navTimeout:      navTimeout,
		autoWaitTimeout: autoWaitTimeout,
		log:             obslog.For("router"),
	}
}

// Launch starts the backing browser process.
func (r *Router) Launch(binPath string, headless bool, controlURL string) error {
	return r.pool.Launch(binPath, headless, controlURL)
}

// Serve reads framed tool_request messages from rd and writes
// tool_response messages to wr until rd returns an error.
func (r *Router) Serve(rd *codec.Reader, wr *codec.Writer) error {
	for {
		msg, err := rd.ReadMessage()
		if err != nil {
			return err
		}
		var req protocol.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			r.log.Warn("malformed request, dropping", zap.Error(err))
			continue
		}
		go r.dispatch(req, wr)
	}
}

func (r *Router) dispatch(req protocol.Request, wr *codec.Writer) {
	life := newRequestLifecycle()
	resp := r.handle(req, life)

	_ = life.transition(reqReplying)
	data, err := json.Marshal(resp)
	if err != nil {
		r.log.Error("marshal response", zap.Error(err))
		return
	}
	if err := wr.WriteMessage(data); err != nil {
		r.log.Warn("write response", zap.Error(err))
	}
	_ = life.transition(reqDone)
}

func (r *Router) handle(req protocol.Request, life *requestLifecycle) *protocol.Response {
	spec, ok := dispatchTable[req.Params.Tool]
	if !ok {
		return protocol.Fail(req.ID, string(bridgeerr.Protocol), protocol.Text("unknown tool "+req.Params.Tool))
	}
	if err := life.transition(reqDispatched); err != nil {
		r.log.Debug("lifecycle transition", zap.Error(err))
	}

	var args map[string]any
	if len(req.Params.Args) > 0 {
		if err := json.Unmarshal(req.Params.Args, &args); err != nil {
			return protocol.Fail(req.ID, string(bridgeerr.Protocol), protocol.Text("malformed args"))
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	tabID := req.Params.TabID
	ts, ok := r.pool.Tab(tabID)
	if !ok && tabID != "" {
		return protocol.Fail(req.ID, string(bridgeerr.Target), protocol.Text("unknown tab "+tabID))
	}
	if !ok {
		var err error
		ts, err = r.pool.NewTab(tabID, "about:blank")
		if err != nil {
			return protocol.Fail(req.ID, string(bridgeerr.Capability), protocol.Text(err.Error()))
		}
	}
	ts.touch()

	if spec.capability != capScripting {
		if err := r.pool.EnsureAttached(ts); err != nil && spec.capability == capDebugger {
			return protocol.Fail(req.ID, string(bridgeerr.Capability), protocol.Text(err.Error()))
		}
	}

	_ = life.transition(reqAwaitingBrowser)

	unlock := r.lockInput(spec, tabID)
	defer unlock()

	res, err := spec.invoke(r, ts, args, req.Params.SoftFail)
	if err != nil {
		return protocol.Fail(req.ID, string(bridgeerr.KindOf(err)), protocol.Text(err.Error()))
	}

	maybeAutoScreenshot(r, ts, spec.tool, args, res)
	return &protocol.Response{Type: "tool_response", ID: req.ID, Result: res}
}

// lockInput serialises input tools on one tab so mouse-down/mouse-up
// pairs never interleave, per §5 "Within one tab, input tools are
// serialised by the extension's own per-tab queue".
func (r *Router) lockInput(spec toolSpec, tabID string) func() {
	if !isInputTool(spec.tool) || tabID == "" {
		return func() {}
	}
	muAny, _ := r.tabLocks.LoadOrStore(tabID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func isInputTool(tool string) bool {
	switch tool {
	case "click", "type", "key", "hover", "scroll", "drag":
		return true
	default:
		return false
	}
}
