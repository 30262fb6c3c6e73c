package router

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/singleflight"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/obslog"
)

// tabSession is the router-side record of §3 "Tab session": one driven
// browser tab, its debugger-attach status, and its capture state.
type tabSession struct {
	id       string
	page     *rod.Page
	attached bool
	lastUsed time.Time
	capture  *captureStateMachine
	elements *elementTable
	netStop  func()
	mu       sync.Mutex
}

// Pool owns the launched browser and the set of driven tabs. Attach is
// idempotent: concurrent callers for the same tab id await one shared
// future, realised with singleflight rather than a hand-rolled future
// type (§4.D "concurrent callers await a single shared future").
type Pool struct {
	mu      sync.RWMutex
	browser *rod.Browser
	tabs    map[string]*tabSession
	attach  singleflight.Group
}

func NewPool() *Pool {
	return &Pool{tabs: make(map[string]*tabSession)}
}

// Launch starts (or connects to) Chrome. binPath/headless mirror the
// teacher's launcher.New()...Launch() sequence.
func (p *Pool) Launch(binPath string, headless bool, controlURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	url := controlURL
	if url == "" {
		l := launcher.New().Headless(headless)
		if binPath != "" {
			l = l.Bin(binPath)
		}
		u, err := l.Launch()
		if err != nil {
			return bridgeerr.Wrap(bridgeerr.Capability, "launch browser", err)
		}
		url = u
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return bridgeerr.Wrap(bridgeerr.Capability, "connect to browser", err)
	}
	p.browser = browser
	return nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}

// NewTab opens a fresh page and tracks it under a generated id.
func (p *Pool) NewTab(id, url string) (*tabSession, error) {
	p.mu.RLock()
	browser := p.browser
	p.mu.RUnlock()
	if browser == nil {
		return nil, bridgeerr.New(bridgeerr.Capability, "browser not started")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "create tab", err)
	}

	ts := &tabSession{
		id:       id,
		page:     page,
		lastUsed: time.Now(),
		capture:  newCaptureStateMachine(),
		elements: newElementTable(),
	}
	p.mu.Lock()
	p.tabs[id] = ts
	p.mu.Unlock()
	return ts, nil
}

func (p *Pool) Tab(id string) (*tabSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ts, ok := p.tabs[id]
	return ts, ok
}

func (p *Pool) CloseTab(id string) error {
	p.mu.Lock()
	ts, ok := p.tabs[id]
	if ok {
		delete(p.tabs, id)
	}
	p.mu.Unlock()
	if !ok {
		return bridgeerr.New(bridgeerr.Target, fmt.Sprintf("unknown tab %q", id))
	}
	return ts.page.Close()
}

func (p *Pool) ListTabs() []*tabSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tabSession, 0, len(p.tabs))
	for _, ts := range p.tabs {
		out = append(out, ts)
	}
	return out
}

// EnsureAttached attaches the debugger protocol to ts's underlying page
// if not already attached. Concurrent callers for the same tab id block
// on the same singleflight call and all observe the same result —
// attach is idempotent by construction, matching §3/§4.D.
func (p *Pool) EnsureAttached(ts *tabSession) error {
	ts.mu.Lock()
	if ts.attached {
		ts.mu.Unlock()
		return nil
	}
	ts.mu.Unlock()

	_, err, _ := p.attach.Do(ts.id, func() (any, error) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		if ts.attached {
			return nil, nil
		}
		// rod pages are debugger-attached implicitly on first protocol
		// call; DOMEnable forces the attach up front so later handlers
		// never pay the 100-500ms cost on their own critical path.
		if err := (proto.DOMEnable{}).Call(ts.page); err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.Capability, "attach debugger", err)
		}
		ts.attached = true
		obslog.For("router").Sugar().Debugf("debugger attached for tab %s", ts.id)
		return nil, nil
	})
	return err
}

// Detach marks ts as no longer debugger-attached, so the next
// EnsureAttached attaches again. Nothing in the router calls it: tab
// close and debugger-detached CDP events do not reset the flag.
func (ts *tabSession) Detach() {
	ts.mu.Lock()
	ts.attached = false
	ts.mu.Unlock()
}

func (ts *tabSession) touch() {
	ts.mu.Lock()
	ts.lastUsed = time.Now()
	ts.mu.Unlock()
}
