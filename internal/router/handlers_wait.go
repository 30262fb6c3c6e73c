package router

import (
	"time"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func waitTimeout(r *Router, args map[string]any) time.Duration {
	if ms, ok := args["timeoutMs"].(float64); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return r.autoWaitTimeout
}

func handleWaitLoad(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	if err := ts.page.Timeout(waitTimeout(r, args)).WaitLoad(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Timeout, "wait.load", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("loaded")}}, nil
}

func handleWaitDOM(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	if err := ts.page.Timeout(waitTimeout(r, args)).WaitDOMStable(300*time.Millisecond, 0); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Timeout, "wait.dom", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("stable")}}, nil
}

func handleWaitElement(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	selector, _ := args["selector"].(string)
	if selector == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "wait.element requires args.selector")
	}
	el, err := ts.page.Timeout(waitTimeout(r, args)).Element(selector)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Timeout, "wait.element", err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Timeout, "wait.element visible", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("visible")}}, nil
}

func handleWaitURL(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	want, _ := args["url"].(string)
	deadline := time.Now().Add(waitTimeout(r, args))
	for time.Now().Before(deadline) {
		info, err := ts.page.Info()
		if err == nil && info.URL == want {
			return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("matched")}}, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, bridgeerr.New(bridgeerr.Timeout, "wait.url deadline expired")
}

func handleWaitNetworkIdle(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	wait := ts.page.Timeout(waitTimeout(r, args)).WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	wait()
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("idle")}}, nil
}
