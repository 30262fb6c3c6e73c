package router

import (
	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func handleNavigate(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "navigate requires args.url")
	}
	if err := ts.page.Timeout(r.navTimeout).Navigate(url); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "navigate", err)
	}
	ts.elements.Reset()
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("navigated to " + url)}}, nil
}

func handleBack(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := ts.page.NavigateBack(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "navigate back", err)
	}
	ts.elements.Reset()
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("back")}}, nil
}

func handleForward(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := ts.page.NavigateForward(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "navigate forward", err)
	}
	ts.elements.Reset()
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("forward")}}, nil
}

func handleReload(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := ts.page.Reload(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "reload", err)
	}
	ts.elements.Reset()
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("reloaded")}}, nil
}
