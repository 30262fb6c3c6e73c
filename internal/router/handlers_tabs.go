package router

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func handleTabsNew(r *Router, _ *tabSession, args map[string]any) (*protocol.Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		url = "about:blank"
	}
	id := uuid.NewString()
	ts, err := r.pool.NewTab(id, url)
	if err != nil {
		return nil, err
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(ts.id)}}, nil
}

func handleTabsList(r *Router, _ *tabSession, _ map[string]any) (*protocol.Result, error) {
	tabs := r.pool.ListTabs()
	text := ""
	for _, t := range tabs {
		text += t.id + "\n"
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
}

func handleTabsClose(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := r.pool.CloseTab(ts.id); err != nil {
		return nil, err
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("closed")}}, nil
}

func handleTabsSwitch(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if _, err := ts.page.Activate(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "activate tab", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("activated")}}, nil
}

func handleCaptureStart(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := ts.StartCapture(r.captureStore); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("capturing")}}, nil
}

func handleCaptureStop(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	if err := ts.StopCapture(); err != nil {
		return nil, fmt.Errorf("stop capture: %w", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("stopped")}}, nil
}
