package router

import (
	"encoding/base64"

	"github.com/go-rod/rod/lib/proto"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

// autoScreenshotTools is the set of tools that append a post-action
// screenshot to their own reply, per §4.D "Auto-screenshot policy",
// unless the request sets args.suppressScreenshot. The set is fixed here;
// it is not read from the config file.
var autoScreenshotTools = map[string]bool{
	"navigate": true,
	"click":    true,
	"type":     true,
	"scroll":   true,
	"key":      true,
}

func handleScreenshotViewport(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	return captureScreenshot(r, ts, args, false)
}

func handleScreenshotFullPage(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	return captureScreenshot(r, ts, args, true)
}

func handleScreenshotRegion(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	w, _ := args["width"].(float64)
	h, _ := args["height"].(float64)

	data, err := ts.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Clip: &proto.PageViewport{X: x, Y: y, Width: w, Height: h, Scale: 1},
	})
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "region screenshot", err)
	}
	return screenshotResult(r, data, args)
}

func captureScreenshot(r *Router, ts *tabSession, args map[string]any, fullPage bool) (*protocol.Result, error) {
	data, err := ts.page.Screenshot(fullPage, nil)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "screenshot", err)
	}
	return screenshotResult(r, data, args)
}

// screenshotResult returns the image inline, or as a cache handle when
// args.asHandle is set, per §4.D "replies may return the image inline or
// the id alone, per tool configuration".
func screenshotResult(r *Router, data []byte, args map[string]any) (*protocol.Result, error) {
	asHandle, _ := args["asHandle"].(bool)
	if !asHandle {
		encoded := base64.StdEncoding.EncodeToString(data)
		return &protocol.Result{Content: []protocol.ContentPart{protocol.Image(encoded, "image/png")}}, nil
	}
	id, err := r.screenshots.Put(data, "image/png")
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Store, "cache screenshot", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(id)}}, nil
}

// maybeAutoScreenshot appends an inline screenshot to res for tools in
// autoScreenshotTools, unless the request suppresses it.
func maybeAutoScreenshot(r *Router, ts *tabSession, tool string, args map[string]any, res *protocol.Result) {
	if res == nil || !autoScreenshotTools[tool] {
		return
	}
	if suppress, _ := args["suppressScreenshot"].(bool); suppress {
		return
	}
	data, err := ts.page.Screenshot(false, nil)
	if err != nil {
		return
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	res.Content = append(res.Content, protocol.Image(encoded, "image/png"))
}
