package router

import (
	"time"

	"github.com/go-rod/rod/lib/input"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

// handleAISiteGeneric is the fallback for the AI-site-specific tool
// names the dispatch table recognises without a dedicated per-site
// implementation (§1 Non-goals: "per-site automation heuristics for
// third-party AI chat sites" stay interfaces-only beyond the
// serialisation queue). The request has already passed through the
// daemon's per-site FIFO by the time it reaches here; this handler only
// performs the generic submit-and-read shape shared by every chat-style
// site on the current page: type the prompt into args.inputSelector,
// press Enter, wait for the DOM to settle, then read the page text back.
func handleAISiteGeneric(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	prompt, _ := args["prompt"].(string)
	selector, _ := args["inputSelector"].(string)
	if prompt == "" || selector == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "AI-site tools require args.prompt and args.inputSelector")
	}

	el, err := ts.page.Element(selector)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "AI-site input not found", err)
	}
	if err := el.Input(prompt); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "AI-site input", err)
	}
	if err := el.Type(input.Enter); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "AI-site submit", err)
	}

	if err := ts.page.Timeout(r.autoWaitTimeout).WaitDOMStable(500*time.Millisecond, 0); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Timeout, "AI-site response wait", err)
	}

	return handlePageText(r, ts, args)
}
