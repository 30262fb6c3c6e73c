package router

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func handleCookiesGet(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	cookies, err := proto.NetworkGetCookies{}.Call(ts.page)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "get cookies", err)
	}
	text := ""
	for _, c := range cookies.Cookies {
		text += c.Name + "=" + c.Value + "; domain=" + c.Domain + "\n"
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
}

func handleCookiesSet(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	name, _ := args["name"].(string)
	value, _ := args["value"].(string)
	domain, _ := args["domain"].(string)
	if name == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "cookies.set requires args.name")
	}
	err := ts.page.SetCookies([]*proto.NetworkCookieParam{{Name: name, Value: value, Domain: domain}})
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "set cookie", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("set")}}, nil
}

// handleBookmarksStub and handleHistoryStub note an honest gap: browser
// bookmarks and history are chrome.bookmarks/chrome.history extension
// APIs with no Chrome DevTools Protocol equivalent, so a CDP-only router
// (this implementation's realisation of "the extension", see
// SPEC_FULL.md resolution #1) cannot reach them. A real extension-hosted
// router would call those APIs directly; this one reports the gap as a
// capability error rather than silently no-op-ing.
func handleBookmarksStub(r *Router, _ *tabSession, _ map[string]any) (*protocol.Result, error) {
	return nil, bridgeerr.New(bridgeerr.Capability, "bookmarks require the browser extension bookmarks API, unavailable over CDP")
}

func handleHistoryStub(r *Router, _ *tabSession, _ map[string]any) (*protocol.Result, error) {
	return nil, bridgeerr.New(bridgeerr.Capability, "history requires the browser extension history API, unavailable over CDP")
}
