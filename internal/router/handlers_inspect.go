package router

import (
	"encoding/json"
	"fmt"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

// handleRead walks the visible interactive elements and stamps each with
// a fresh accessibility label, per §4.D "Accessibility element
// references". References reset on every call.
func handleRead(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	ts.elements.Reset()

	elements, err := ts.page.Elements("a, button, input, select, textarea, [role], [onclick]")
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "read accessibility tree", err)
	}

	text := ""
	for _, el := range elements {
		label := ts.elements.Label(el)
		desc, _ := el.Text()
		tag, _ := el.Eval(`() => this.tagName.toLowerCase()`)
		tagName := ""
		if tag != nil {
			tagName = tag.Value.String()
		}
		text += fmt.Sprintf("%s [%s] %s\n", label, tagName, desc)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
}

func handlePageText(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	body, err := ts.page.Element("body")
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "no body element", err)
	}
	text, err := body.Text()
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "read page text", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
}

func handlePageState(r *Router, ts *tabSession, _ map[string]any) (*protocol.Result, error) {
	info, err := ts.page.Info()
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "read page state", err)
	}
	payload := map[string]any{"url": info.URL, "title": info.Title}
	data, _ := json.Marshal(payload)
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(string(data))}}, nil
}

func handleSearch(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "search requires args.query")
	}
	els, err := ts.page.ElementsX(fmt.Sprintf(`//*[contains(text(), %q)]`, query))
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "search page", err)
	}
	text := ""
	for _, el := range els {
		label := ts.elements.Label(el)
		text += label + "\n"
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
}
