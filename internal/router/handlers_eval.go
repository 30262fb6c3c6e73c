package router

import (
	"github.com/go-rod/rod"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

// handleEval runs args.expr in the page's JS context and returns its
// JSON-stringified result, per §4.D "JavaScript evaluation". This is
// explicitly not the general-purpose-scripting-on-the-wire the spec's
// Non-goals rule out: the tool vocabulary stays fixed, js.eval is one
// named entry in it, and the expression is opaque data, not a protocol
// extension mechanism.
func handleEval(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	expr, _ := args["expr"].(string)
	if expr == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "js.eval requires args.expr")
	}
	res, err := ts.page.Evaluate(&rod.EvalOptions{
		JS:           "() => { " + expr + " }",
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "js.eval", err)
	}
	if res == nil || res.Value.Nil() {
		return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("")}}, nil
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(res.Value.String())}}, nil
}
