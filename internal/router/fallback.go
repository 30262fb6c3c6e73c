package router

import (
	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

// capability is the handler requirement declared in the dispatch table,
// per §4.D.
type capability int

const (
	capDebugger capability = iota
	capScripting
	capEither
)

// handlerFunc performs one tool call against an attached tab.
type handlerFunc func(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error)

// toolSpec is one dispatch-table entry.
type toolSpec struct {
	tool          string
	capability    capability
	requiresTrustedInput bool // hardware-level input that scripting can never fake
	primary       handlerFunc
	scriptingFallback handlerFunc // nil if this tool has no scripting path
}

// invoke runs spec's primary handler, retrying via scripting on a
// Capability error when a fallback exists and trusted input isn't
// required, per §4.D "Fallback policy".
func (spec toolSpec) invoke(r *Router, ts *tabSession, args map[string]any, softFail bool) (*protocol.Result, error) {
	res, err := spec.primary(r, ts, args)
	if err == nil {
		return res, nil
	}
	if !bridgeerr.Retryable(err) || spec.requiresTrustedInput || spec.scriptingFallback == nil {
		return softFailResult(err, softFail)
	}

	res, ferr := spec.scriptingFallback(r, ts, args)
	if ferr == nil {
		return res, nil
	}
	return softFailResult(ferr, softFail)
}

// softFailResult turns a hard error into a warning-content success when
// the request carries softFail, per §4.D/§7.
func softFailResult(err error, softFail bool) (*protocol.Result, error) {
	if !softFail {
		return nil, err
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("warning: " + err.Error())}}, nil
}
