// Package workflow implements the sequential step executor of spec
// §4.E: a client-side sequencer that resolves %{name} variable
// references, issues each step as a tool request against the bridge
// daemon's local socket, captures replies into a rolling variable map,
// and supports bounded loops with auto-wait follow-ups.
package workflow

// Step is either a leaf tool call or a loop, per §3 "Workflow step":
// { cmd, args, as? } | { each|repeat, steps, until?, as? }. As names the
// leaf's capture variable on a leaf step and the loop's per-iteration
// binding variable (default "item") on a loop step.
type Step struct {
	// Leaf fields.
	Cmd  string         `json:"cmd,omitempty"`
	Args map[string]any `json:"args,omitempty"`

	// Shared: capture name on a leaf, each-binding name on a loop.
	As string `json:"as,omitempty"`

	// Loop fields.
	Repeat int    `json:"repeat,omitempty"`
	Each   string `json:"each,omitempty"`
	Steps  []Step `json:"steps,omitempty"`
	Until  *Step  `json:"until,omitempty"`
}

// IsLoop reports whether s is a loop step rather than a leaf.
func (s Step) IsLoop() bool {
	return s.Repeat > 0 || s.Each != ""
}

// MaxLoopIterations is the hard cap on repeat/each iterations, per §4.E.
const MaxLoopIterations = 100

// autoWaitLeaf maps a leaf tool to the follow-up wait tool the engine
// issues after it, per §4.E "Auto-wait". Mirrors the grouping
// internal/router's dispatch table uses for the same tools, kept as its
// own copy here because the workflow engine is a client of the bridge
// over the local socket, not a consumer of the router package.
var autoWaitLeaf = map[string]string{
	"navigate":    "wait.load",
	"back":        "wait.load",
	"forward":     "wait.load",
	"reload":      "wait.load",
	"click":       "wait.dom",
	"key":         "wait.dom",
	"type":        "wait.dom",
	"tabs.switch": "wait.dom",
}
