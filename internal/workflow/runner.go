package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/obslog"
	"github.com/surfbridge/surf/internal/protocol"
)

// Policy controls what happens when a leaf step's tool call fails.
type Policy string

const (
	PolicyStop     Policy = "stop"
	PolicyContinue Policy = "continue"
)

// Runner executes a workflow's steps against one bridge connection,
// per §4.E.
type Runner struct {
	client          *Client
	vars            map[string]any
	policy          Policy
	tabID           string
	autoWaitTimeout time.Duration
	log             *zap.Logger
}

func NewRunner(client *Client, policy Policy, tabID string, autoWaitTimeout time.Duration) *Runner {
	if policy == "" {
		policy = PolicyStop
	}
	return &Runner{
		client:          client,
		vars:            make(map[string]any),
		policy:          policy,
		tabID:           tabID,
		autoWaitTimeout: autoWaitTimeout,
		log:             obslog.For("workflow"),
	}
}

// Vars returns the runner's current variable map, e.g. for inspection
// after Run completes.
func (r *Runner) Vars() map[string]any { return r.vars }

// Run executes steps in order, stopping at the first failing leaf when
// the policy is "stop".
func (r *Runner) Run(steps []Step) error {
	for _, step := range steps {
		if err := r.runStep(step); err != nil {
			if r.policy == PolicyStop {
				return err
			}
			r.log.Warn("step failed, continuing", zap.Error(err))
		}
	}
	return nil
}

func (r *Runner) runStep(step Step) error {
	if step.IsLoop() {
		return r.runLoop(step)
	}
	return r.runLeaf(step)
}

func (r *Runner) runLeaf(step Step) error {
	args := substituteArgs(step.Args, r.vars)
	resp, err := r.client.Call(step.Cmd, args, r.tabID, false)
	if err != nil {
		return fmt.Errorf("step %q: %w", step.Cmd, err)
	}

	if step.As != "" {
		r.vars[step.As] = extractCapture(resp)
	}

	if resp.IsError() {
		return fmt.Errorf("step %q failed: %s", step.Cmd, errText(resp))
	}

	r.autoWait(step.Cmd)
	return nil
}

// autoWait issues a follow-up wait step after a navigation- or
// mutation-triggering leaf, swallowing its own failure per §4.E.
func (r *Runner) autoWait(cmd string) {
	waitTool, ok := autoWaitLeaf[cmd]
	if !ok {
		return
	}
	args := map[string]any{}
	if r.autoWaitTimeout > 0 {
		args["timeoutMs"] = float64(r.autoWaitTimeout / time.Millisecond)
	}
	if _, err := r.client.Call(waitTool, args, r.tabID, true); err != nil {
		r.log.Debug("auto-wait failed, ignoring", zap.String("tool", waitTool), zap.Error(err))
	}
}

func (r *Runner) runLoop(step Step) error {
	iterations, items, err := r.loopBounds(step)
	if err != nil {
		return err
	}

	eachAs := step.As
	if eachAs == "" {
		eachAs = "item"
	}

	for i := 0; i < iterations; i++ {
		if items != nil {
			r.vars[eachAs] = items[i]
		}
		if err := r.Run(step.Steps); err != nil {
			return err
		}
		if step.Until != nil {
			if err := r.runLeaf(*step.Until); err != nil {
				return err
			}
			if val, ok := r.vars[step.Until.As]; ok && isTruthy(val) {
				break
			}
		}
	}
	return nil
}

// loopBounds resolves repeat/each into a concrete iteration count and,
// for "each", the slice to iterate, capped at MaxLoopIterations.
func (r *Runner) loopBounds(step Step) (int, []any, error) {
	if step.Each != "" {
		resolved := substituteValue(step.Each, r.vars, false)
		items, _ := resolved.([]any)
		n := len(items)
		if n > MaxLoopIterations {
			n = MaxLoopIterations
		}
		return n, items, nil
	}

	n := step.Repeat
	if n > MaxLoopIterations {
		n = MaxLoopIterations
	}
	return n, nil, nil
}

// extractCapture implements §4.E's reply-extraction rule: a single text
// content whose body is valid JSON captures the parsed value; otherwise
// the raw text; otherwise the whole reply.
func extractCapture(resp *protocol.Response) any {
	var content []protocol.ContentPart
	if resp.Result != nil {
		content = resp.Result.Content
	} else if resp.Error != nil {
		content = resp.Error.Content
	}

	if len(content) == 1 && content[0].Type == "text" {
		var parsed any
		if err := json.Unmarshal([]byte(content[0].Text), &parsed); err == nil {
			return parsed
		}
		return content[0].Text
	}
	return resp
}

func errText(resp *protocol.Response) string {
	if resp.Error == nil || len(resp.Error.Content) == 0 {
		return "unknown error"
	}
	return resp.Error.Content[0].Text
}

// isTruthy mirrors JS-style truthiness for the values extractCapture can
// produce (bool, number, string, nil, parsed JSON).
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
