package router

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Space":      input.Space,
}

// resolveTarget finds the rod.Element for args["ref"] (an accessibility
// label) or args["selector"], per §4.D "Accessibility element
// references".
func resolveTarget(ts *tabSession, args map[string]any) (*rod.Element, error) {
	if ref, ok := args["ref"].(string); ok && ref != "" {
		return ts.elements.Resolve(ref)
	}
	selector, _ := args["selector"].(string)
	if selector == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "requires args.ref or args.selector")
	}
	el, err := ts.page.Element(selector)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "selector matched nothing", err)
	}
	return el, nil
}

func handleClick(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	el, err := resolveTarget(ts, args)
	if err != nil {
		return nil, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "click via debugger", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("clicked")}}, nil
}

// clickScripting dispatches a synthetic click event through the page's
// JS context instead of a trusted Input.dispatchMouseEvent, per Open
// Question resolution #2 (SPEC_FULL.md). It cannot produce OS-trusted
// input, so callers must not use it for tools that require that.
func clickScripting(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	el, err := resolveTarget(ts, args)
	if err != nil {
		return nil, err
	}
	_, err = el.Eval(`() => this.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true}))`)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "click via scripting", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("clicked (scripting)")}}, nil
}

func handleType(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	el, err := resolveTarget(ts, args)
	if err != nil {
		return nil, err
	}
	text, _ := args["text"].(string)
	if err := el.Input(text); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "type via debugger", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("typed")}}, nil
}

func typeScripting(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	el, err := resolveTarget(ts, args)
	if err != nil {
		return nil, err
	}
	text, _ := args["text"].(string)
	_, err = el.Eval(`(value) => {
		this.value = value;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`, text)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "type via scripting", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("typed (scripting)")}}, nil
}

// handleKey presses a hardware-level key. This requires trusted input
// and has no scripting fallback, per §4.D.
func handleKey(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	key, _ := args["key"].(string)
	if key == "" {
		return nil, bridgeerr.New(bridgeerr.Protocol, "key requires args.key")
	}
	k, ok := keyByName(key)
	if !ok {
		return nil, bridgeerr.New(bridgeerr.Protocol, fmt.Sprintf("unknown key %q", key))
	}
	if err := ts.page.Keyboard.Press(k); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "key press", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("pressed " + key)}}, nil
}

func handleHover(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	el, err := resolveTarget(ts, args)
	if err != nil {
		return nil, err
	}
	if err := el.Hover(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "hover via debugger", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("hovered")}}, nil
}

func handleScroll(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	dx, _ := args["dx"].(float64)
	dy, _ := args["dy"].(float64)
	if err := ts.page.Mouse.Scroll(dx, dy, 1); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "scroll via debugger", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("scrolled")}}, nil
}

func handleDrag(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	fromEl, err := resolveTarget(ts, map[string]any{"ref": args["from"]})
	if err != nil {
		return nil, err
	}
	toRef, _ := args["to"].(string)
	toEl, err := ts.elements.Resolve(toRef)
	if err != nil {
		return nil, err
	}
	fromPt, err := elementCenter(fromEl)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "drag source has no layout", err)
	}
	toPt, err := elementCenter(toEl)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Target, "drag target has no layout", err)
	}

	m := ts.page.Mouse
	if err := m.MoveTo(fromPt); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "drag move-to-source", err)
	}
	if err := m.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "drag mouse-down", err)
	}
	if err := m.MoveTo(toPt); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "drag move-to-target", err)
	}
	if err := m.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "drag mouse-up", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("dragged")}}, nil
}

// elementCenter reads el's bounding rect via JS getBoundingClientRect
// and returns its centre point.
func elementCenter(el *rod.Element) (proto.Point, error) {
	res, err := el.Eval(`() => {
		const r = this.getBoundingClientRect();
		return {x: r.x + r.width / 2, y: r.y + r.height / 2};
	}`)
	if err != nil {
		return proto.Point{}, err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return proto.Point{}, err
	}
	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &pt); err != nil {
		return proto.Point{}, err
	}
	return proto.Point{X: pt.X, Y: pt.Y}, nil
}

func keyByName(name string) (input.Key, bool) {
	k, ok := namedKeys[name]
	return k, ok
}
