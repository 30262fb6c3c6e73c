package workflow

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var varRef = regexp.MustCompile(`%\{([a-zA-Z0-9_.]+)\}`)

// urlLikeKey reports whether an args key holds a URL, per the
// substitution policy resolving §9's documented ambiguity: a captured
// variable substituted into a recognised URL-valued argument is
// URL-encoded; every other position is substituted byte-for-byte.
func urlLikeKey(key string) bool {
	if key == "url" || key == "href" {
		return true
	}
	return strings.HasSuffix(key, "Url") || strings.HasSuffix(key, "URL")
}

// substituteArgs resolves every %{name} reference in args against vars,
// returning a fresh map (the input is never mutated).
func substituteArgs(args map[string]any, vars map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = substituteValue(v, vars, urlLikeKey(k))
	}
	return out
}

func substituteValue(v any, vars map[string]any, urlPosition bool) any {
	switch t := v.(type) {
	case string:
		return substituteString(t, vars, urlPosition)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = substituteValue(vv, vars, urlPosition || urlLikeKey(k))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = substituteValue(vv, vars, urlPosition)
		}
		return out
	default:
		return v
	}
}

// substituteString replaces every %{name} reference in s. A string that
// is *entirely* one reference is replaced with the variable's native
// value (stringified and percent-encoded at a URL position); references
// embedded in a larger string are always stringified and, at a URL
// position, percent-encoded.
func substituteString(s string, vars map[string]any, urlPosition bool) any {
	if m := varRef.FindStringSubmatch(s); m != nil && m[0] == s {
		val, ok := lookupVar(vars, m[1])
		if !ok {
			return s
		}
		if urlPosition {
			return encodeForURL(stringify(val))
		}
		return val
	}

	return varRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := varRef.FindStringSubmatch(ref)[1]
		val, ok := lookupVar(vars, name)
		if !ok {
			return ref
		}
		rendered := stringify(val)
		if urlPosition {
			return encodeForURL(rendered)
		}
		return rendered
	})
}

func lookupVar(vars map[string]any, name string) (any, bool) {
	v, ok := vars[name]
	return v, ok
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func encodeForURL(s string) string {
	return url.QueryEscape(s)
}
