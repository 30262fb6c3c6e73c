package capture

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Filter composes conjunctively over Entry fields, per spec §4.B.
type Filter struct {
	Origin          string // exact
	Method          string // exact, upper-cased
	Status          string // exact integer or "Nxx" class, e.g. "4xx"
	ContentType     string // substring
	MinTimestamp    time.Time
	BodyPresence    *bool // nil = don't care, true = require a body, false = require no body
	ExcludeStatic   bool
	URLPattern      string // "/regex/", glob with "*", or plain substring
	Tail            int    // 0 = no tail slice
}

var staticExts = map[string]bool{
	".css": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".woff": true, ".woff2": true, ".ttf": true, ".ico": true,
	".map": true,
}

// Match reports whether e satisfies every set field of f except Tail,
// which is applied by the caller after streaming.
func (f Filter) Match(e Entry) bool {
	if f.Origin != "" && origin(e.URL) != f.Origin {
		return false
	}
	if f.Method != "" && strings.ToUpper(f.Method) != strings.ToUpper(e.Method) {
		return false
	}
	if f.Status != "" && !matchStatus(f.Status, e.Status) {
		return false
	}
	if f.ContentType != "" && !strings.Contains(strings.ToLower(e.ContentType), strings.ToLower(f.ContentType)) {
		return false
	}
	if !f.MinTimestamp.IsZero() && e.Timestamp.Before(f.MinTimestamp) {
		return false
	}
	if f.BodyPresence != nil {
		has := e.RequestBodyHash != "" || e.ResponseBodyHash != ""
		if has != *f.BodyPresence {
			return false
		}
	}
	if f.ExcludeStatic && isStaticAsset(e.URL) {
		return false
	}
	if f.URLPattern != "" && !matchURLPattern(f.URLPattern, e.URL) {
		return false
	}
	return true
}

func origin(rawURL string) string {
	// Cheap origin extraction without importing net/url's full parse cost
	// twice per entry — scheme://host[:port].
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	return rawURL[:idx+3] + rest[:end]
}

func matchStatus(spec string, status int) bool {
	spec = strings.TrimSpace(spec)
	if strings.HasSuffix(strings.ToLower(spec), "xx") && len(spec) == 3 {
		class := spec[0]
		return status >= int(class-'0')*100 && status < int(class-'0')*100+100
	}
	n, err := strconv.Atoi(spec)
	if err != nil {
		return false
	}
	return status == n
}

func isStaticAsset(rawURL string) bool {
	clean := rawURL
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	return staticExts[strings.ToLower(path.Ext(clean))]
}

func matchURLPattern(pattern, url string) bool {
	if len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return false
		}
		return re.MatchString(url)
	}
	if strings.Contains(pattern, "*") {
		segments := strings.Split(pattern, "*")
		for i, seg := range segments {
			segments[i] = regexp.QuoteMeta(seg)
		}
		re, err := regexp.Compile("^" + strings.Join(segments, ".*") + "$")
		if err != nil {
			return false
		}
		return re.MatchString(url)
	}
	return strings.Contains(url, pattern)
}

// ApplyTail returns the last n entries of entries, or all of them if n<=0
// or n>=len(entries).
func ApplyTail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
