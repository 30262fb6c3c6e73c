package capture

import "testing"

func TestMatchStatusClass(t *testing.T) {
	cases := []struct {
		spec   string
		status int
		want   bool
	}{
		{"200", 200, true},
		{"200", 201, false},
		{"2xx", 204, true},
		{"4xx", 404, true},
		{"4xx", 500, false},
	}
	for _, c := range cases {
		if got := matchStatus(c.spec, c.status); got != c.want {
			t.Errorf("matchStatus(%q, %d) = %v, want %v", c.spec, c.status, got, c.want)
		}
	}
}

func TestIsStaticAsset(t *testing.T) {
	if !isStaticAsset("https://cdn.example/app.css?v=2") {
		t.Error("expected .css to be static")
	}
	if isStaticAsset("https://api.example/users") {
		t.Error("expected /users to not be static")
	}
}

func TestMatchURLPatternGlob(t *testing.T) {
	if !matchURLPattern("https://api.example/*/users", "https://api.example/v2/users") {
		t.Error("expected glob match")
	}
	if matchURLPattern("https://api.example/*/users", "https://other.example/v2/users") {
		t.Error("expected glob mismatch")
	}
}

func TestMatchURLPatternRegex(t *testing.T) {
	if !matchURLPattern(`/^https:\/\/api\.example\/v\d+\//`, "https://api.example/v2/users") {
		t.Error("expected regex match")
	}
}

func TestApplyTail(t *testing.T) {
	entries := []Entry{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := ApplyTail(entries, 2)
	if len(got) != 2 || got[0].ID != "2" {
		t.Fatalf("unexpected tail: %+v", got)
	}
}
