package router

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIsInputToolRecognisesInputVocabulary(t *testing.T) {
	for _, tool := range []string{"click", "type", "key", "hover", "scroll", "drag"} {
		require.True(t, isInputTool(tool), tool)
	}
}

func TestIsInputToolRejectsNonInputTools(t *testing.T) {
	for _, tool := range []string{"navigate", "tabs.new", "js.eval", "page.read"} {
		require.False(t, isInputTool(tool), tool)
	}
}

func TestLockInputSerialisesSameTabSameTool(t *testing.T) {
	r := &Router{}
	spec := dispatchTable["click"]

	unlock := r.lockInput(spec, "tab-1")

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		u := r.lockInput(spec, "tab-1")
		acquired.Store(true)
		u()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.False(t, acquired.Load(), "second input call must block while the first holds the tab lock")

	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock never released to the waiting goroutine")
	}
	require.True(t, acquired.Load())
}

func TestLockInputDoesNotSerialiseAcrossTabs(t *testing.T) {
	r := &Router{}
	spec := dispatchTable["click"]

	unlock1 := r.lockInput(spec, "tab-1")
	defer unlock1()

	done := make(chan struct{})
	go func() {
		u := r.lockInput(spec, "tab-2")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different tab's input lock must not be blocked by tab-1's lock")
	}
}

func TestLockInputIsNoopForNonInputTools(t *testing.T) {
	r := &Router{}
	spec := dispatchTable["navigate"]
	unlock := r.lockInput(spec, "tab-1")
	unlock()
	// no tab lock should have been created
	_, ok := r.tabLocks.Load("tab-1")
	require.False(t, ok)
}

func TestDispatchTableCoversDocumentedToolVocabulary(t *testing.T) {
	for _, tool := range []string{
		"tabs.new", "tabs.list", "tabs.close", "tabs.switch",
		"capture.start", "capture.stop",
		"navigate", "back", "forward", "reload",
		"click", "type", "key", "hover", "scroll", "drag",
		"page.read", "page.text", "page.state", "page.search",
		"screenshot.viewport", "screenshot.fullpage", "screenshot.region",
		"cookies.get", "cookies.set", "bookmarks.get", "history.get",
		"wait.element", "wait.url", "wait.networkidle", "wait.dom", "wait.load",
		"js.eval",
		"emulate.network", "emulate.cpu", "emulate.geolocation",
		"ai.chatgpt.ask", "ai.claude.ask", "ai.gemini.ask", "ai.perplexity.ask",
	} {
		spec, ok := dispatchTable[tool]
		require.True(t, ok, "missing dispatch entry for %s", tool)
		require.NotNil(t, spec.primary, "%s has no primary handler", tool)
	}
}

func TestDispatchTableTrustedInputToolsHaveNoFallback(t *testing.T) {
	for tool, spec := range dispatchTable {
		if spec.requiresTrustedInput {
			require.Nil(t, spec.scriptingFallback, "%s requires trusted input but declares a scripting fallback", tool)
		}
	}
}

func TestAutoWaitLeafOnlyNamesDispatchedTools(t *testing.T) {
	for tool, followUp := range autoWaitLeaf {
		_, ok := dispatchTable[tool]
		require.True(t, ok, "autoWaitLeaf names unknown tool %s", tool)
		_, ok = dispatchTable[followUp]
		require.True(t, ok, "autoWaitLeaf follow-up %s is not itself dispatchable", followUp)
	}
}

func TestTabLocksIsolatedPerRouterInstance(t *testing.T) {
	r1 := &Router{}
	r2 := &Router{}
	spec := dispatchTable["click"]

	unlock := r1.lockInput(spec, "tab-1")
	defer unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		u := r2.lockInput(spec, "tab-1")
		u()
	}()
	wg.Wait() // must not deadlock: r2 has its own tabLocks map
}
