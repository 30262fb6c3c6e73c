package router

var dispatchTable = map[string]toolSpec{
	// Tab management
	"tabs.new":     {tool: "tabs.new", capability: capDebugger, primary: handleTabsNew},
	"tabs.list":    {tool: "tabs.list", capability: capDebugger, primary: handleTabsList},
	"tabs.close":   {tool: "tabs.close", capability: capDebugger, primary: handleTabsClose},
	"tabs.switch":  {tool: "tabs.switch", capability: capDebugger, primary: handleTabsSwitch},
	"capture.start": {tool: "capture.start", capability: capDebugger, primary: handleCaptureStart},
	"capture.stop":  {tool: "capture.stop", capability: capDebugger, primary: handleCaptureStop},

	// Navigation
	"navigate": {tool: "navigate", capability: capEither, primary: handleNavigate},
	"back":     {tool: "back", capability: capEither, primary: handleBack},
	"forward":  {tool: "forward", capability: capEither, primary: handleForward},
	"reload":   {tool: "reload", capability: capEither, primary: handleReload},

	// Input
	"click":  {tool: "click", capability: capEither, primary: handleClick, scriptingFallback: clickScripting},
	"type":   {tool: "type", capability: capEither, primary: handleType, scriptingFallback: typeScripting},
	"key":    {tool: "key", capability: capDebugger, requiresTrustedInput: true, primary: handleKey},
	"hover":  {tool: "hover", capability: capDebugger, primary: handleHover},
	"scroll": {tool: "scroll", capability: capDebugger, primary: handleScroll},
	"drag":   {tool: "drag", capability: capDebugger, requiresTrustedInput: true, primary: handleDrag},

	// Page inspection
	"page.read":  {tool: "page.read", capability: capDebugger, primary: handleRead},
	"page.text":  {tool: "page.text", capability: capEither, primary: handlePageText},
	"page.state": {tool: "page.state", capability: capDebugger, primary: handlePageState},
	"page.search": {tool: "page.search", capability: capDebugger, primary: handleSearch},

	// Screenshots
	"screenshot.viewport": {tool: "screenshot.viewport", capability: capDebugger, primary: handleScreenshotViewport},
	"screenshot.fullpage": {tool: "screenshot.fullpage", capability: capDebugger, primary: handleScreenshotFullPage},
	"screenshot.region":   {tool: "screenshot.region", capability: capDebugger, primary: handleScreenshotRegion},

	// Storage
	"cookies.get":  {tool: "cookies.get", capability: capDebugger, primary: handleCookiesGet},
	"cookies.set":  {tool: "cookies.set", capability: capDebugger, primary: handleCookiesSet},
	"bookmarks.get": {tool: "bookmarks.get", capability: capDebugger, primary: handleBookmarksStub},
	"history.get":   {tool: "history.get", capability: capDebugger, primary: handleHistoryStub},

	// Waiting
	"wait.element": {tool: "wait.element", capability: capDebugger, primary: handleWaitElement},
	"wait.url":      {tool: "wait.url", capability: capDebugger, primary: handleWaitURL},
	"wait.networkidle": {tool: "wait.networkidle", capability: capDebugger, primary: handleWaitNetworkIdle},
	"wait.dom":      {tool: "wait.dom", capability: capDebugger, primary: handleWaitDOM},
	"wait.load":     {tool: "wait.load", capability: capDebugger, primary: handleWaitLoad},

	// Evaluation
	"js.eval": {tool: "js.eval", capability: capDebugger, primary: handleEval},

	// Emulation
	"emulate.network":     {tool: "emulate.network", capability: capDebugger, primary: handleEmulateNetwork},
	"emulate.cpu":         {tool: "emulate.cpu", capability: capDebugger, primary: handleEmulateCPU},
	"emulate.geolocation": {tool: "emulate.geolocation", capability: capDebugger, primary: handleEmulateGeolocation},
}

// aiSiteTools lists the per-site AI chat tool names the dispatch table
// recognises but implements only generically, per §1 Non-goals.
var aiSiteTools = []string{
	"ai.chatgpt.ask",
	"ai.claude.ask",
	"ai.gemini.ask",
	"ai.perplexity.ask",
}

func init() {
	for _, name := range aiSiteTools {
		dispatchTable[name] = toolSpec{tool: name, capability: capEither, primary: handleAISiteGeneric}
	}
}

// autoWaitLeaf is the set of tool names that trigger navigation or DOM
// mutation, with the wait tool that follows each (§4.E auto-wait). The
// workflow engine keeps its own copy in internal/workflow/step.go; this
// one is checked against the dispatch table by router_test.go.
var autoWaitLeaf = map[string]string{ // tool -> follow-up wait tool
	"navigate": "wait.load",
	"back":     "wait.load",
	"forward":  "wait.load",
	"reload":   "wait.load",
	"click":    "wait.dom",
	"key":      "wait.dom",
	"type":     "wait.dom",
	"tabs.switch": "wait.dom",
}
