// Package manifest defines the native-messaging manifest JSON shape of
// spec §6. The installer that chooses OS- and browser-specific write
// paths is explicitly out of scope (§1); this package only knows the
// document shape and the fixed list of host browsers that require one.
package manifest

import "encoding/json"

// Manifest is the JSON document a Chromium derivative reads to learn how
// to launch the native-messaging host.
type Manifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"` // absolute path to the surfd binary
	Type           string   `json:"type"` // always "stdio"
	AllowedOrigins []string `json:"allowed_origins"`
}

// HostName is the native-messaging host name browsers use to address
// this daemon, shared by every manifest New builds.
const HostName = "com.surfbridge.surf"

// New builds the manifest for one extension id, installed at
// binaryPath.
func New(binaryPath, extensionID string) Manifest {
	return Manifest{
		Name:           HostName,
		Description:    "surf browser-automation bridge native messaging host",
		Path:           binaryPath,
		Type:           "stdio",
		AllowedOrigins: []string{"chrome-extension://" + extensionID + "/"},
	}
}

// Marshal renders m as the indented JSON document browsers expect on
// disk.
func (m Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Browser identifies one Chromium derivative that can host this
// extension, per §6 "Required on a fixed list of Chromium derivatives".
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
	BrowserVivaldi  Browser = "vivaldi"
)

// SupportedBrowsers lists every browser a manifest installer (out of
// scope here) would need to register this host with.
var SupportedBrowsers = []Browser{BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, BrowserVivaldi}
