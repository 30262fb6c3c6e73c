package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManifestShape(t *testing.T) {
	m := New("/usr/local/bin/surfd", "abcdefghijklmnop")
	require.Equal(t, "stdio", m.Type)
	require.Equal(t, HostName, m.Name)
	require.Equal(t, []string{"chrome-extension://abcdefghijklmnop/"}, m.AllowedOrigins)
}

func TestMarshalRoundTrip(t *testing.T) {
	m := New("/usr/local/bin/surfd", "abc")
	data, err := m.Marshal()
	require.NoError(t, err)

	var back Manifest
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, m, back)
}

func TestSupportedBrowsersNonEmpty(t *testing.T) {
	require.NotEmpty(t, SupportedBrowsers)
}
