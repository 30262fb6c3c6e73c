package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringifyHeaderValue(t *testing.T) {
	require.Equal(t, "keep-alive", stringifyHeaderValue("keep-alive"))
	require.Equal(t, "", stringifyHeaderValue(42))
	require.Equal(t, "", stringifyHeaderValue(nil))
}

func TestRandomEntryIDIsTimestampPrefixedAndUnique(t *testing.T) {
	a := randomEntryID()
	b := randomEntryID()
	require.NotEqual(t, a, b)
	require.True(t, strings.Contains(a, "-"))
}
