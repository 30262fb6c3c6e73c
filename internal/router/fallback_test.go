package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func okHandler(text string) handlerFunc {
	return func(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
		return &protocol.Result{Content: []protocol.ContentPart{protocol.Text(text)}}, nil
	}
}

func errHandler(kind bridgeerr.Kind) handlerFunc {
	return func(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
		return nil, bridgeerr.New(kind, "boom")
	}
}

func TestInvokeReturnsPrimaryResultOnSuccess(t *testing.T) {
	spec := toolSpec{tool: "click", capability: capEither, primary: okHandler("clicked")}
	res, err := spec.invoke(nil, nil, nil, false)
	require.NoError(t, err)
	require.Equal(t, "clicked", res.Content[0].Text)
}

func TestInvokeFallsBackToScriptingOnCapabilityError(t *testing.T) {
	spec := toolSpec{
		tool:              "click",
		capability:        capEither,
		primary:           errHandler(bridgeerr.Capability),
		scriptingFallback: okHandler("clicked via script"),
	}
	res, err := spec.invoke(nil, nil, nil, false)
	require.NoError(t, err)
	require.Equal(t, "clicked via script", res.Content[0].Text)
}

func TestInvokeDoesNotFallBackOnNonCapabilityError(t *testing.T) {
	spec := toolSpec{
		tool:              "click",
		capability:        capEither,
		primary:           errHandler(bridgeerr.Target),
		scriptingFallback: okHandler("clicked via script"),
	}
	_, err := spec.invoke(nil, nil, nil, false)
	require.Error(t, err)
	require.Equal(t, bridgeerr.Target, bridgeerr.KindOf(err))
}

func TestInvokeDoesNotFallBackWhenTrustedInputRequired(t *testing.T) {
	spec := toolSpec{
		tool:                 "key",
		capability:           capDebugger,
		requiresTrustedInput: true,
		primary:              errHandler(bridgeerr.Capability),
		scriptingFallback:    okHandler("should never run"),
	}
	_, err := spec.invoke(nil, nil, nil, false)
	require.Error(t, err)
}

func TestInvokeSoftFailTurnsPrimaryErrorIntoWarning(t *testing.T) {
	spec := toolSpec{tool: "key", capability: capDebugger, requiresTrustedInput: true, primary: errHandler(bridgeerr.Capability)}
	res, err := spec.invoke(nil, nil, nil, true)
	require.NoError(t, err)
	require.Contains(t, res.Content[0].Text, "warning:")
}

func TestInvokeSoftFailAlsoAppliesAfterFallbackFails(t *testing.T) {
	spec := toolSpec{
		tool:              "click",
		capability:        capEither,
		primary:           errHandler(bridgeerr.Capability),
		scriptingFallback: errHandler(bridgeerr.Capability),
	}
	res, err := spec.invoke(nil, nil, nil, true)
	require.NoError(t, err)
	require.Contains(t, res.Content[0].Text, "warning:")
}

func TestSoftFailResultPassesThroughWithoutSoftFail(t *testing.T) {
	_, err := softFailResult(errors.New("plain"), false)
	require.Error(t, err)
}
