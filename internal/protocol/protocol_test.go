package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOKBuildsSuccessfulResponse(t *testing.T) {
	resp := OK("req-1", Text("hello"))
	require.False(t, resp.IsError())
	require.Equal(t, "hello", resp.Result.Content[0].Text)
	require.Nil(t, resp.Error)
}

func TestFailBuildsFailedResponseWithKind(t *testing.T) {
	resp := Fail("req-1", "capability", Text("no debugger"))
	require.True(t, resp.IsError())
	require.Equal(t, "capability", resp.Error.Kind)
	require.Nil(t, resp.Result)
}

func TestResponseRoundTripsThroughJSON(t *testing.T) {
	resp := OK("req-2", Image("YWJj", "image/png"))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var back Response
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, "req-2", back.ID)
	require.False(t, back.IsError())
	require.Equal(t, "image/png", back.Result.Content[0].MimeType)
}

func TestRequestArgsSurviveRawMessageRoundTrip(t *testing.T) {
	req := Request{Type: "tool_request", ID: "req-3", Params: ToolParams{Tool: "navigate", Args: json.RawMessage(`{"url":"https://example.org"}`)}}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var back Request
	require.NoError(t, json.Unmarshal(data, &back))
	var args map[string]any
	require.NoError(t, json.Unmarshal(back.Params.Args, &args))
	require.Equal(t, "https://example.org", args["url"])
}
