package workflow

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/surfbridge/surf/internal/protocol"
)

// Client is a minimal local-socket client: one JSON line per request, one
// JSON line per reply, correlated by id — the same wire shape any other
// bridge client uses, per §6.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial bridge socket: %w", err)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Call issues one tool request and blocks for its reply. The workflow
// engine never has more than one request in flight per Client, so
// matching the next line on the wire to this call is always correct.
func (c *Client) Call(tool string, args map[string]any, tabID string, softFail bool) (*protocol.Response, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	req := protocol.Request{
		Type: "tool_request",
		ID:   uuid.NewString(),
		Params: protocol.ToolParams{
			Tool:     tool,
			Args:     rawArgs,
			TabID:    tabID,
			SoftFail: softFail,
		},
	}
	if err := c.enc.Encode(&req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp protocol.Response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return &resp, nil
}
