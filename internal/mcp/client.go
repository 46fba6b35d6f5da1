// Package mcp implements the stdio client side of the Model Context Protocol:
// it launches a tool-server script as a subprocess and speaks newline-delimited
// JSON-RPC 2.0 over its stdin/stdout.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/schema"
)

const protocolVersion = "2024-11-05"

// Client manages one tool-server session. It is created disconnected; Connect
// launches the subprocess and performs the handshake. All exported call
// operations are stateless and safe for concurrent use (one RPC is in flight
// at a time).
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu     sync.Mutex
	nextID int64
	ready  atomic.Bool

	catalog []schema.ToolDescriptor

	shutdownOnce sync.Once
}

// NewClient returns a disconnected client.
func NewClient() *Client {
	return &Client{}
}

// interpreterFor maps the script extension to the interpreter that runs it.
func interpreterFor(scriptPath string) (string, error) {
	switch filepath.Ext(scriptPath) {
	case ".py":
		return "python", nil
	case ".js":
		return "node", nil
	default:
		return "", apperr.Errorf(apperr.KindInvalid, "mcp.connect",
			"server script must be a .py or .js file, got %q", scriptPath)
	}
}

// Connect launches the tool-server script, performs the initialize handshake,
// and retrieves the tool catalog. On any failure the subprocess and any
// partially-opened pipes are torn down before returning.
func (c *Client) Connect(ctx context.Context, scriptPath string) error {
	command, err := interpreterFor(scriptPath)
	if err != nil {
		return err
	}

	slog.Info("connecting to tool server", "script", scriptPath, "interpreter", command)

	cmd := exec.CommandContext(ctx, command, scriptPath)
	cmd.Stderr = os.Stderr

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return apperr.E(apperr.KindConnection, "mcp.connect", fmt.Errorf("stdin pipe: %w", err))
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return apperr.E(apperr.KindConnection, "mcp.connect", fmt.Errorf("stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return apperr.E(apperr.KindConnection, "mcp.connect", fmt.Errorf("start tool server: %w", err))
	}

	c.cmd = cmd
	c.attach(stdinPipe, stdoutPipe)

	if err := c.handshake(ctx); err != nil {
		c.teardown()
		return apperr.E(apperr.KindConnection, "mcp.connect", err)
	}

	names := make([]string, len(c.catalog))
	for i, t := range c.catalog {
		names[i] = t.Name
	}
	slog.Info("connected to tool server", "tools", names)
	return nil
}

// attach binds the client to a transport. Separated from Connect so the
// protocol layer can be exercised over in-memory pipes.
func (c *Client) attach(stdin io.WriteCloser, stdout io.Reader) {
	c.stdin = stdin
	c.stdout = bufio.NewReader(stdout)
}

// handshake runs initialize, sends the initialized notification, and caches
// the tool catalog. Marks the session ready on success.
func (c *Client) handshake(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "toolbridge", "version": "0.1.0"},
	}
	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.notify("notifications/initialized"); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	c.catalog = catalog
	c.ready.Store(true)
	return nil
}

func (c *Client) fetchCatalog(ctx context.Context) ([]schema.ToolDescriptor, error) {
	resp, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}

	catalog := make([]schema.ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		in := t.InputSchema
		if len(in) == 0 {
			in = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		catalog = append(catalog, schema.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: in,
		})
	}
	return catalog, nil
}

// Tools returns the catalog cached at connect time.
func (c *Client) Tools() ([]schema.ToolDescriptor, error) {
	if !c.ready.Load() {
		return nil, apperr.Errorf(apperr.KindProtocol, "mcp.tools", "session not initialized")
	}
	return c.catalog, nil
}

// CallTool forwards a single tools/call to the server and returns the raw
// structured content of the result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if !c.ready.Load() {
		return nil, apperr.Errorf(apperr.KindProtocol, "mcp.call_tool", "session not initialized")
	}
	if args == nil {
		args = map[string]any{}
	}

	resp, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, apperr.E(apperr.KindToolExecution, "mcp.call_tool",
			fmt.Errorf("tool %q: %w", name, err))
	}

	var result struct {
		Content json.RawMessage `json:"content"`
		IsError bool            `json:"isError"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.E(apperr.KindToolExecution, "mcp.call_tool",
			fmt.Errorf("tool %q: decode result: %w", name, err))
	}
	if result.IsError {
		return nil, apperr.Errorf(apperr.KindToolExecution, "mcp.call_tool",
			"tool %q failed: %s", name, flattenText(result.Content))
	}
	if len(result.Content) == 0 {
		result.Content = json.RawMessage(`[]`)
	}
	return result.Content, nil
}

// flattenText joins the text blocks of a content payload for error messages.
func flattenText(content json.RawMessage) string {
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &blocks); err != nil {
		return string(content)
	}
	var parts []string
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return "(no output)"
	}
	return strings.Join(parts, "\n")
}

// Shutdown closes the transport and terminates the subprocess. Safe to call
// when connection never succeeded; runs exactly once.
func (c *Client) Shutdown() {
	c.shutdownOnce.Do(func() {
		slog.Info("shutting down tool server")
		c.teardown()
	})
}

func (c *Client) teardown() {
	c.ready.Store(false)
	if c.stdin != nil {
		c.stdin.Close() //nolint:errcheck
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill() //nolint:errcheck
		c.cmd.Wait()         //nolint:errcheck
	}
}
