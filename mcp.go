package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var errNotRunning = errors.New("samos-shell is not running")

// MCP tool input/output types

type EmptyInput struct{}

type ShowPageOutput struct {
	Topic string `json:"topic" jsonschema:"the ipc topic that was sent"`
}

type FocusOutput struct {
	Success bool `json:"success" jsonschema:"whether the running shell acknowledged the request"`
}

type StatusOutput struct {
	Ready         bool   `json:"ready" jsonschema:"whether the shell may show the samos UI"`
	URL           string `json:"url" jsonschema:"the URL samos serves"`
	Window        bool   `json:"window" jsonschema:"whether a window is open"`
	ServerPID     int    `json:"server_pid" jsonschema:"pid of the samos child process"`
	ServerRunning bool   `json:"server_running" jsonschema:"whether the samos child process is alive"`
	ServerReady   bool   `json:"server_ready" jsonschema:"whether the live samos child printed its listening marker"`
	LastEvent     *Event `json:"last_event,omitempty" jsonschema:"the most recent shell lifecycle event"`
}

// bridge forwards MCP tool calls to a running shell's control endpoint.
type bridge struct {
	// baseURL returns the control URL of the running shell, or "".
	baseURL func() string
}

func (b bridge) url() (string, error) {
	u := b.baseURL()
	if u == "" {
		return "", errNotRunning
	}
	return u, nil
}

func (b bridge) showPage(topic string) (ShowPageOutput, error) {
	u, err := b.url()
	if err != nil {
		return ShowPageOutput{}, err
	}
	if err := postControl(u, "/api/ipc/"+topic); err != nil {
		return ShowPageOutput{}, err
	}
	return ShowPageOutput{Topic: topic}, nil
}

func (b bridge) focus() (FocusOutput, error) {
	u, err := b.url()
	if err != nil {
		return FocusOutput{}, err
	}
	if err := activateExisting(u); err != nil {
		return FocusOutput{}, err
	}
	return FocusOutput{Success: true}, nil
}

func (b bridge) status() (StatusOutput, error) {
	u, err := b.url()
	if err != nil {
		return StatusOutput{}, err
	}
	resp, err := controlClient.Get(u + "/api/status")
	if err != nil {
		return StatusOutput{}, fmt.Errorf("contact running instance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return StatusOutput{}, fmt.Errorf("status: %s", resp.Status)
	}
	var out StatusOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusOutput{}, fmt.Errorf("decode status: %w", err)
	}
	return out, nil
}

func newMCPServer(b bridge) *mcp.Server {
	s := mcp.NewServer(
		&mcp.Implementation{
			Name:    "samos-shell",
			Version: "1.0.0",
		},
		nil,
	)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "show_default",
		Description: "Show the samos start page in the running window",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, ShowPageOutput, error) {
		out, err := b.showPage(topicDefault)
		return nil, out, err
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "show_filemanage",
		Description: "Show the samos file manager in the running window",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, ShowPageOutput, error) {
		out, err := b.showPage(topicFileManage)
		return nil, out, err
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "focus",
		Description: "Bring the samos window to the front, reopening it if it was closed",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, FocusOutput, error) {
		out, err := b.focus()
		return nil, out, err
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "status",
		Description: "Report whether samos is ready and a window is open",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, StatusOutput, error) {
		out, err := b.status()
		return nil, out, err
	})

	return s
}

// runMCP serves the tools over stdio until the client disconnects.
func runMCP(ctx context.Context) error {
	s := newMCPServer(bridge{baseURL: checkExisting})
	fmt.Fprintln(os.Stderr, "samos-shell MCP bridge on stdio")
	if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
