package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
)

// ClaudeCLIProvider drives the claude CLI (Claude Code) as a subprocess.
// The CLI has no native tool-calling, so the request is flattened into one
// text prompt and tool calls are recovered from the raw output afterwards.
type ClaudeCLIProvider struct {
	command string
	model   string

	// callSeq numbers synthetic tool_use ids; the CLI supplies none.
	callSeq atomic.Int64
}

// NewClaudeCLIProvider builds a provider wrapping the claude binary. An
// empty command selects "claude"; tests substitute stub binaries.
func NewClaudeCLIProvider(command, model string) *ClaudeCLIProvider {
	if command == "" {
		command = "claude"
	}
	return &ClaudeCLIProvider{command: command, model: model}
}

func (p *ClaudeCLIProvider) Name() string { return "claude-code" }

func (p *ClaudeCLIProvider) Model() string {
	if p.model == "" {
		return defaultModel
	}
	return p.model
}

// Complete flattens the request, runs the CLI once, and recovers structured
// content from its output.
func (p *ClaudeCLIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	prompt := buildCLIPrompt(req)

	if _, err := exec.LookPath(p.command); err != nil {
		return nil, &APIError{Message: fmt.Sprintf(
			"claude CLI not found (%s). Install Claude Code or run 'git-chronicle setup' to select a different provider.",
			p.command)}
	}

	args := []string{"--print"}
	if p.model != "" {
		args = append(args, "--model", p.model)
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	// The prompt goes over stdin: large histories would blow past argv
	// limits if passed as an argument.
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("claude CLI failed: %v: %s", err, bytes.TrimSpace(stderr.Bytes()))}
	}

	return p.recoverResponse(stdout.Bytes()), nil
}

// recoverResponse turns raw CLI output into normalized content blocks. With
// no trusted tool calls the whole output is a single text block; otherwise
// leading prose (if any) plus one tool_use per batched call.
func (p *ClaudeCLIProvider) recoverResponse(raw []byte) *CompletionResponse {
	batch := batchToolCalls(raw, extractToolCalls(raw))

	if len(batch) == 0 {
		return &CompletionResponse{
			Content:    []ContentBlock{TextBlock(string(raw))},
			StopReason: StopEndTurn,
		}
	}

	var content []ContentBlock
	if lead := strings.TrimSpace(string(raw[:batch[0].start])); lead != "" {
		content = append(content, TextBlock(lead))
	}
	for _, call := range batch {
		id := fmt.Sprintf("cli_call_%d", p.callSeq.Add(1))
		content = append(content, ToolUseBlock(id, call.name, call.input))
	}

	return &CompletionResponse{
		Content:    content,
		StopReason: StopToolUse,
	}
}

// buildCLIPrompt renders the normalized request as one text prompt: system
// text, the tool catalog with its calling convention, then the history as
// alternating User:/Assistant: lines.
func buildCLIPrompt(req *CompletionRequest) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("System: ")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	if len(req.Tools) > 0 {
		b.WriteString("Available tools:\n")
		for _, tool := range req.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
			schema, _ := json.Marshal(tool.InputSchema)
			fmt.Fprintf(&b, "  Input schema: %s\n", schema)
		}
		b.WriteString("\nTo use a tool, output a JSON block with {\"tool\": \"name\", \"input\": {...}}\n\n")
	}

	for _, msg := range req.Messages {
		role := "User"
		if msg.Role == RoleAssistant {
			role = "Assistant"
		}
		for _, block := range msg.Content {
			switch block.Type {
			case BlockText:
				fmt.Fprintf(&b, "%s: %s\n\n", role, block.Text)
			case BlockToolUse:
				fmt.Fprintf(&b, "%s: [tool_use: %s %s]\n\n", role, block.Name, block.Input)
			case BlockToolResult:
				tag := "Result"
				if block.IsError {
					tag = "Error"
				}
				fmt.Fprintf(&b, "%s: [tool_result: %s] %s\n\n", role, tag, block.Content)
			}
		}
	}

	return b.String()
}

// CheckAuth runs a lightweight version probe. This check cannot hard-fail:
// a missing or broken binary is reported as an invalid status.
func (p *ClaudeCLIProvider) CheckAuth(ctx context.Context) (AuthStatus, error) {
	if err := exec.CommandContext(ctx, p.command, "--version").Run(); err != nil {
		return AuthStatus{Valid: false, Reason: fmt.Sprintf("claude CLI not available: %v", err)}, nil
	}
	return AuthStatus{Valid: true}, nil
}
