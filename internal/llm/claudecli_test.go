package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeStub creates an executable shell script that drains stdin and prints
// the given output.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClaudeCLICompleteText(t *testing.T) {
	stub := writeStub(t, "cat >/dev/null\necho 'The change looks routine.'")
	p := NewClaudeCLIProvider(stub, "")

	resp, err := p.Complete(context.Background(), &CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: []ContentBlock{TextBlock("annotate")}}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.StopReason != StopEndTurn {
		t.Errorf("StopReason = %q, want %q", resp.StopReason, StopEndTurn)
	}
	if got := strings.TrimSpace(resp.TextContent()); got != "The change looks routine." {
		t.Errorf("TextContent = %q", got)
	}
}

func TestClaudeCLICompleteRecoversToolCalls(t *testing.T) {
	stub := writeStub(t, `cat >/dev/null
echo 'Let me check the diff.'
echo '{"tool": "get_diff", "input": {}}'
echo '{"tool": "get_commit_info", "input": {}}'`)
	p := NewClaudeCLIProvider(stub, "")

	resp, err := p.Complete(context.Background(), &CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: []ContentBlock{TextBlock("annotate")}}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.StopReason != StopToolUse {
		t.Errorf("StopReason = %q, want %q", resp.StopReason, StopToolUse)
	}

	uses := resp.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("got %d tool uses, want 2", len(uses))
	}
	if uses[0].ID != "cli_call_1" || uses[1].ID != "cli_call_2" {
		t.Errorf("ids = %q, %q, want cli_call_1, cli_call_2", uses[0].ID, uses[1].ID)
	}
	if uses[0].Name != "get_diff" || uses[1].Name != "get_commit_info" {
		t.Errorf("names = %q, %q", uses[0].Name, uses[1].Name)
	}
	if got := resp.TextContent(); got != "Let me check the diff." {
		t.Errorf("leading text = %q", got)
	}
}

func TestClaudeCLICallIDsAreMonotonic(t *testing.T) {
	p := NewClaudeCLIProvider("claude", "")

	first := p.recoverResponse([]byte(`{"tool": "get_diff", "input": {}}`))
	second := p.recoverResponse([]byte(`{"tool": "get_diff", "input": {}}`))

	if id := first.ToolUses()[0].ID; id != "cli_call_1" {
		t.Errorf("first id = %q, want cli_call_1", id)
	}
	if id := second.ToolUses()[0].ID; id != "cli_call_2" {
		t.Errorf("second id = %q, want cli_call_2", id)
	}
}

func TestClaudeCLICommandMissing(t *testing.T) {
	p := NewClaudeCLIProvider("definitely-not-a-real-binary-xyz", "")

	_, err := p.Complete(context.Background(), &CompletionRequest{})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "git-chronicle setup") {
		t.Errorf("error should mention setup: %v", err)
	}
}

func TestClaudeCLICommandFailure(t *testing.T) {
	stub := writeStub(t, "cat >/dev/null\necho 'not logged in' >&2\nexit 1")
	p := NewClaudeCLIProvider(stub, "")

	_, err := p.Complete(context.Background(), &CompletionRequest{})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestClaudeCLICheckAuth(t *testing.T) {
	good := writeStub(t, "exit 0")
	p := NewClaudeCLIProvider(good, "")
	status, err := p.CheckAuth(context.Background())
	if err != nil {
		t.Fatalf("CheckAuth: %v", err)
	}
	if !status.Valid {
		t.Errorf("status.Valid = false, want true: %s", status.Reason)
	}

	p = NewClaudeCLIProvider("definitely-not-a-real-binary-xyz", "")
	status, err = p.CheckAuth(context.Background())
	if err != nil {
		t.Fatalf("CheckAuth must not hard-fail: %v", err)
	}
	if status.Valid {
		t.Error("status.Valid = true for missing binary")
	}
}

func TestBuildCLIPrompt(t *testing.T) {
	req := &CompletionRequest{
		System: "You annotate commits.",
		Tools: []ToolDefinition{{
			Name:        "get_diff",
			Description: "Get the full diff",
			InputSchema: map[string]any{"type": "object"},
		}},
		Messages: []Message{
			{Role: RoleUser, Content: []ContentBlock{TextBlock("Please annotate this commit.")}},
			{Role: RoleAssistant, Content: []ContentBlock{
				ToolUseBlock("cli_call_1", "get_diff", []byte(`{}`)),
			}},
			{Role: RoleUser, Content: []ContentBlock{
				ToolResultBlock("cli_call_1", "diff text", false),
			}},
		},
	}

	prompt := buildCLIPrompt(req)

	for _, want := range []string{
		"System: You annotate commits.",
		"Available tools:",
		"- get_diff: Get the full diff",
		`{"tool": "name", "input": {...}}`,
		"User: Please annotate this commit.",
		"Assistant: [tool_use: get_diff {}]",
		"User: [tool_result: Result] diff text",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}
}
