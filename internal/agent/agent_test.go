package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/exedev/chronicle/internal/gather"
	"github.com/exedev/chronicle/internal/gitops"
	"github.com/exedev/chronicle/internal/llm"
)

// scriptedProvider replays canned responses and records every request it
// receives. The last response repeats once the script runs out.
type scriptedProvider struct {
	responses []*llm.CompletionResponse
	requests  []*llm.CompletionRequest
	err       error
}

func (p *scriptedProvider) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	i := len(p.requests) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) CheckAuth(context.Context) (llm.AuthStatus, error) {
	return llm.AuthStatus{Valid: true}, nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

// fakeGit serves a fixed single-file repository state.
type fakeGit struct {
	files map[string]string
}

func (g *fakeGit) CommitInfo(sha string) (*gitops.CommitInfo, error) {
	return &gitops.CommitInfo{
		SHA:        sha,
		Message:    "fix retry backoff",
		AuthorName: "Dev",
	}, nil
}

func (g *fakeGit) FileAtCommit(path, _ string) (string, error) {
	content, ok := g.files[path]
	if !ok {
		return "", fmt.Errorf("file %s not found at commit", path)
	}
	return content, nil
}

func (g *fakeGit) Diff(string) ([]gitops.FileDiff, error) {
	return []gitops.FileDiff{{
		Path: "main.go",
		Hunks: []gitops.Hunk{{
			Header: "@@ -1,1 +1,1 @@",
			Lines: []gitops.HunkLine{
				{Kind: gitops.LineRemoved, Text: "old"},
				{Kind: gitops.LineAdded, Text: "new"},
			},
		}},
	}}, nil
}

func (g *fakeGit) ResolveRef(string) (string, error) { return "abc123", nil }

func testContext() *gather.Context {
	return &gather.Context{
		CommitSHA:     "abc123",
		CommitMessage: "fix retry backoff",
		Diffs:         nil,
	}
}

const validAnnotation = `{
	"file": "main.go",
	"anchor": {"unit_type": "function", "name": "retry"},
	"lines": {"start": 10, "end": 20},
	"intent": "Caps backoff so a long outage cannot produce hour-long waits."
}`

func textResponse(text string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Content:    []llm.ContentBlock{llm.TextBlock(text)},
		StopReason: llm.StopEndTurn,
	}
}

func toolResponse(stop llm.StopReason, blocks ...llm.ContentBlock) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: blocks, StopReason: stop}
}

func TestRunEmitsAndSummarizes(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopToolUse,
			llm.TextBlock("Let me record the annotation."),
			llm.ToolUseBlock("t1", "emit_annotation", []byte(validAnnotation)),
		),
		textResponse("One annotation on the retry helper."),
	}}

	collected, summary, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary != "One annotation on the retry helper." {
		t.Errorf("summary = %q", summary)
	}
	if len(collected.Regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(collected.Regions))
	}
	if collected.Regions[0].Anchor.Name != "retry" {
		t.Errorf("anchor name = %q", collected.Regions[0].Anchor.Name)
	}

	// The second request must carry the assistant turn and the tool result.
	if len(provider.requests) != 2 {
		t.Fatalf("provider saw %d requests, want 2", len(provider.requests))
	}
	msgs := provider.requests[1].Messages
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser || last.Content[0].Type != llm.BlockToolResult {
		t.Errorf("last message is not a tool_result user turn: %+v", last)
	}
	if last.Content[0].ToolUseID != "t1" {
		t.Errorf("tool result answers %q, want t1", last.Content[0].ToolUseID)
	}
}

func TestRunToolCallOnFinalResponseStillDispatched(t *testing.T) {
	// end_turn with a tool_use in the same response: the call must still be
	// dispatched even though the loop terminates.
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopEndTurn,
			llm.ToolUseBlock("t1", "emit_annotation", []byte(validAnnotation)),
		),
	}}

	collected, summary, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(provider.requests) != 1 {
		t.Errorf("provider saw %d requests, want 1", len(provider.requests))
	}
	if len(collected.Regions) != 1 {
		t.Errorf("got %d regions, want 1", len(collected.Regions))
	}
	if summary != "Annotation complete." {
		t.Errorf("summary = %q, want default", summary)
	}
}

func TestRunNoAnnotations(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		textResponse("Nothing non-obvious here."),
	}}

	_, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	var noAnn *NoAnnotationsError
	if !errors.As(err, &noAnn) {
		t.Fatalf("err = %v, want NoAnnotationsError", err)
	}
}

func TestRunMaxTurnsExceeded(t *testing.T) {
	// The model keeps asking for the diff and never terminates.
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopToolUse, llm.ToolUseBlock("t1", "get_diff", []byte(`{}`))),
	}}

	_, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{MaxTurns: 3})
	var exceeded *MaxTurnsExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want MaxTurnsExceededError", err)
	}
	if exceeded.Turns != 3 {
		t.Errorf("Turns = %d, want 3", exceeded.Turns)
	}
	if len(provider.requests) != 3 {
		t.Errorf("provider saw %d requests, want exactly 3", len(provider.requests))
	}
}

func TestRunUnknownToolContinues(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopToolUse, llm.ToolUseBlock("t1", "frobnicate", []byte(`{}`))),
		toolResponse(llm.StopToolUse, llm.ToolUseBlock("t2", "emit_annotation", []byte(validAnnotation))),
		textResponse("Done."),
	}}

	collected, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(collected.Regions) != 1 {
		t.Errorf("got %d regions, want 1", len(collected.Regions))
	}

	msgs := provider.requests[1].Messages
	result := msgs[len(msgs)-1].Content[0]
	if result.IsError {
		t.Error("unknown tool result flagged as error; it must stay a normal result")
	}
	if result.Content != "Unknown tool: frobnicate" {
		t.Errorf("result content = %q", result.Content)
	}
}

func TestRunHandlerErrorFlagsResult(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopToolUse,
			llm.ToolUseBlock("t1", "emit_annotation", []byte(`{"file": "main.go"}`)),
		),
		toolResponse(llm.StopToolUse, llm.ToolUseBlock("t2", "emit_annotation", []byte(validAnnotation))),
		textResponse("Done."),
	}}

	_, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := provider.requests[1].Messages
	result := msgs[len(msgs)-1].Content[0]
	if !result.IsError {
		t.Error("invalid annotation result not flagged as error")
	}
	if !strings.HasPrefix(result.Content, "Error:") {
		t.Errorf("result content = %q, want Error: prefix", result.Content)
	}
}

func TestRunProviderErrorIsFatal(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection reset")}

	_, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "provider scripted") {
		t.Errorf("err = %v, want provider name in message", err)
	}
}

func TestRunMultipleCallsInOneTurn(t *testing.T) {
	crossCutting, _ := json.Marshal(map[string]any{
		"theme":  "backoff rename",
		"intent": "retryWait became backoff everywhere",
	})
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		toolResponse(llm.StopToolUse,
			llm.ToolUseBlock("t1", "emit_annotation", []byte(validAnnotation)),
			llm.ToolUseBlock("t2", "emit_cross_cutting", crossCutting),
		),
		textResponse("Recorded both."),
	}}

	collected, _, err := Run(context.Background(), provider, &fakeGit{}, testContext(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if collected.Count() != 2 {
		t.Errorf("Count() = %d, want 2", collected.Count())
	}

	// Both results land in one user message, in call order.
	msgs := provider.requests[1].Messages
	last := msgs[len(msgs)-1]
	if len(last.Content) != 2 {
		t.Fatalf("result message has %d blocks, want 2", len(last.Content))
	}
	if last.Content[0].ToolUseID != "t1" || last.Content[1].ToolUseID != "t2" {
		t.Errorf("result order = %q, %q", last.Content[0].ToolUseID, last.Content[1].ToolUseID)
	}
}
