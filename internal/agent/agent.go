// Package agent runs the annotation conversation: a bounded turn-taking
// loop between an LLM provider and the tool catalog, accumulating
// structured records until the model signals it is done.
package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/exedev/chronicle/internal/gather"
	"github.com/exedev/chronicle/internal/gitops"
	"github.com/exedev/chronicle/internal/llm"
)

const (
	defaultMaxTurns = 20
	maxTokens       = 4096

	// defaultSummary replaces an empty model summary on a successful run.
	defaultSummary = "Annotation complete."
)

// MaxTurnsExceededError means the model never signalled termination within
// the turn bound.
type MaxTurnsExceededError struct {
	Turns int
}

func (e *MaxTurnsExceededError) Error() string {
	return fmt.Sprintf("agent exceeded %d turns without finishing", e.Turns)
}

// NoAnnotationsError means the run terminated cleanly but produced zero
// structured records.
type NoAnnotationsError struct{}

func (e *NoAnnotationsError) Error() string {
	return "agent produced no annotations"
}

// Options tunes one run. The zero value gives defaults.
type Options struct {
	MaxTurns int
	Logger   *log.Logger
}

// Run drives the annotation loop for one commit. It returns the accumulated
// records and the model's closing summary, or a typed failure. Provider
// errors are fatal to the run; retry is the provider's own concern.
func Run(ctx context.Context, provider llm.Provider, git gitops.GitOps, gctx *gather.Context, opts Options) (*Collected, string, error) {
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	systemPrompt := buildSystemPrompt(gctx)
	tools := toolDefinitions()

	messages := []llm.Message{{
		Role:    llm.RoleUser,
		Content: []llm.ContentBlock{llm.TextBlock("Please annotate this commit.")},
	}}

	collected := &Collected{}
	env := &toolEnv{git: git, ctx: gctx, collected: collected}
	summary := ""

	for turn := 0; turn < maxTurns; turn++ {
		req := &llm.CompletionRequest{
			System:    systemPrompt,
			Messages:  messages,
			Tools:     tools,
			MaxTokens: maxTokens,
		}

		resp, err := provider.Complete(ctx, req)
		if err != nil {
			return nil, "", fmt.Errorf("provider %s: %w", provider.Name(), err)
		}

		text := resp.TextContent()
		uses := resp.ToolUses()

		// The full response content goes into history, text included: the
		// model's rationale alongside tool calls is the fallback summary.
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

		if len(uses) == 0 {
			summary = text
			break
		}

		results := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			if opts.Logger != nil {
				opts.Logger.Printf("  🔧 Tool: %s", use.Name)
			}
			content, toolErr := dispatchTool(use.Name, use.Input, env)
			if toolErr != nil {
				if opts.Logger != nil {
					opts.Logger.Printf("  ⚠ Tool error: %v", toolErr)
				}
				results = append(results, llm.ToolResultBlock(use.ID, fmt.Sprintf("Error: %v", toolErr), true))
				continue
			}
			results = append(results, llm.ToolResultBlock(use.ID, content, false))
		}

		// Every tool_use must be answered in the immediately following user
		// message, even when this turn also ends the conversation.
		// A transcript with an unanswered tool_use is structurally invalid.
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: results})

		if resp.StopReason == llm.StopEndTurn || resp.StopReason == llm.StopMaxTokens {
			summary = text
			break
		}

		if turn+1 >= maxTurns {
			return nil, "", &MaxTurnsExceededError{Turns: maxTurns}
		}
	}

	if collected.Count() == 0 {
		return nil, "", &NoAnnotationsError{}
	}
	if summary == "" {
		summary = defaultSummary
	}
	return collected, summary, nil
}
