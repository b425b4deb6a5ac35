package agent

import (
	"fmt"
	"strings"

	"github.com/exedev/chronicle/internal/gather"
)

// buildSystemPrompt renders the immutable system prompt for one run.
func buildSystemPrompt(ctx *gather.Context) string {
	var b strings.Builder

	b.WriteString(
		"You are an expert code annotator. Your role is to analyze the code changes " +
			"in a git commit and produce structured annotations that capture the intent " +
			"behind each changed region: what it is for, why it is written this way, and " +
			"what a future developer must not misunderstand.\n\n")

	b.WriteString(
		"## Annotation model\n\n" +
			"1. **Region annotations**: tied to a semantic unit (function, method, type) in one file. " +
			"State the intent, and where relevant the reasoning, constraints, dependencies, and risks.\n" +
			"2. **Cross-cutting concerns**: themes that span files and have no single anchor, " +
			"such as a renamed concept or a changed invariant.\n\n" +
			"DO NOT annotate every changed line. Only emit records where there is something " +
			"genuinely non-obvious that a future developer needs to know.\n\n")

	if ac := ctx.Author; ac != nil {
		b.WriteString(
			"## Context Level: Enhanced\n\n" +
				"The commit author provided context about this change. Weight this information " +
				"heavily in your annotations:\n\n")
		if ac.Task != "" {
			fmt.Fprintf(&b, "- **Task**: %s\n", ac.Task)
		}
		if ac.Reasoning != "" {
			fmt.Fprintf(&b, "- **Author reasoning**: %s\n", ac.Reasoning)
		}
		if ac.Dependencies != "" {
			fmt.Fprintf(&b, "- **Dependencies noted**: %s\n", ac.Dependencies)
		}
		if len(ac.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags**: %s\n", strings.Join(ac.Tags, ", "))
		}
		b.WriteString("\nUse the author's reasoning as the primary basis for intent and reasoning fields.\n\n")
	} else {
		b.WriteString(
			"## Context Level: Inferred\n\n" +
				"No author context was provided. Be conservative: focus on what is clearly " +
				"evident from the code and commit message, and avoid speculating about " +
				"motivation when it is not clear.\n\n")
	}

	fmt.Fprintf(&b, "## Commit Message\n\n```\n%s\n```\n\n", ctx.CommitMessage)

	b.WriteString(
		"## Instructions\n\n" +
			"1. Use `get_diff` to examine the full diff\n" +
			"2. Use `get_ast_outline` and `get_file_content` to understand the changed files\n" +
			"3. Use `get_commit_info` if you need additional commit metadata\n" +
			"4. Call `emit_annotation` for each region with non-obvious intent\n" +
			"5. Call `emit_cross_cutting` for concerns that span files\n" +
			"6. After emitting, provide a brief summary\n\n" +
			"A typical commit produces 1-3 records total, not one per function.\n")

	return b.String()
}
