package agent

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/exedev/chronicle/internal/gather"
	"github.com/exedev/chronicle/internal/gitops"
	"github.com/exedev/chronicle/internal/llm"
	"github.com/exedev/chronicle/internal/outline"
	"github.com/exedev/chronicle/internal/schema"
)

// Collected accumulates the structured records emitted during one run. Each
// run owns its accumulator exclusively; nothing here is shared.
type Collected struct {
	Regions      []schema.RegionAnnotation
	CrossCutting []schema.CrossCuttingConcern
}

// Count returns the total number of accumulated records.
func (c *Collected) Count() int {
	return len(c.Regions) + len(c.CrossCutting)
}

// toolEnv is what every handler runs against: the read-only collaborators
// plus the run's accumulator.
type toolEnv struct {
	git       gitops.GitOps
	ctx       *gather.Context
	collected *Collected
}

// toolHandler executes one tool call and returns the result text.
type toolHandler func(env *toolEnv, input json.RawMessage) (string, error)

var toolHandlers = map[string]toolHandler{
	"get_diff":           handleGetDiff,
	"get_file_content":   handleGetFileContent,
	"get_ast_outline":    handleGetASTOutline,
	"get_commit_info":    handleGetCommitInfo,
	"emit_annotation":    handleEmitAnnotation,
	"emit_cross_cutting": handleEmitCrossCutting,
}

// dispatchTool resolves a call by exact name. Unknown names produce a
// textual result, not an error: dispatch never aborts a turn.
func dispatchTool(name string, input json.RawMessage, env *toolEnv) (string, error) {
	handler, ok := toolHandlers[name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}
	return handler(env, input)
}

func handleGetDiff(env *toolEnv, _ json.RawMessage) (string, error) {
	return gather.RenderDiff(env.ctx.Diffs), nil
}

func handleGetFileContent(env *toolEnv, input json.RawMessage) (string, error) {
	path := gjson.GetBytes(input, "path").String()
	if path == "" {
		return "", fmt.Errorf("get_file_content requires a 'path' parameter")
	}
	return env.git.FileAtCommit(path, env.ctx.CommitSHA)
}

// handleGetASTOutline never returns an error: outline extraction is
// best-effort and its failures go back to the model as plain text.
func handleGetASTOutline(env *toolEnv, input json.RawMessage) (string, error) {
	path := gjson.GetBytes(input, "path").String()
	if path == "" {
		return "", fmt.Errorf("get_ast_outline requires a 'path' parameter")
	}

	content, err := env.git.FileAtCommit(path, env.ctx.CommitSHA)
	if err != nil {
		return fmt.Sprintf("Could not read %s: %v", path, err), nil
	}

	lang := gjson.GetBytes(input, "language").String()
	if lang == "" {
		lang = outline.LangForPath(path)
	}
	units, err := outline.Outline(content, lang)
	if err != nil {
		return fmt.Sprintf("No outline available for %s: %v", path, err), nil
	}
	if len(units) == 0 {
		return fmt.Sprintf("No semantic units found in %s", path), nil
	}
	return outline.Format(units), nil
}

func handleGetCommitInfo(env *toolEnv, _ json.RawMessage) (string, error) {
	return fmt.Sprintf("SHA: %s\nMessage: %s\nAuthor: %s <%s>\nTimestamp: %s",
		env.ctx.CommitSHA,
		env.ctx.CommitMessage,
		env.ctx.AuthorName,
		env.ctx.AuthorEmail,
		env.ctx.Timestamp,
	), nil
}

func handleEmitAnnotation(env *toolEnv, input json.RawMessage) (string, error) {
	var record schema.RegionAnnotation
	if err := json.Unmarshal(input, &record); err != nil {
		return "", fmt.Errorf("invalid annotation: %w", err)
	}
	if err := record.Validate(); err != nil {
		return "", err
	}
	env.collected.Regions = append(env.collected.Regions, record)
	return fmt.Sprintf("Annotation recorded. Total annotations: %d", len(env.collected.Regions)), nil
}

func handleEmitCrossCutting(env *toolEnv, input json.RawMessage) (string, error) {
	var record schema.CrossCuttingConcern
	if err := json.Unmarshal(input, &record); err != nil {
		return "", fmt.Errorf("invalid cross-cutting concern: %w", err)
	}
	if err := record.Validate(); err != nil {
		return "", err
	}
	env.collected.CrossCutting = append(env.collected.CrossCutting, record)
	return fmt.Sprintf("Cross-cutting concern recorded. Total concerns: %d", len(env.collected.CrossCutting)), nil
}

// toolDefinitions returns the fixed catalog advertised to the model,
// identical every turn.
func toolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "get_diff",
			Description: "Get the full unified diff for this commit.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_file_content",
			Description: "Get the content of a file at this commit.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string", "description": "Path of the file to read"},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "get_ast_outline",
			Description: "Get the semantic outline of a file at this commit: functions, methods, and types with their line ranges and signatures. Use this to find anchors for annotations.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":     map[string]any{"type": "string", "description": "Path of the file to outline"},
					"language": map[string]any{"type": "string", "description": "Optional language hint; inferred from the extension when omitted"},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "get_commit_info",
			Description: "Get commit metadata: SHA, message, author, timestamp.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name: "emit_annotation",
			Description: "Record a structured annotation for one region of one file. " +
				"Anchor it to a semantic unit from the outline and state the intent behind the change.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file": map[string]any{"type": "string", "description": "File path"},
					"anchor": map[string]any{
						"type":        "object",
						"description": "The semantic unit this annotation is tied to",
						"properties": map[string]any{
							"unit_type": map[string]any{"type": "string", "description": "e.g. function, method, struct, class"},
							"name":      map[string]any{"type": "string"},
							"signature": map[string]any{"type": "string"},
						},
						"required": []string{"unit_type", "name"},
					},
					"lines": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"start": map[string]any{"type": "integer"},
							"end":   map[string]any{"type": "integer"},
						},
						"required": []string{"start", "end"},
					},
					"intent":       map[string]any{"type": "string", "description": "What this region is for and WHY it is written this way. Not a code restatement."},
					"reasoning":    map[string]any{"type": "string", "description": "The reasoning behind the approach, if known"},
					"constraints":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Invariants or preconditions this code relies on"},
					"dependencies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Other files or units this region assumes things about"},
					"tags":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"risk_notes":   map[string]any{"type": "string", "description": "What could break if this is misunderstood"},
				},
				"required": []string{"file", "anchor", "lines", "intent"},
			},
		},
		{
			Name: "emit_cross_cutting",
			Description: "Record a concern that spans multiple files or regions and has no single anchor: " +
				"a renamed concept, a changed invariant, a migration in progress.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"theme":      map[string]any{"type": "string", "description": "Short name for the concern"},
					"intent":     map[string]any{"type": "string", "description": "What the concern is and why it matters"},
					"files":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Files the concern touches"},
					"reasoning":  map[string]any{"type": "string"},
					"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"risk_notes": map[string]any{"type": "string"},
				},
				"required": []string{"theme", "intent"},
			},
		},
	}
}
