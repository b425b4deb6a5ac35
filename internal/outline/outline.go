// Package outline extracts named semantic units (functions, types, classes)
// with line ranges from source text. It backs the agent's get_ast_outline
// tool; failures here are surfaced to the model as text, never as run
// errors.
package outline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Unit is one named semantic region of a source file.
type Unit struct {
	Type      string // "function", "method", "struct", "interface", "type", "class"
	Name      string
	Signature string
	StartLine int // 1-based, inclusive
	EndLine   int
}

// Outline extracts the units of src for the given language hint.
func Outline(src, lang string) ([]Unit, error) {
	switch strings.ToLower(lang) {
	case "go":
		return goOutline(src)
	case "python", "py":
		return pythonOutline(src), nil
	case "javascript", "js", "typescript", "ts":
		return scriptOutline(src), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// LangForPath guesses the language hint from a file extension.
func LangForPath(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	default:
		return ""
	}
}

// Format renders units as one line each for the tool result.
func Format(units []Unit) string {
	var b strings.Builder
	for _, u := range units {
		fmt.Fprintf(&b, "%s %s (lines %d-%d)", u.Type, u.Name, u.StartLine, u.EndLine)
		if u.Signature != "" {
			fmt.Fprintf(&b, ": %s", u.Signature)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
