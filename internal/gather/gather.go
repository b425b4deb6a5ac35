// Package gather assembles the context bundle a single annotation run
// works from: commit metadata, the structured diff, and any author-supplied
// context.
package gather

import (
	"fmt"
	"os"
	"strings"

	"github.com/exedev/chronicle/internal/gitops"
)

// AuthorContext is optional context the commit author supplied at commit
// time, read from the environment.
type AuthorContext struct {
	Task         string
	Reasoning    string
	Dependencies string
	Tags         []string
}

// Context is everything the agent loop needs about one commit. It is
// immutable for the duration of a run.
type Context struct {
	CommitSHA     string
	CommitMessage string
	AuthorName    string
	AuthorEmail   string
	Timestamp     string
	Diffs         []gitops.FileDiff
	Author        *AuthorContext
}

// BuildContext resolves the commit and collects its diff plus author
// context.
func BuildContext(git gitops.GitOps, commit string) (*Context, error) {
	info, err := git.CommitInfo(commit)
	if err != nil {
		return nil, fmt.Errorf("gather commit info: %w", err)
	}

	diffs, err := git.Diff(info.SHA)
	if err != nil {
		return nil, fmt.Errorf("gather diff: %w", err)
	}

	return &Context{
		CommitSHA:     info.SHA,
		CommitMessage: info.Message,
		AuthorName:    info.AuthorName,
		AuthorEmail:   info.AuthorEmail,
		Timestamp:     info.Timestamp,
		Diffs:         diffs,
		Author:        authorContextFromEnv(),
	}, nil
}

// authorContextFromEnv reads CHRONICLE_* variables. Returns nil when the
// author supplied nothing.
func authorContextFromEnv() *AuthorContext {
	ctx := &AuthorContext{
		Task:         os.Getenv("CHRONICLE_TASK"),
		Reasoning:    os.Getenv("CHRONICLE_REASONING"),
		Dependencies: os.Getenv("CHRONICLE_DEPENDENCIES"),
	}
	if tags := os.Getenv("CHRONICLE_TAGS"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				ctx.Tags = append(ctx.Tags, t)
			}
		}
	}

	if ctx.Task == "" && ctx.Reasoning == "" && ctx.Dependencies == "" && len(ctx.Tags) == 0 {
		return nil
	}
	return ctx
}

// RenderDiff renders the structured diff as unified text for the get_diff
// tool.
func RenderDiff(diffs []gitops.FileDiff) string {
	var b strings.Builder
	for _, d := range diffs {
		oldPath := d.OldPath
		if oldPath == "" {
			oldPath = d.Path
		}
		fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", oldPath, d.Path)
		for _, h := range d.Hunks {
			b.WriteString(h.Header)
			b.WriteByte('\n')
			for _, line := range h.Lines {
				switch line.Kind {
				case gitops.LineAdded:
					b.WriteByte('+')
				case gitops.LineRemoved:
					b.WriteByte('-')
				default:
					b.WriteByte(' ')
				}
				b.WriteString(line.Text)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
