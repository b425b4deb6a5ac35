package gitops

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// contextLines is the number of unchanged lines kept around each change,
// matching git's default unified diff.
const contextLines = 3

// GoGitOps implements GitOps on an opened go-git repository.
type GoGitOps struct {
	repo *git.Repository
}

// Open opens the repository containing path, searching upward for .git.
func Open(path string) (*GoGitOps, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}
	return &GoGitOps{repo: repo}, nil
}

func (g *GoGitOps) ResolveRef(ref string) (string, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return hash.String(), nil
}

func (g *GoGitOps) commit(sha string) (*object.Commit, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("commit not found: %s: %w", sha, err)
	}
	return g.repo.CommitObject(*hash)
}

func (g *GoGitOps) CommitInfo(sha string) (*CommitInfo, error) {
	commit, err := g.commit(sha)
	if err != nil {
		return nil, err
	}

	parents := make([]string, 0, commit.NumParents())
	for _, h := range commit.ParentHashes {
		parents = append(parents, h.String())
	}

	return &CommitInfo{
		SHA:         commit.Hash.String(),
		Message:     strings.TrimRight(commit.Message, "\n"),
		AuthorName:  commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		Timestamp:   commit.Author.When.Format(time.RFC3339),
		ParentSHAs:  parents,
	}, nil
}

func (g *GoGitOps) FileAtCommit(path, sha string) (string, error) {
	commit, err := g.commit(sha)
	if err != nil {
		return "", err
	}
	file, err := commit.File(path)
	if err != nil {
		return "", fmt.Errorf("file not found: %s at %s: %w", path, sha, err)
	}
	return file.Contents()
}

func (g *GoGitOps) Diff(sha string) ([]FileDiff, error) {
	commit, err := g.commit(sha)
	if err != nil {
		return nil, err
	}

	if commit.NumParents() == 0 {
		return g.rootDiff(commit)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("load parent of %s: %w", sha, err)
	}
	patch, err := parent.Patch(commit)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", sha, err)
	}

	var diffs []FileDiff
	for _, fp := range patch.FilePatches() {
		fd := FileDiff{}
		from, to := fp.Files()
		if to != nil {
			fd.Path = to.Path()
		}
		if from != nil {
			fd.OldPath = from.Path()
			if fd.Path == "" {
				// Deleted file: keep the old path so tools can name it.
				fd.Path = from.Path()
			}
		}
		if !fp.IsBinary() {
			fd.Hunks = buildHunks(fp.Chunks())
		}
		diffs = append(diffs, fd)
	}
	return diffs, nil
}

// rootDiff renders a parentless commit as all-added files.
func (g *GoGitOps) rootDiff(commit *object.Commit) ([]FileDiff, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	var diffs []FileDiff
	err = tree.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		lines := splitLines(content)
		hunk := Hunk{Header: fmt.Sprintf("@@ -0,0 +1,%d @@", len(lines))}
		for _, l := range lines {
			hunk.Lines = append(hunk.Lines, HunkLine{Kind: LineAdded, Text: l})
		}
		diffs = append(diffs, FileDiff{Path: f.Name, Hunks: []Hunk{hunk}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diffs, nil
}

// numberedLine carries a diff line with its position in each version. Zero
// means the line does not exist on that side.
type numberedLine struct {
	HunkLine
	oldNo int
	newNo int
}

// buildHunks converts go-git's whole-span chunks into unified hunks with
// git-style context trimming and @@ headers.
func buildHunks(chunks []diff.Chunk) []Hunk {
	var lines []numberedLine
	oldNo, newNo := 1, 1
	for _, chunk := range chunks {
		for _, text := range splitLines(chunk.Content()) {
			switch chunk.Type() {
			case diff.Equal:
				lines = append(lines, numberedLine{HunkLine{LineContext, text}, oldNo, newNo})
				oldNo++
				newNo++
			case diff.Delete:
				lines = append(lines, numberedLine{HunkLine{LineRemoved, text}, oldNo, 0})
				oldNo++
			case diff.Add:
				lines = append(lines, numberedLine{HunkLine{LineAdded, text}, 0, newNo})
				newNo++
			}
		}
	}

	var hunks []Hunk
	i, prevEnd := 0, 0
	for i < len(lines) {
		// Find the next change.
		for i < len(lines) && lines[i].Kind == LineContext {
			i++
		}
		if i == len(lines) {
			break
		}

		start := i - contextLines
		if start < prevEnd {
			// Never reach back into the previous hunk's span.
			start = prevEnd
		}

		// Extend through subsequent changes separated by short context runs.
		end := i + 1
		run := 0
		for j := i + 1; j < len(lines); j++ {
			if lines[j].Kind == LineContext {
				run++
				if run > 2*contextLines {
					break
				}
			} else {
				run = 0
				end = j + 1
			}
		}
		trail := end + contextLines
		if trail > len(lines) {
			trail = len(lines)
		}

		hunks = append(hunks, makeHunk(lines[start:trail]))
		i = trail
		prevEnd = trail
	}
	return hunks
}

func makeHunk(span []numberedLine) Hunk {
	oldStart, newStart := 0, 0
	oldCount, newCount := 0, 0
	for _, l := range span {
		if l.oldNo > 0 {
			if oldStart == 0 {
				oldStart = l.oldNo
			}
			oldCount++
		}
		if l.newNo > 0 {
			if newStart == 0 {
				newStart = l.newNo
			}
			newCount++
		}
	}

	h := Hunk{Header: fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount)}
	for _, l := range span {
		h.Lines = append(h.Lines, l.HunkLine)
	}
	return h
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
