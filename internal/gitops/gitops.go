// Package gitops provides the narrow git surface the annotation agent
// consumes: commit metadata, file content at a commit, and structured
// diffs. The concrete implementation is backed by go-git.
package gitops

// CommitInfo is the metadata describing one commit.
type CommitInfo struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	Timestamp   string
	ParentSHAs  []string
}

// LineKind classifies one diff line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// HunkLine is one line of a diff hunk.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous diff region with its unified header.
type Hunk struct {
	Header string
	Lines  []HunkLine
}

// FileDiff is the diff of a single file within a commit.
type FileDiff struct {
	Path    string
	OldPath string // differs from Path on rename; empty for new files
	Hunks   []Hunk
}

// GitOps is the abstraction the agent's read-only tools run against.
type GitOps interface {
	// CommitInfo resolves and describes a commit.
	CommitInfo(sha string) (*CommitInfo, error)

	// FileAtCommit reads a file's content as of the given commit.
	FileAtCommit(path, sha string) (string, error)

	// Diff returns the commit's changes against its first parent, or
	// against the empty tree for a root commit.
	Diff(sha string) ([]FileDiff, error)

	// ResolveRef resolves a revision (HEAD, branch, abbreviated sha) to a
	// full commit sha.
	ResolveRef(ref string) (string, error)
}
