// Package domain holds the vendor-neutral records the rest of the engine
// works with: pull requests, issues, repos, commits, branches/tags, and the
// patch/merge-analysis/stack records of spec.md §3.
package domain

import "time"

// State is a pull request or issue state.
type State string

const (
	// StateDraft is a draft pull request state.
	StateDraft State = "draft"
	// StateMerged is a merged pull request state.
	StateMerged State = "merged"
	// StateClosed is a closed pull request/issue state.
	StateClosed State = "closed"
	// StateOpen is an open pull request/issue state.
	StateOpen State = "open"
	// StateApplied is an applied patch state (native-relay/patch flow only).
	StateApplied State = "applied"
)

// PullRequest describes a pull request, normalized across vendors.
type PullRequest struct {
	URL          string   `json:"url"`
	Number       int      `json:"number"`
	Repo         Repo     `json:"repo"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Author       User     `json:"author"`
	Labels       []string `json:"labels"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
	Assignees    []User   `json:"assignees"`
	Approvals    struct {
		RequestedFrom  []User `json:"requested_from"`
		By             []User `json:"by"`
		SatisfiesRules bool   `json:"satisfies_rules"`
		Required       int    `json:"required"`
	} `json:"approvals"`
	History []Event   `json:"history"`
	Threads []Comment `json:"threads"`
	State   State     `json:"state"`

	ClosedAt  time.Time `json:"closed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Issue describes an issue, normalized across vendors.
type Issue struct {
	URL       string    `json:"url"`
	Number    int        `json:"number"`
	Repo      Repo       `json:"repo"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Author    User       `json:"author"`
	Labels    []string   `json:"labels"`
	State     State      `json:"state"`
	History   []Event    `json:"history"`
	Threads   []Comment  `json:"threads"`
	ClosedAt  time.Time  `json:"closed_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repo holds repository data, the normalized equivalent of spec.md §6's
// vendor repo record.
type Repo struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	FullPath    string   `json:"full_path"`
	Description string   `json:"description,omitempty"`
	CloneURLs   []string `json:"clone_urls,omitempty"`
	DefaultRef  string   `json:"default_ref,omitempty"`
}

// Branch holds a branch name and the commit it points at.
type Branch struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// Tag holds a tag name and the commit it points at.
type Tag struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// Commit holds a normalized commit record.
type Commit struct {
	OID       string    `json:"oid"`
	Author    User      `json:"author"`
	Committer User      `json:"committer"`
	Message   string    `json:"message"`
	Parents   []string  `json:"parents"`
	Timestamp time.Time `json:"timestamp"`
}

// User holds user data.
type User struct {
	Username string `json:"username"`
	Pubkey   string `json:"pubkey,omitempty"`
}

// SystemUser is a system user, used for synthetic events (e.g. thread
// resolutions performed by an automation).
var SystemUser = User{Username: "system"}

// Comment describes a single-threaded comment, possibly with replies.
type Comment struct {
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Resolved  bool      `json:"resolved"`
	Child     *Comment  `json:"child"`
}

// Last returns the last comment in the thread.
func (c *Comment) Last() Comment {
	if c.Child == nil {
		return *c
	}
	return c.Child.Last()
}

// Event describes a pull request/issue timeline event.
type Event struct {
	ID string `json:"id"`

	Actor     User      `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	ObjectID   string     `json:"object_id"`
	ObjectType ObjectType `json:"object_type"`
}

// EventType describes a pull request/issue event type.
type EventType string

// Observable event types.
// If not explicitly specified, object id and type will be empty.
const (
	// EventTypeThreadResolved is an event type for resolution of a thread.
	// Object ID will be a position (file:line) thread (root comment) ID and
	// type will be "comment".
	EventTypeThreadResolved EventType = "resolved"
	// EventTypeCommented is an event type for a comment.
	// If a comment is a reply to another comment, object ID will be a
	// position of the parent comment (file:line) and type will be "comment".
	EventTypeCommented EventType = "commented"
	// EventTypeReplied is an event type for a reply to a comment.
	// Object ID will be a position of the parent comment (file:line) and
	// type will be "comment".
	EventTypeReplied EventType = "replied"

	// EventTypeApproved is an event type for an approval.
	EventTypeApproved EventType = "approved"
	// EventTypeUnapproved is an event type for an unapproval.
	EventTypeUnapproved EventType = "unapproved"
)

// ObjectType defines an object over which an event was performed.
type ObjectType string

const (
	// ObjectTypeComment is an event object type for a comment.
	ObjectTypeComment ObjectType = "comment"
	// ObjectTypeCommit is an event object type for a commit.
	ObjectTypeCommit ObjectType = "commit"
)

// Patch describes a unified-diff patch event (spec.md §3, kind 1617).
type Patch struct {
	ID             string    `json:"id"`
	RepoAddr       string    `json:"repo_addr"`
	Commit         string    `json:"commit"`
	ParentCommit   string    `json:"parent_commit"`
	Committer      User      `json:"committer"`
	Content        string    `json:"content"` // unified diff
	Stack          string    `json:"stack,omitempty"`
	Revision       string    `json:"rev,omitempty"`
	Supersedes     string    `json:"supersedes,omitempty"`
	Depends        []string  `json:"depends,omitempty"`
	State          State     `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
}

// MergeAnalysis classifies a patch against a target branch.
type MergeAnalysis string

const (
	AnalysisClean      MergeAnalysis = "clean"
	AnalysisConflicts  MergeAnalysis = "conflicts"
	AnalysisUpToDate   MergeAnalysis = "up-to-date"
	AnalysisDiverged   MergeAnalysis = "diverged"
	AnalysisError      MergeAnalysis = "error"
)

// MergeAnalysisResult is the outcome of analyzing a patch's mergeability.
type MergeAnalysisResult struct {
	CanMerge        bool            `json:"can_merge"`
	HasConflicts    bool            `json:"has_conflicts"`
	ConflictFiles   []string        `json:"conflict_files"`
	ConflictDetails []ConflictDetail `json:"conflict_details,omitempty"`
	UpToDate        bool            `json:"up_to_date"`
	FastForward     bool            `json:"fast_forward"`
	MergeBase       string          `json:"merge_base,omitempty"`
	TargetCommit    string          `json:"target_commit,omitempty"`
	RemoteCommit    string          `json:"remote_commit,omitempty"`
	PatchCommits    []string        `json:"patch_commits,omitempty"`
	Analysis        MergeAnalysis   `json:"analysis"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// ConflictMarkerType classifies a single conflict marker.
type ConflictMarkerType string

const (
	MarkerBothModified  ConflictMarkerType = "both-modified"
	MarkerDeletedByUs    ConflictMarkerType = "deleted-by-us"
	MarkerDeletedByThem  ConflictMarkerType = "deleted-by-them"
	MarkerAddedByBoth    ConflictMarkerType = "added-by-both"
)

// ConflictMarker is a single conflicting line range within a file.
type ConflictMarker struct {
	Start   int                `json:"start"`
	End     int                `json:"end"`
	Content string             `json:"content"`
	Type    ConflictMarkerType `json:"type"`
}

// ConflictFileType classifies how a file conflicted.
type ConflictFileType string

const (
	ConflictContent ConflictFileType = "content"
	ConflictRename  ConflictFileType = "rename"
	ConflictDelete  ConflictFileType = "delete"
	ConflictBinary  ConflictFileType = "binary"
)

// ConflictDetail describes the conflict state of a single file.
type ConflictDetail struct {
	File            string             `json:"file"`
	Type            ConflictFileType   `json:"type"`
	ConflictMarkers []ConflictMarker   `json:"conflict_markers"`
	BaseContent     string             `json:"base_content,omitempty"`
	HeadContent     string             `json:"head_content,omitempty"`
	PatchContent    string             `json:"patch_content,omitempty"`
}

// Stack groups patches into a coherent review unit (spec.md §3/§4.L).
type Stack struct {
	RepoAddr string   `json:"repo_addr"`
	ID       string   `json:"id"`
	Members  []string `json:"members"` // patch or commit ids
	Order    []string `json:"order,omitempty"`
	Raw      string   `json:"raw,omitempty"`
}

// IssueThread pairs an issue root with its comments and status updates.
type IssueThread struct {
	Root     Issue   `json:"root"`
	Comments []Event `json:"comments"`
	Statuses []Event `json:"statuses"`
}

// PRThread pairs a pull request root with its comments and status updates.
type PRThread struct {
	Root     PullRequest `json:"root"`
	Comments []Event     `json:"comments"`
	Statuses []Event     `json:"statuses"`
}
