package event

import "github.com/nbd-wtf/go-nostr"

// PatchFields is the parsed form of a kind-1617 event.
type PatchFields struct {
	RepoAddr     string
	Content      string
	Commit       string
	ParentCommit string
	Committer    string
	Stack        string
	Revision     string
	Supersedes   string
	Depends      []string
	Status       string
	Raw          Event
}

// ParsePatch decodes a kind-1617 event. Round-trips Content with
// CreatePatch (spec.md §8).
func ParsePatch(e Event) (PatchFields, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return PatchFields{}, err
	}

	pf := PatchFields{
		RepoAddr:     e.GetTagValue("a"),
		Content:      e.Content,
		Commit:       e.GetTagValue("commit"),
		ParentCommit: e.GetTagValue("parent-commit"),
		Committer:    e.GetTagValue("committer"),
		Stack:        e.GetTagValue("stack"),
		Revision:     e.GetTagValue("rev"),
		Supersedes:   e.GetTagValue("supersedes"),
		Status:       PatchStatus(e),
		Raw:          e,
	}
	if t := e.GetTag("depends"); len(t) > 1 {
		pf.Depends = append([]string{}, t[1:]...)
	}
	return pf, nil
}

// CreatePatch builds an unsigned kind-1617 event.
func CreatePatch(pf PatchFields) nostr.Event {
	e := nostr.Event{Kind: int(KindPatch), Content: pf.Content}
	e.Tags = append(e.Tags, nostr.Tag{"a", pf.RepoAddr})
	if pf.Commit != "" {
		e.Tags = append(e.Tags, nostr.Tag{"commit", pf.Commit})
	}
	if pf.ParentCommit != "" {
		e.Tags = append(e.Tags, nostr.Tag{"parent-commit", pf.ParentCommit})
	}
	if pf.Committer != "" {
		e.Tags = append(e.Tags, nostr.Tag{"committer", pf.Committer})
	}
	if pf.Stack != "" {
		e.Tags = append(e.Tags, nostr.Tag{"stack", pf.Stack})
	}
	if pf.Revision != "" {
		e.Tags = append(e.Tags, nostr.Tag{"rev", pf.Revision})
	}
	if pf.Supersedes != "" {
		e.Tags = append(e.Tags, nostr.Tag{"supersedes", pf.Supersedes})
	}
	if len(pf.Depends) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"depends"}, pf.Depends...))
	}
	switch pf.Status {
	case "applied", "closed", "draft":
		e.Tags = append(e.Tags, nostr.Tag{"t", pf.Status})
	}
	return e
}

// StackFields is the parsed form of a kind-30410 event.
type StackFields struct {
	RepoAddr string
	ID       string
	Members  []string
	Order    []string
	Raw      Event
}

// ParseStack decodes a kind-30410 event.
func ParseStack(e Event) (StackFields, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return StackFields{}, err
	}
	sf := StackFields{RepoAddr: e.GetTagValue("a"), ID: e.GetTagValue("stack"), Raw: e}
	for _, t := range e.GetTags("member") {
		if len(t) > 1 {
			sf.Members = append(sf.Members, t[1])
		}
	}
	if t := e.GetTag("order"); len(t) > 1 {
		sf.Order = append([]string{}, t[1:]...)
	}
	return sf, nil
}

// CreateStack builds an unsigned kind-30410 event.
func CreateStack(sf StackFields) nostr.Event {
	e := nostr.Event{Kind: int(KindStack)}
	e.Tags = append(e.Tags, nostr.Tag{"a", sf.RepoAddr})
	e.Tags = append(e.Tags, nostr.Tag{"stack", sf.ID})
	for _, m := range sf.Members {
		e.Tags = append(e.Tags, nostr.Tag{"member", m})
	}
	if len(sf.Order) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"order"}, sf.Order...))
	}
	return e
}

// MergeMetadataFields is the parsed form of a kind-30411 event.
type MergeMetadataFields struct {
	RepoAddr     string
	RootID       string
	BaseBranch   string
	TargetBranch string
	Result       string // clean | ff | conflict
	MergeCommit  string
	Raw          Event
}

// ParseMergeMetadata decodes a kind-30411 event.
func ParseMergeMetadata(e Event) (MergeMetadataFields, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return MergeMetadataFields{}, err
	}
	mf := MergeMetadataFields{
		RepoAddr:     e.GetTagValue("a"),
		BaseBranch:   e.GetTagValue("base-branch"),
		TargetBranch: e.GetTagValue("target-branch"),
		Result:       e.GetTagValue("result"),
		MergeCommit:  e.GetTagValue("merge-commit"),
		Raw:          e,
	}
	if t := e.GetTag("e"); len(t) > 1 {
		mf.RootID = t[1]
	}
	return mf, nil
}

// CreateMergeMetadata builds an unsigned kind-30411 event.
func CreateMergeMetadata(mf MergeMetadataFields) nostr.Event {
	e := nostr.Event{Kind: int(KindMergeMetadata)}
	e.Tags = append(e.Tags, nostr.Tag{"a", mf.RepoAddr})
	e.Tags = append(e.Tags, nostr.Tag{"e", mf.RootID, "root"})
	if mf.BaseBranch != "" {
		e.Tags = append(e.Tags, nostr.Tag{"base-branch", mf.BaseBranch})
	}
	if mf.TargetBranch != "" {
		e.Tags = append(e.Tags, nostr.Tag{"target-branch", mf.TargetBranch})
	}
	if mf.Result != "" {
		e.Tags = append(e.Tags, nostr.Tag{"result", mf.Result})
	}
	if mf.MergeCommit != "" {
		e.Tags = append(e.Tags, nostr.Tag{"merge-commit", mf.MergeCommit})
	}
	return e
}

// ConflictMetadataFields is the parsed form of a kind-30412 event.
type ConflictMetadataFields struct {
	RepoAddr string
	RootID   string
	Files    []string
	Payload  string // JSON-encoded per-file markers
	Raw      Event
}

// ParseConflictMetadata decodes a kind-30412 event.
func ParseConflictMetadata(e Event) (ConflictMetadataFields, error) {
	if err := Validate(e, ValidateOn); err != nil {
		return ConflictMetadataFields{}, err
	}
	cf := ConflictMetadataFields{RepoAddr: e.GetTagValue("a"), Payload: e.Content, Raw: e}
	if t := e.GetTag("e"); len(t) > 1 {
		cf.RootID = t[1]
	}
	for _, t := range e.GetTags("file") {
		if len(t) > 1 {
			cf.Files = append(cf.Files, t[1])
		}
	}
	return cf, nil
}

// CreateConflictMetadata builds an unsigned kind-30412 event.
func CreateConflictMetadata(cf ConflictMetadataFields) nostr.Event {
	e := nostr.Event{Kind: int(KindConflictMetadata), Content: cf.Payload}
	e.Tags = append(e.Tags, nostr.Tag{"a", cf.RepoAddr})
	e.Tags = append(e.Tags, nostr.Tag{"e", cf.RootID, "root"})
	for _, f := range cf.Files {
		e.Tags = append(e.Tags, nostr.Tag{"file", f})
	}
	return e
}
