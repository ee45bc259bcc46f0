package event

import "strconv"

// RootRefs is the set of identifiers a comment/status can point at to
// belong to a thread: the root event id and its address pointers.
type RootRefs struct {
	RootID    string
	Addresses []string
	Kind      int
}

// References reports whether e references any of refs' root id or
// addresses, honoring the optional K/k kind-scope per spec.md §4.N.
func (e Event) References(refs RootRefs) bool {
	if k := e.GetTagValue("K"); k != "" {
		if k != strconv.Itoa(refs.Kind) {
			return false
		}
	} else if k := e.GetTagValue("k"); k != "" {
		if k != strconv.Itoa(refs.Kind) {
			return false
		}
	}

	for _, t := range e.GetTags("E") {
		if len(t) > 1 && t[1] == refs.RootID {
			return true
		}
	}
	for _, t := range e.GetTags("e") {
		if len(t) > 1 && t[1] == refs.RootID {
			return true
		}
	}
	for _, t := range e.GetTags("A") {
		if len(t) > 1 && containsStr(refs.Addresses, t[1]) {
			return true
		}
	}
	for _, t := range e.GetTags("a") {
		if len(t) > 1 && containsStr(refs.Addresses, t[1]) {
			return true
		}
	}
	return false
}
