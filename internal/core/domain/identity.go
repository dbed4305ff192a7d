package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// Identity is the id, kind and display name derived from a filename.
type Identity struct {
	ID          string
	Kind        Kind
	DisplayName string
}

// DeriveIdentity derives a document identity from a filename.
// The id is the base name with its extension removed and nothing else
// stripped, so the filename a user sees is exactly what they can type.
func DeriveIdentity(filename string, kind Kind) Identity {
	base := filepath.Base(filename)
	id := strings.TrimSuffix(base, filepath.Ext(base))

	return Identity{
		ID:          id,
		Kind:        kind,
		DisplayName: DisplayName(id, kind),
	}
}

// DisplayName formats an id for headers and listings.
// Protocol ids have underscores turned into spaces and whitespace collapsed;
// policy ids are shown as-is.
func DisplayName(id string, kind Kind) string {
	if kind != KindProtocol {
		return id
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(id, "_", " ")), " ")
}

// Resolve maps a raw, user-typed identifier to one of docs.
//
// Matching runs in three passes and stops at the first pass with a match:
// exact id, case-insensitive id, then case-insensitive substring in either
// direction. A pass matching more than one document yields *AmbiguousError.
// No match yields *NotFoundError listing every known id.
//
// A "kind:" prefix (policy, protocol, póliza, protocolo) restricts the
// candidates to one kind.
func Resolve(raw string, docs []Document) (Document, error) {
	query := strings.TrimSpace(raw)
	candidates := docs

	if kind, rest, ok := splitKindQualifier(query); ok {
		query = rest
		candidates = make([]Document, 0, len(docs))
		for _, d := range docs {
			if d.Kind == kind {
				candidates = append(candidates, d)
			}
		}
	}

	if query == "" {
		return Document{}, &NotFoundError{Raw: raw, Suggestions: knownIDs(docs)}
	}

	lower := strings.ToLower(query)
	passes := []func(Document) bool{
		func(d Document) bool { return d.ID == query },
		func(d Document) bool { return strings.EqualFold(d.ID, query) },
		func(d Document) bool {
			id := strings.ToLower(d.ID)
			return strings.Contains(id, lower) || strings.Contains(lower, id)
		},
	}

	for _, match := range passes {
		var matched []Document
		for _, d := range candidates {
			if match(d) {
				matched = append(matched, d)
			}
		}

		switch len(matched) {
		case 0:
			continue
		case 1:
			return matched[0], nil
		default:
			refs := make([]DocumentRef, len(matched))
			for i, d := range matched {
				refs[i] = d.Ref()
			}
			slices.SortFunc(refs, compareRefs)
			return Document{}, &AmbiguousError{Raw: raw, Candidates: refs}
		}
	}

	return Document{}, &NotFoundError{Raw: raw, Suggestions: knownIDs(docs)}
}

// splitKindQualifier splits "kind:id" input. The colon must follow a known
// kind name, so ids containing colons are left alone.
func splitKindQualifier(s string) (Kind, string, bool) {
	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return "", s, false
	}
	kind, err := ParseKind(prefix)
	if err != nil {
		return "", s, false
	}
	return kind, strings.TrimSpace(rest), true
}

// knownIDs returns the sorted, distinct ids of docs.
func knownIDs(docs []Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func compareRefs(a, b DocumentRef) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
