package domain

// InsertMode selects how an insert treats an already-indexed document.
type InsertMode int

const (
	// InsertSkipIfPresent leaves an indexed document untouched.
	InsertSkipIfPresent InsertMode = iota

	// InsertReplaceAll removes every prior chunk of the document and writes
	// the new set in the same transaction.
	InsertReplaceAll
)

// String returns the string representation.
func (m InsertMode) String() string {
	switch m {
	case InsertSkipIfPresent:
		return "skip_if_present"
	case InsertReplaceAll:
		return "replace_all"
	default:
		return "unknown"
	}
}

// Default retrieval limits.
const (
	DefaultPerDocumentLimit = 5
	DefaultTotalChunkBudget = 0 // no budget
)

// ContextRequest is a selection of documents and a query to ground.
type ContextRequest struct {
	// Query is the free-text query. When empty, ClaimText is parsed to
	// build one.
	Query string

	// DocumentIDs are raw, user-typed identifiers in selection order.
	DocumentIDs []string

	// PerDocumentLimit caps the chunks taken from each document.
	// Zero or negative selects DefaultPerDocumentLimit.
	PerDocumentLimit int

	// TotalChunkBudget caps the merged result. Zero selects the configured
	// default budget; a negative value disables the budget.
	TotalChunkBudget int

	// ClaimText is optional pasted claim data.
	ClaimText string
}

// ResolutionFailure records a raw identifier that did not resolve.
type ResolutionFailure struct {
	Raw string `json:"raw"`
	Err error  `json:"-"`
}

// ContextBundle is the result of a retrieval.
type ContextBundle struct {
	// Context is the formatted, grouped text for the generator.
	Context string `json:"context"`

	// Query is the query actually embedded.
	Query string `json:"query"`

	// Documents lists the contributing documents in group order.
	Documents []Document `json:"documents"`

	// Chunks are the surviving chunks in global rank order.
	Chunks []ScoredChunk `json:"chunks"`

	// Unresolved lists identifiers that failed resolution.
	Unresolved []ResolutionFailure `json:"unresolved,omitempty"`
}

// IndexReport summarises an indexing pass.
type IndexReport struct {
	Indexed  int          `json:"indexed"`
	Replaced int          `json:"replaced"`
	Skipped  int          `json:"skipped"`
	Removed  int          `json:"removed"`
	Chunks   int          `json:"chunks"`
	Failures []*FileError `json:"-"`
}

// Merge adds other's counters and failures into r.
func (r *IndexReport) Merge(other IndexReport) {
	r.Indexed += other.Indexed
	r.Replaced += other.Replaced
	r.Skipped += other.Skipped
	r.Removed += other.Removed
	r.Chunks += other.Chunks
	r.Failures = append(r.Failures, other.Failures...)
}

// IndexOptions selects what an indexing pass does.
type IndexOptions struct {
	// Rebuild replaces every document and removes documents whose files
	// are gone.
	Rebuild bool

	// Kinds restricts the pass to some collections. Empty means all.
	Kinds []Kind
}

// Includes reports whether kind is selected.
func (o IndexOptions) Includes(kind Kind) bool {
	if len(o.Kinds) == 0 {
		return true
	}
	for _, k := range o.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Mode returns the insert mode implied by the options.
func (o IndexOptions) Mode() InsertMode {
	if o.Rebuild {
		return InsertReplaceAll
	}
	return InsertSkipIfPresent
}
