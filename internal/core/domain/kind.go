package domain

import (
	"fmt"
	"strings"
)

// Kind is the category of an indexed document.
type Kind string

// Known document kinds.
const (
	// KindPolicy is an insurance policy (póliza).
	KindPolicy Kind = "policy"

	// KindProtocol is an internal coverage protocol (protocolo).
	KindProtocol Kind = "protocol"
)

// Kinds returns all known kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{KindPolicy, KindProtocol}
}

// IsValid returns true if the kind is recognised.
func (k Kind) IsValid() bool {
	switch k {
	case KindPolicy, KindProtocol:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Label returns the Spanish label used in context headers.
func (k Kind) Label() string {
	switch k {
	case KindPolicy:
		return "Póliza"
	case KindProtocol:
		return "Protocolo"
	default:
		return "Documento"
	}
}

// Collection returns the default collection (directory) name for the kind.
func (k Kind) Collection() string {
	switch k {
	case KindPolicy:
		return "policies"
	case KindProtocol:
		return "internal_protocol_coverage"
	default:
		return ""
	}
}

// ParseKind converts user input into a Kind.
// Both the English and the Spanish names are accepted, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "policy", "póliza", "poliza":
		return KindPolicy, nil
	case "protocol", "protocolo":
		return KindProtocol, nil
	default:
		return "", fmt.Errorf("%w: unknown document kind %q", ErrInvalidInput, s)
	}
}
