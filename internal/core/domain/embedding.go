package domain

import "fmt"

// EmbeddingModel identifies the model that produced a set of vectors.
// Vectors from different models are not comparable.
type EmbeddingModel struct {
	Name       string
	Dimensions int
}

// IsZero reports whether the model is unknown.
func (m EmbeddingModel) IsZero() bool {
	return m.Name == "" && m.Dimensions == 0
}

// Compatible reports whether vectors of m can be compared with vectors of
// other. A zero dimension count on either side is treated as unknown.
func (m EmbeddingModel) Compatible(other EmbeddingModel) bool {
	if m.Name != other.Name {
		return false
	}
	return m.Dimensions == 0 || other.Dimensions == 0 || m.Dimensions == other.Dimensions
}

func (m EmbeddingModel) String() string {
	if m.Dimensions == 0 {
		return m.Name
	}
	return fmt.Sprintf("%s (%d dimensions)", m.Name, m.Dimensions)
}
