package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindPolicy.IsValid())
	assert.True(t, KindProtocol.IsValid())
	assert.False(t, Kind("contract").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestKind_Label(t *testing.T) {
	assert.Equal(t, "Póliza", KindPolicy.Label())
	assert.Equal(t, "Protocolo", KindProtocol.Label())
	assert.Equal(t, "Documento", Kind("other").Label())
}

func TestKind_Collection(t *testing.T) {
	assert.Equal(t, "policies", KindPolicy.Collection())
	assert.Equal(t, "internal_protocol_coverage", KindProtocol.Collection())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"policy", KindPolicy},
		{"Póliza", KindPolicy},
		{"POLIZA", KindPolicy},
		{"protocol", KindProtocol},
		{" protocolo ", KindProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("contrato")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []Kind{KindPolicy, KindProtocol}, Kinds())
}
