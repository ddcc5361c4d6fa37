package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type format string

const (
	formatJSON format = "json"
	formatCSV  format = "csv"
)

func newFormatNormalizer() *Normalizer[format] {
	return NewNormalizer(map[string]format{"JSON": formatJSON, "csv": formatCSV}, formatJSON)
}

func TestNormalizer_Basic(t *testing.T) {
	n := newFormatNormalizer()

	assert.Equal(t, formatCSV, n.Normalize("  CSV "))
	assert.Equal(t, formatJSON, n.Normalize("json"))
	assert.Equal(t, formatJSON, n.Normalize("xml"))
}

func TestNormalizer_WithError(t *testing.T) {
	n := newFormatNormalizer()

	got, err := n.NormalizeWithError("Csv")
	require.NoError(t, err)
	assert.Equal(t, formatCSV, got)

	got, err = n.NormalizeWithError("  ")
	require.NoError(t, err)
	assert.Equal(t, formatJSON, got)

	_, err = n.NormalizeWithError("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[csv json]")
}

func TestValidKeys(t *testing.T) {
	n := newFormatNormalizer()
	keys := n.ValidKeys()
	assert.Equal(t, []string{"csv", "json"}, keys)

	keys[0] = "mutated"
	assert.Equal(t, []string{"csv", "json"}, n.ValidKeys())
}
