package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3, 1e-7}
	out, err := decodeVector([]byte(encodeVector(in)), nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVector(t *testing.T) {
	got, err := decodeVector([]byte(" [ 1, 2 ,3 ] "), make([]float32, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)

	got, err = decodeVector([]byte("[]"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"{1,2}", "[1,x]", "[1,2"} {
		_, err := decodeVector([]byte(bad), nil)
		assert.Error(t, err, bad)
	}
}
