package featrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBinaryDescriptors(t *testing.T) {
	desc, err := NewBinaryDescriptors([][]byte{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 3, desc.Len())
	assert.Equal(t, 2, desc.Dim())
	assert.Equal(t, DescriptorUint8, desc.Type())
	assert.Equal(t, []uint8{3, 4}, desc.Row8(1))

	_, err = NewBinaryDescriptors([][]byte{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewFloatDescriptors(t *testing.T) {
	desc, err := NewFloatDescriptors([][]float32{{0.5, 1}, {2, 3}})
	require.NoError(t, err)
	assert.Equal(t, DescriptorFloat32, desc.Type())
	assert.Equal(t, []float32{2, 3}, desc.Row32(1))

	_, err = NewFloatDescriptors([][]float32{{1}, {2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewDescriptorsFromFloats([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNilDescriptors(t *testing.T) {
	var desc *Descriptors
	assert.Equal(t, 0, desc.Len())
	assert.Equal(t, 0, desc.Dim())
	assert.Nil(t, desc.AsFloat32())
	assert.Nil(t, desc.Subset([]int{0}))
}

func TestDescriptorsAsFloat32(t *testing.T) {
	desc, err := NewDescriptorsFromBytes([]uint8{0, 128, 255, 7}, 2, 2)
	require.NoError(t, err)
	cast := desc.AsFloat32()
	assert.Equal(t, DescriptorFloat32, cast.Type())
	assert.Equal(t, []float32{255, 7}, cast.Row32(1))
	assert.Same(t, cast, cast.AsFloat32())
}

func TestDescriptorsSubset(t *testing.T) {
	desc, err := NewBinaryDescriptors([][]byte{{1}, {2}, {3}})
	require.NoError(t, err)
	subset := desc.Subset([]int{2, 0})
	assert.Equal(t, 2, subset.Len())
	assert.Equal(t, []uint8{3}, subset.Row8(0))
	assert.Equal(t, []uint8{1}, subset.Row8(1))
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0.0, hammingDistance([]uint8{0xAB, 0x01}, []uint8{0xAB, 0x01}))
	assert.Equal(t, 9.0, hammingDistance([]uint8{0x00, 0x00}, []uint8{0xFF, 0x80}))
}

func TestRowBits(t *testing.T) {
	desc, err := NewBinaryDescriptors([][]byte{{0xA1}})
	require.NoError(t, err)
	bitsRow := desc.rowBits(0, nil)
	assert.Equal(t, []float64{1, 0, 1, 0, 0, 0, 0, 1}, bitsRow)
}
