package featrack

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// DescriptorType is numeric type of descriptor elements
type DescriptorType uint16

const (
	// DescriptorUint8 is for byte-packed binary descriptors (ORB, BRISK, AKAZE, FREAK)
	DescriptorUint8 DescriptorType = iota
	// DescriptorFloat32 is for float descriptors (SIFT, KAZE)
	DescriptorFloat32
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorUint8:
		return "uint8"
	case DescriptorFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// Descriptors is a row-major matrix: row i describes keypoint i of the same frame.
// Nil *Descriptors is a valid empty set.
type Descriptors struct {
	dtype  DescriptorType
	rows   int
	cols   int
	data8  []uint8
	data32 []float32
}

// NewBinaryDescriptors creates byte descriptors. Every row must have the same length
func NewBinaryDescriptors(rows [][]byte) (*Descriptors, error) {
	d := &Descriptors{dtype: DescriptorUint8, rows: len(rows)}
	if len(rows) == 0 {
		return d, nil
	}
	d.cols = len(rows[0])
	d.data8 = make([]uint8, 0, d.rows*d.cols)
	for i, row := range rows {
		if len(row) != d.cols {
			return nil, errors.Wrapf(ErrDimensionMismatch, "row %d has %d elements, expected %d", i, len(row), d.cols)
		}
		d.data8 = append(d.data8, row...)
	}
	return d, nil
}

// NewFloatDescriptors creates float descriptors. Every row must have the same length
func NewFloatDescriptors(rows [][]float32) (*Descriptors, error) {
	d := &Descriptors{dtype: DescriptorFloat32, rows: len(rows)}
	if len(rows) == 0 {
		return d, nil
	}
	d.cols = len(rows[0])
	d.data32 = make([]float32, 0, d.rows*d.cols)
	for i, row := range rows {
		if len(row) != d.cols {
			return nil, errors.Wrapf(ErrDimensionMismatch, "row %d has %d elements, expected %d", i, len(row), d.cols)
		}
		d.data32 = append(d.data32, row...)
	}
	return d, nil
}

// NewDescriptorsFromBytes wraps flat row-major byte buffer without copying
func NewDescriptorsFromBytes(data []uint8, rows, cols int) (*Descriptors, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, errors.Wrapf(ErrDimensionMismatch, "buffer of %d bytes can't hold %dx%d descriptors", len(data), rows, cols)
	}
	return &Descriptors{dtype: DescriptorUint8, rows: rows, cols: cols, data8: data}, nil
}

// NewDescriptorsFromFloats wraps flat row-major float buffer without copying
func NewDescriptorsFromFloats(data []float32, rows, cols int) (*Descriptors, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, errors.Wrapf(ErrDimensionMismatch, "buffer of %d floats can't hold %dx%d descriptors", len(data), rows, cols)
	}
	return &Descriptors{dtype: DescriptorFloat32, rows: rows, cols: cols, data32: data}, nil
}

// Len returns number of descriptors
func (d *Descriptors) Len() int {
	if d == nil {
		return 0
	}
	return d.rows
}

// Dim returns descriptor length in elements
func (d *Descriptors) Dim() int {
	if d == nil {
		return 0
	}
	return d.cols
}

// Type returns numeric type of descriptor elements
func (d *Descriptors) Type() DescriptorType {
	if d == nil {
		return DescriptorUint8
	}
	return d.dtype
}

// Row8 returns i-th byte descriptor. Be careful: this is not copy, but reference to underlying storage
func (d *Descriptors) Row8(i int) []uint8 {
	return d.data8[i*d.cols : (i+1)*d.cols]
}

// Row32 returns i-th float descriptor. Be careful: this is not copy, but reference to underlying storage
func (d *Descriptors) Row32(i int) []float32 {
	return d.data32[i*d.cols : (i+1)*d.cols]
}

// AsFloat32 returns descriptors cast to float32. Float descriptors are returned as is
func (d *Descriptors) AsFloat32() *Descriptors {
	if d == nil || d.dtype == DescriptorFloat32 {
		return d
	}
	out := &Descriptors{
		dtype:  DescriptorFloat32,
		rows:   d.rows,
		cols:   d.cols,
		data32: make([]float32, len(d.data8)),
	}
	for i, v := range d.data8 {
		out.data32[i] = float32(v)
	}
	return out
}

// Subset returns descriptors for given row indices in given order
func (d *Descriptors) Subset(indices []int) *Descriptors {
	if d == nil {
		return nil
	}
	out := &Descriptors{dtype: d.dtype, rows: len(indices), cols: d.cols}
	switch d.dtype {
	case DescriptorUint8:
		out.data8 = make([]uint8, 0, len(indices)*d.cols)
		for _, idx := range indices {
			out.data8 = append(out.data8, d.Row8(idx)...)
		}
	default:
		out.data32 = make([]float32, 0, len(indices)*d.cols)
		for _, idx := range indices {
			out.data32 = append(out.data32, d.Row32(idx)...)
		}
	}
	return out
}

// rowFloat64 writes i-th descriptor into dst as float64 values
func (d *Descriptors) rowFloat64(i int, dst []float64) []float64 {
	dst = dst[:0]
	if d.dtype == DescriptorUint8 {
		for _, v := range d.Row8(i) {
			dst = append(dst, float64(v))
		}
		return dst
	}
	for _, v := range d.Row32(i) {
		dst = append(dst, float64(v))
	}
	return dst
}

// rowBits expands i-th byte descriptor into 0/1 coordinates, most significant bit first.
// Squared Euclidean distance between expanded rows equals Hamming distance between packed ones
func (d *Descriptors) rowBits(i int, dst []float64) []float64 {
	dst = dst[:0]
	for _, b := range d.Row8(i) {
		for shift := 7; shift >= 0; shift-- {
			dst = append(dst, float64((b>>uint(shift))&1))
		}
	}
	return dst
}

func hammingDistance(a, b []uint8) float64 {
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return float64(dist)
}

func l2Distance(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
