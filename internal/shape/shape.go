// Package shape computes FIDL v2 wire-format TypeShape/FieldShape
// values (C8). Every function here is a pure function of its arguments —
// no global state and no lookups of other declarations — so
// the compile phase (C7) can call it freely while walking declarations
// in topological order.
package shape

import "github.com/mehditeymorian/fidlgo/internal/ir"

const maxU32 = ir.Unbounded

// AddSat adds a and b, saturating at maxU32 instead of wrapping.
func AddSat(a, b uint32) uint32 {
	if a == maxU32 || b == maxU32 {
		return maxU32
	}
	sum := uint64(a) + uint64(b)
	if sum > uint64(maxU32) {
		return maxU32
	}
	return uint32(sum)
}

// MulSat multiplies a and b, saturating at maxU32.
func MulSat(a, b uint32) uint32 {
	if a == maxU32 || b == maxU32 {
		if a == 0 || b == 0 {
			return 0
		}
		return maxU32
	}
	prod := uint64(a) * uint64(b)
	if prod > uint64(maxU32) {
		return maxU32
	}
	return uint32(prod)
}

// MaxOf returns the larger of a and b.
func MaxOf(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// AlignUp rounds size up to the next multiple of alignment (alignment
// must be a power of two, as every wire alignment in this format is).
func AlignUp(size, alignment uint32) uint32 {
	if alignment == 0 {
		return size
	}
	if size == maxU32 {
		return maxU32
	}
	rem := size % alignment
	if rem == 0 {
		return size
	}
	return AddSat(size, alignment-rem)
}

var primitiveShapes = map[string]struct {
	size, align uint32
}{
	"bool": {1, 1}, "int8": {1, 1}, "uint8": {1, 1},
	"int16": {2, 2}, "uint16": {2, 2},
	"int32": {4, 4}, "uint32": {4, 4}, "float32": {4, 4},
	"int64": {8, 8}, "uint64": {8, 8}, "float64": {8, 8},
}

// Primitive returns the TypeShape for a fixed-width primitive; ok is
// false if name is not a recognised primitive.
func Primitive(name string) (ir.TypeShape, bool) {
	p, ok := primitiveShapes[name]
	if !ok {
		return ir.TypeShape{}, false
	}
	return ir.TypeShape{InlineSize: p.size, Alignment: p.align}, true
}

// StringShape is the shape of `string[:bound]`, per spec §4.6: fixed
// (16, 8) inline, with the bound (or Unbounded) saturating the
// out-of-line dimension.
func StringShape(bound uint32) ir.TypeShape {
	return ir.TypeShape{
		InlineSize:   16,
		Alignment:    8,
		Depth:        1,
		MaxOutOfLine: bound,
		HasPadding:   true,
	}
}

// VectorShape is the shape of `vector<elem>[:bound]`.
func VectorShape(elem ir.TypeShape, bound uint32) ir.TypeShape {
	contentSize := MulSat(bound, AddSat(elem.InlineSize, elem.MaxOutOfLine))
	maxOOL := AlignUp(contentSize, 8)
	return ir.TypeShape{
		InlineSize:   16,
		Alignment:    8,
		Depth:        AddSat(elem.Depth, 1),
		MaxHandles:   MulSat(bound, elem.MaxHandles),
		MaxOutOfLine: maxOOL,
		HasPadding:   true,
	}
}

// ArrayShape is the shape of `array<elem, count>`. Arrays are inline:
// their alignment and padding come straight from the element.
func ArrayShape(elem ir.TypeShape, count uint32) ir.TypeShape {
	return ir.TypeShape{
		InlineSize:   MulSat(count, elem.InlineSize),
		Alignment:    MaxOf(elem.Alignment, 1),
		Depth:        elem.Depth,
		MaxHandles:   MulSat(count, elem.MaxHandles),
		MaxOutOfLine: MulSat(count, elem.MaxOutOfLine),
		HasPadding:   elem.HasPadding,
	}
}

// HandleShape covers handle, client_end, server_end and request<P>: a
// 4-byte, 4-byte-aligned capability reference.
func HandleShape() ir.TypeShape {
	return ir.TypeShape{InlineSize: 4, Alignment: 4, MaxHandles: 1}
}

// CycleSentinel is substituted for a declaration on an indirect-only
// dependency cycle (e.g. `struct N { next box<N>; }`), per spec §9: the
// unresolved dimensions saturate to Unbounded rather than being computed
// by (impossible) fixed-point iteration.
func CycleSentinel(inlineSize, alignment uint32) ir.TypeShape {
	return ir.TypeShape{
		InlineSize:   inlineSize,
		Alignment:    alignment,
		Depth:        maxU32,
		MaxOutOfLine: maxU32,
	}
}

// Member is one field to be placed by StructLayout: its own shape.
type Member struct {
	Shape ir.TypeShape
}

// StructLayout lays out members in order, aligning each to its own
// type's alignment with zero padding, and returns each member's
// FieldShape plus the struct's overall TypeShape. Per spec §8's boundary
// case, an empty struct has inline_size 1, alignment 1, no padding.
func StructLayout(members []Member) (fields []ir.FieldShape, shape ir.TypeShape) {
	if len(members) == 0 {
		return nil, ir.TypeShape{InlineSize: 1, Alignment: 1}
	}

	fields = make([]ir.FieldShape, len(members))
	var offset uint32
	var align uint32 = 1
	var maxHandles, maxOOL, depth uint32
	hasPadding := false

	for i, m := range members {
		a := m.Shape.Alignment
		if a == 0 {
			a = 1
		}
		align = MaxOf(align, a)
		aligned := AlignUp(offset, a)
		if aligned != offset {
			hasPadding = true
			if i > 0 {
				fields[i-1].Padding = AddSat(fields[i-1].Padding, aligned-offset)
			}
		}
		offset = aligned
		fields[i].Offset = offset
		offset = AddSat(offset, m.Shape.InlineSize)
		maxHandles = AddSat(maxHandles, m.Shape.MaxHandles)
		maxOOL = AddSat(maxOOL, m.Shape.MaxOutOfLine)
		depth = MaxOf(depth, m.Shape.Depth)
		if m.Shape.HasPadding {
			hasPadding = true
		}
	}

	inlineSize := MaxOf(AlignUp(offset, align), 1)
	last := len(fields) - 1
	trailing := inlineSize - offset
	if trailing > 0 {
		fields[last].Padding = AddSat(fields[last].Padding, trailing)
		hasPadding = true
	}

	shape = ir.TypeShape{
		InlineSize:   inlineSize,
		Alignment:    align,
		Depth:        depth,
		MaxHandles:   maxHandles,
		MaxOutOfLine: maxOOL,
		HasPadding:   hasPadding,
	}
	return fields, shape
}

// TableShape computes the fixed (16, 8) inline shape plus out-of-line
// bound for a table with maxOrdinal members (0 if empty), per spec
// §4.6: an N-entry envelope vector (N*8 bytes rounded to 8) plus the
// aligned, summed content of every present envelope.
func TableShape(maxOrdinal uint32, memberShapes []ir.TypeShape) ir.TypeShape {
	if maxOrdinal == 0 {
		return ir.TypeShape{InlineSize: 16, Alignment: 8, Depth: 1, HasFlexibleEnvelope: true}
	}
	envelopeVector := AlignUp(MulSat(maxOrdinal, 8), 8)
	var content, handles, depth uint32
	for _, m := range memberShapes {
		content = AddSat(content, tableEnvelopeContent(m))
		handles = AddSat(handles, m.MaxHandles)
		depth = MaxOf(depth, m.Depth)
	}
	return ir.TypeShape{
		InlineSize:          16,
		Alignment:           8,
		Depth:               AddSat(depth, 2),
		MaxHandles:          handles,
		MaxOutOfLine:        AddSat(envelopeVector, content),
		HasFlexibleEnvelope: true,
	}
}

// tableEnvelopeContent is the out-of-line bytes a table member's envelope
// contributes: unlike a union/overlay envelope, a table entry has no
// small-payload inlining exception — every present member unconditionally
// contributes its 8-byte-aligned total out of line.
func tableEnvelopeContent(m ir.TypeShape) uint32 {
	return AlignUp(AddSat(m.InlineSize, m.MaxOutOfLine), 8)
}

// contentOfEnvelope is the out-of-line bytes a union/overlay envelope
// contributes: payloads of 4 bytes or fewer are inlined into the envelope
// itself, so only larger payloads (aligned to 8) add out-of-line content.
func contentOfEnvelope(m ir.TypeShape) uint32 {
	total := AddSat(m.InlineSize, m.MaxOutOfLine)
	if total <= 4 {
		return 0
	}
	return AlignUp(total, 8)
}

// UnionShape computes the fixed (16, 8) inline shape for a union or
// overlay, per spec §4.6.
func UnionShape(strict bool, memberShapes []ir.TypeShape) ir.TypeShape {
	if len(memberShapes) == 0 {
		return ir.TypeShape{InlineSize: 16, Alignment: 8, HasFlexibleEnvelope: !strict}
	}
	var maxOOL, maxHandles, depth uint32
	for _, m := range memberShapes {
		maxOOL = MaxOf(maxOOL, contentOfEnvelope(m))
		maxHandles = MaxOf(maxHandles, m.MaxHandles)
		depth = MaxOf(depth, m.Depth)
	}
	return ir.TypeShape{
		InlineSize:          16,
		Alignment:           8,
		Depth:               AddSat(depth, 1),
		MaxHandles:          maxHandles,
		MaxOutOfLine:        maxOOL,
		HasFlexibleEnvelope: !strict,
	}
}
