package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPositionForSingleLine(t *testing.T) {
	f := New("a.fidl", []byte("library example;"))
	pos := f.PositionFor(8)
	require.Equal(t, Position{Line: 1, Column: 9}, pos)
}

func TestPositionForMultiLine(t *testing.T) {
	f := New("a.fidl", []byte("library a;\ntype T = struct {};\n"))
	// offset 11 is the 't' of "type"
	pos := f.PositionFor(11)
	require.Equal(t, 2, pos.Line)
	require.Equal(t, 1, pos.Column)
}

func TestHasBOM(t *testing.T) {
	f := New("a.fidl", append([]byte{0xEF, 0xBB, 0xBF}, []byte("library a;")...))
	require.True(t, f.HasBOM())

	clean := New("b.fidl", []byte("library a;"))
	require.False(t, clean.HasBOM())
}

func TestLocationForSpan(t *testing.T) {
	f := New("a.fidl", []byte("library a;\nconst X uint8 = 1;\n"))
	sp := f.Span(11, 16) // "const"
	loc := f.LocationFor(sp)
	require.Equal(t, "a.fidl", loc.Filename)
	require.Equal(t, 2, loc.Line)
	require.Equal(t, 1, loc.Column)
	require.Equal(t, 5, loc.Length)
}
