package compile

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestResolveFQNSingleComponentUsesEnclosingLibrary(t *testing.T) {
	id := ast.CompoundIdentifier{Parts: []string{"Widget"}}
	require.Equal(t, ir.FQN("mylib/Widget"), resolveFQN(id, "mylib"))
}

func TestResolveFQNQualifiedPathKeepsForeignLibrary(t *testing.T) {
	id := ast.CompoundIdentifier{Parts: []string{"other", "pkg", "Widget"}}
	require.Equal(t, ir.FQN("other.pkg/Widget"), resolveFQN(id, "mylib"))
}

func TestConstU32ParsesDecimalLiteral(t *testing.T) {
	n, ok := constU32(&ast.LiteralConstant{Value: "42"})
	require.True(t, ok)
	require.Equal(t, uint32(42), n)
}

func TestConstU32RejectsNonLiteral(t *testing.T) {
	_, ok := constU32(&ast.IdentifierConstant{})
	require.False(t, ok)
}

func identTC(name string) *ast.TypeConstructor {
	return &ast.TypeConstructor{Layout: ast.IdentifierLayout{Identifier: ast.CompoundIdentifier{Parts: []string{name}}}}
}

func TestResolveTypeNilDefaultsToUint32(t *testing.T) {
	c := &ctx{libName: "lib", r: &diagnostics.Reporter{}, shapes: map[ir.FQN]ir.TypeShape{}}
	ty := c.resolveType(nil, "f", 1, 1)
	require.Equal(t, ir.KindPrimitive, ty.KindV2)
	require.Equal(t, "uint32", ty.Subtype)
}

func TestResolveTypePrimitiveUint8(t *testing.T) {
	c := &ctx{libName: "lib", r: &diagnostics.Reporter{}, shapes: map[ir.FQN]ir.TypeShape{}}
	ty := c.resolveType(identTC("uint8"), "f", 1, 1)
	require.Equal(t, ir.KindPrimitive, ty.KindV2)
	require.Equal(t, uint32(1), ty.TypeShapeV2.InlineSize)
}

func TestResolveTypeUnresolvedIdentifierReportsError(t *testing.T) {
	r := &diagnostics.Reporter{}
	c := &ctx{libName: "lib", r: r, shapes: map[ir.FQN]ir.TypeShape{}, decls: nil}
	ty := c.resolveType(identTC("Ghost"), "f", 1, 1)
	require.True(t, r.HasErrors())
	require.Equal(t, ir.Unbounded, ty.TypeShapeV2.Depth)
}
