package resolve

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/consume"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/mehditeymorian/fidlgo/internal/parser"
	"github.com/mehditeymorian/fidlgo/internal/source"
	"github.com/stretchr/testify/require"
)

func resolveSrc(t *testing.T, src string) (*consume.Library, *Graph, *diagnostics.Reporter) {
	t.Helper()
	r := &diagnostics.Reporter{}
	f := source.New("test.fidl", []byte(src))
	astFile := parser.Parse(f, r)
	lib := consume.Consume([]*ast.File{astFile}, r)
	g := Resolve(lib, r)
	return lib, g, r
}

func indexOf(order []ir.FQN, fqn ir.FQN) int {
	for i, v := range order {
		if v == fqn {
			return i
		}
	}
	return -1
}

func TestResolveOrdersSizedDependencyBeforeDependent(t *testing.T) {
	_, g, r := resolveSrc(t, `library order;

type Outer = struct {
    inner Inner;
};
type Inner = struct {
    v uint8;
};
`)
	require.False(t, r.HasErrors())
	innerIdx := indexOf(g.Order, "order/Inner")
	outerIdx := indexOf(g.Order, "order/Outer")
	require.GreaterOrEqual(t, innerIdx, 0)
	require.GreaterOrEqual(t, outerIdx, 0)
	require.Less(t, innerIdx, outerIdx)
}

func TestResolveRejectsSizedCycle(t *testing.T) {
	_, _, r := resolveSrc(t, `library cyc;

type A = struct {
    b B;
};
type B = struct {
    a A;
};
`)
	require.True(t, r.HasErrors())
}

func TestResolveAllowsCycleThroughBox(t *testing.T) {
	_, g, r := resolveSrc(t, `library cyc;

type Node = struct {
    next box<Node>;
};
`)
	require.False(t, r.HasErrors())
	require.Contains(t, g.Order, ir.FQN("cyc/Node"))
}

func TestResolveDoesNotOrderAcrossIndirectEdge(t *testing.T) {
	_, g, r := resolveSrc(t, `library cyc;

type A = struct {
    b vector<B>;
};
type B = struct {
    a box<A>;
};
`)
	require.False(t, r.HasErrors())
	require.Contains(t, g.Order, ir.FQN("cyc/A"))
	require.Contains(t, g.Order, ir.FQN("cyc/B"))
}
