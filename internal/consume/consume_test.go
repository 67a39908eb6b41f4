package consume

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/parser"
	"github.com/mehditeymorian/fidlgo/internal/source"
	"github.com/stretchr/testify/require"
)

func consumeSrc(t *testing.T, srcs ...string) (*Library, *diagnostics.Reporter) {
	t.Helper()
	r := &diagnostics.Reporter{}
	var files []*ast.File
	for i, src := range srcs {
		f := source.New("test.fidl", []byte(src))
		_ = i
		files = append(files, parser.Parse(f, r))
	}
	return Consume(files, r), r
}

func TestConsumeAssignsFullyQualifiedNames(t *testing.T) {
	lib, r := consumeSrc(t, `library widgets.core;

type Gadget = struct {
    id uint32;
};
`)
	require.False(t, r.HasErrors())
	require.Equal(t, "widgets.core", lib.Name)
	_, ok := lib.Decls["widgets.core/Gadget"]
	require.True(t, ok)
}

func TestConsumeRejectsConflictingLibraryNames(t *testing.T) {
	_, r := consumeSrc(t, `library one;
type A = struct {};
`, `library two;
type B = struct {};
`)
	require.True(t, r.HasErrors())
}

func TestConsumeRejectsDuplicateDeclarationName(t *testing.T) {
	_, r := consumeSrc(t, `library dup;

type Thing = struct { a uint8; };
type Thing = struct { b uint8; };
`)
	require.True(t, r.HasErrors())
}

func TestConsumeSynthesizesRequestAndResponseStructs(t *testing.T) {
	lib, r := consumeSrc(t, `library proto;

protocol Calculator {
    Add(struct { a int32; b int32; }) -> (struct { sum int32; });
};
`)
	require.False(t, r.HasErrors())
	_, ok := lib.Decls["proto/CalculatorAddRequest"]
	require.True(t, ok)
	_, ok = lib.Decls["proto/CalculatorAddResponse"]
	require.True(t, ok)
}

func TestConsumeSynthesizesResultUnionForErrorMethod(t *testing.T) {
	lib, r := consumeSrc(t, `library proto;

protocol Store {
    Get(struct { key string; }) -> (struct { value string; }) error uint32;
};
`)
	require.False(t, r.HasErrors())
	decl, ok := lib.Decls["proto/Store_Get_Result"]
	require.True(t, ok)
	require.Equal(t, KindUnion, decl.Kind)
	u := decl.Node.(*ast.UnionDecl)
	require.Len(t, u.Members, 3)
	require.Equal(t, "response", u.Members[0].Name)
	require.Equal(t, "err", u.Members[1].Name)
	require.Equal(t, "framework_err", u.Members[2].Name)
}

func TestConsumeStrictErrorMethodOmitsFrameworkErr(t *testing.T) {
	lib, r := consumeSrc(t, `library proto;

protocol Store {
    strict Get(struct { key string; }) -> (struct { value string; }) error uint32;
};
`)
	require.False(t, r.HasErrors())
	decl, ok := lib.Decls["proto/Store_Get_Result"]
	require.True(t, ok)
	u := decl.Node.(*ast.UnionDecl)
	require.Len(t, u.Members, 2)
}

func TestConsumePromotesAnonymousMemberLayout(t *testing.T) {
	lib, r := consumeSrc(t, `library nested;

type Outer = struct {
    inner struct {
        value uint8;
    };
};
`)
	require.False(t, r.HasErrors())
	found := false
	for fqn, decl := range lib.Decls {
		if decl.Kind == KindStruct && fqn != "nested/Outer" {
			found = true
		}
	}
	require.True(t, found, "expected the anonymous member struct to be promoted to a top-level declaration")
}
