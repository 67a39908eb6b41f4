package parser

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/source"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string) (*ast.File, *diagnostics.Reporter) {
	t.Helper()
	var r diagnostics.Reporter
	f := source.New("test.fidl", []byte(src))
	file := Parse(f, &r)
	return file, &r
}

func TestParseLibraryDecl(t *testing.T) {
	file, r := parseString(t, "library my.lib;")
	require.False(t, r.HasErrors())
	require.NotNil(t, file.LibraryDecl)
	require.Equal(t, "my.lib", file.LibraryDecl.Path.String())
}

func TestParseUsingWithAlias(t *testing.T) {
	file, r := parseString(t, "library a; using other.lib as ol;")
	require.False(t, r.HasErrors())
	require.Len(t, file.Using, 1)
	require.Equal(t, "other.lib", file.Using[0].Path.String())
	require.Equal(t, "ol", file.Using[0].Alias)
}

func TestParseConstDecl(t *testing.T) {
	file, r := parseString(t, "library a; const MAX uint32 = 100;")
	require.False(t, r.HasErrors())
	require.Len(t, file.Consts, 1)
	require.Equal(t, "MAX", file.Consts[0].Name)
	lit, ok := file.Consts[0].Value.(*ast.LiteralConstant)
	require.True(t, ok)
	require.Equal(t, "100", lit.Value)
}

func TestParseMixedStructNameThenType(t *testing.T) {
	file, r := parseString(t, "library a; type Mixed = struct { a bool; b uint32; };")
	require.False(t, r.HasErrors())
	require.Len(t, file.Types, 1)
	d, ok := file.Types[0].Layout.(*ast.StructDecl)
	require.True(t, ok)
	require.Len(t, d.Members, 2)
	require.Equal(t, "a", d.Members[0].Name)
	require.Equal(t, "b", d.Members[1].Name)
}

func TestParseTableWithOrdinalsAndReserved(t *testing.T) {
	file, r := parseString(t, `library a;
type T = table {
    1: name string;
    2: reserved;
    3: age uint8;
};`)
	require.False(t, r.HasErrors())
	d, ok := file.Types[0].Layout.(*ast.TableDecl)
	require.True(t, ok)
	require.Len(t, d.Members, 3)
	require.Equal(t, 1, d.Members[0].Ordinal)
	require.True(t, d.Members[1].Reserved)
	require.Equal(t, "age", d.Members[2].Name)
}

func TestParseStrictUnion(t *testing.T) {
	file, r := parseString(t, `library a;
type U = strict union {
    1: i int32;
    2: s string;
};`)
	require.False(t, r.HasErrors())
	d, ok := file.Types[0].Layout.(*ast.UnionDecl)
	require.True(t, ok)
	require.Equal(t, ast.Strict, d.Strictness)
	require.False(t, d.IsOverlay)
}

func TestParseBitsWithSubtype(t *testing.T) {
	file, r := parseString(t, `library a;
type Fruit = bits : uint32 {
    ORANGE = 1;
    APPLE = 2;
};`)
	require.False(t, r.HasErrors())
	d, ok := file.Types[0].Layout.(*ast.BitsDecl)
	require.True(t, ok)
	require.NotNil(t, d.Subtype)
	require.Len(t, d.Members, 2)
}

func TestParseProtocolMethodWithRequestResponseError(t *testing.T) {
	file, r := parseString(t, `library a;
open protocol Store {
    Get(struct { key string; }) -> (struct { value string; }) error uint32;
};`)
	require.False(t, r.HasErrors())
	require.Len(t, file.Protocols, 1)
	p := file.Protocols[0]
	require.Equal(t, ast.Open, p.Openness)
	require.Len(t, p.Methods, 1)
	m := p.Methods[0]
	require.True(t, m.HasRequest)
	require.True(t, m.HasResponse)
	require.True(t, m.HasError)
}

func TestParseProtocolCompose(t *testing.T) {
	file, r := parseString(t, `library a;
open protocol Base { };
open protocol Derived {
    compose Base;
};`)
	require.False(t, r.HasErrors())
	derived := file.Protocols[1]
	require.Len(t, derived.Methods, 1)
	require.True(t, derived.Methods[0].IsCompose)
	require.Equal(t, "Base", derived.Methods[0].Compose.String())
}

func TestParseComposeRejectsModifierAttribute(t *testing.T) {
	_, r := parseString(t, `library a;
open protocol Base { };
open protocol Derived {
    @selector("x") compose Base;
};`)
	require.True(t, r.HasErrors())
	require.Equal(t, diagnostics.ErrComposeAttribute, r.Diagnostics()[0].Code)
}

func TestParseServiceDecl(t *testing.T) {
	file, r := parseString(t, `library a;
service Svc {
    backend client_end:Store;
};`)
	require.False(t, r.HasErrors())
	require.Len(t, file.Services, 1)
	require.Len(t, file.Services[0].Members, 1)
	require.Equal(t, "backend", file.Services[0].Members[0].Name)
}

func TestParseResourceDefinition(t *testing.T) {
	file, r := parseString(t, `library a;
resource_definition Handle : uint32 {
    properties {
        subtype uint32;
    };
};`)
	require.False(t, r.HasErrors())
	require.Len(t, file.Resources, 1)
	require.Len(t, file.Resources[0].Properties, 1)
	require.Equal(t, "subtype", file.Resources[0].Properties[0].Name)
}

func TestParseDocCommentAttachesToDecl(t *testing.T) {
	file, r := parseString(t, `library a;
/// Describes a widget.
type Widget = struct {};`)
	require.False(t, r.HasErrors())
	attrs := file.Types[0].Attributes
	require.NotNil(t, attrs)
	require.True(t, attrs.Attributes[0].IsDoc)
}

func TestParseNamedAttributeArgs(t *testing.T) {
	file, r := parseString(t, `library a;
@available(added=1, removed=2)
type Widget = struct {};`)
	require.False(t, r.HasErrors())
	attrs := file.Types[0].Attributes
	require.Len(t, attrs.Attributes, 1)
	require.Equal(t, "available", attrs.Attributes[0].Name)
	require.Len(t, attrs.Attributes[0].Args, 2)
	require.Equal(t, "added", attrs.Attributes[0].Args[0].Name)
}

func TestParseNullableBoxedType(t *testing.T) {
	file, r := parseString(t, `library a;
type Node = struct {
    next box<Node>;
};`)
	require.False(t, r.HasErrors())
	d := file.Types[0].Layout.(*ast.StructDecl)
	require.Len(t, d.Members[0].TypeCtor.Parameters, 1)
}

func TestParseVectorConstraint(t *testing.T) {
	file, r := parseString(t, `library a;
type V = struct {
    items vector<uint8>:16;
};`)
	require.False(t, r.HasErrors())
	d := file.Types[0].Layout.(*ast.StructDecl)
	require.Len(t, d.Members[0].TypeCtor.Constraints, 1)
}

func TestParseBinaryOrConstant(t *testing.T) {
	file, r := parseString(t, `library a;
const FLAGS uint32 = Fruit.APPLE | Fruit.ORANGE;`)
	require.False(t, r.HasErrors())
	_, ok := file.Consts[0].Value.(*ast.BinaryOperatorConstant)
	require.True(t, ok)
}

func TestParseRecoversFromBadMemberAndContinues(t *testing.T) {
	file, r := parseString(t, `library a;
type Bad = struct {
    a ;
};
type Good = struct {};`)
	require.True(t, r.HasErrors())
	require.Len(t, file.Types, 2)
	require.Equal(t, "Good", file.Types[1].Name)
}
