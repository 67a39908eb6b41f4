package frontend

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, name, src string) *Result {
	t.Helper()
	return Compile([]Input{{Name: name, Data: []byte(src)}}, Options{})
}

func declByName(lib *ir.Library, fqn ir.FQN) bool {
	_, ok := lib.Declarations[fqn]
	return ok
}

func TestCompileEmptyStructHasMinimalShape(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Empty = struct {};
`)
	require.False(t, res.Reporter.HasErrors())
	require.Len(t, res.Library.StructDeclarations, 1)
	s := res.Library.StructDeclarations[0]
	require.Equal(t, ir.FQN("example/Empty"), s.Name)
	require.Equal(t, uint32(1), s.TypeShapeV2.InlineSize)
	require.Equal(t, uint32(1), s.TypeShapeV2.Alignment)
	require.False(t, s.TypeShapeV2.HasPadding)
}

func TestCompileMixedStructOrdersFieldsAsDeclared(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Mixed = struct {
    a uint8;
    b uint32;
    c uint8;
};
`)
	require.False(t, res.Reporter.HasErrors())
	s := res.Library.StructDeclarations[0]
	require.Equal(t, []string{"a", "b", "c"}, memberNames(s))
	require.Equal(t, uint32(0), s.Members[0].FieldShapeV2.Offset)
	require.Equal(t, uint32(4), s.Members[1].FieldShapeV2.Offset)
	require.Equal(t, uint32(8), s.Members[2].FieldShapeV2.Offset)
	require.Equal(t, uint32(12), s.TypeShapeV2.InlineSize)
}

func memberNames(s ir.StructDeclaration) []string {
	out := make([]string, len(s.Members))
	for i, m := range s.Members {
		out[i] = m.Name
	}
	return out
}

func TestCompileBitsRejectsNonPowerOfTwo(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Fruit = strict bits : uint8 {
    ORANGE = 1;
    APPLE = 2;
    BANANA = 3;
};
`)
	require.True(t, res.Reporter.HasErrors())
}

func TestCompileStrictEnumMustHaveMembers(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Empty = strict enum : uint32 {};
`)
	require.True(t, res.Reporter.HasErrors())
}

func TestCompileFlexibleEnumAllowsEmpty(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Empty = flexible enum : uint32 {};
`)
	require.False(t, res.Reporter.HasErrors())
}

func TestCompileTableWithOneMemberHasEnvelope(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Record = table {
    1: name string;
};
`)
	require.False(t, res.Reporter.HasErrors())
	tbl := res.Library.TableDeclarations[0]
	require.Equal(t, uint32(16), tbl.TypeShapeV2.InlineSize)
	require.Equal(t, uint32(8), tbl.TypeShapeV2.Alignment)
	require.True(t, tbl.TypeShapeV2.HasFlexibleEnvelope)
}

func TestCompileStrictUnionRejectsEmpty(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Choice = strict union {};
`)
	require.True(t, res.Reporter.HasErrors())
}

func TestCompileBoxedSelfReferenceHasUnboundedDepth(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type Node = struct {
    next box<Node>;
};
`)
	require.False(t, res.Reporter.HasErrors())
	s := res.Library.StructDeclarations[0]
	require.Equal(t, ir.Unbounded, s.Members[0].Type.TypeShapeV2.Depth)
}

func TestCompileSizedCycleFails(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

type A = struct {
    b B;
};
type B = struct {
    a A;
};
`)
	require.True(t, res.Reporter.HasErrors())
}

func TestCompileProtocolMethodSynthesizesRequestStruct(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

closed protocol Calculator {
    Add(struct { a int32; b int32; }) -> (struct { sum int32; });
};
`)
	require.False(t, res.Reporter.HasErrors())
	require.True(t, declByName(res.Library, "example/CalculatorAddRequest"))
	require.True(t, declByName(res.Library, "example/CalculatorAddResponse"))
	require.Len(t, res.Library.ProtocolDeclarations, 1)
	m := res.Library.ProtocolDeclarations[0].Methods[0]
	require.Equal(t, ir.FQN("example/CalculatorAddRequest"), m.MaybeRequestPayload)
	require.Equal(t, ir.FQN("example/CalculatorAddResponse"), m.MaybeResponsePayload)
}

func TestCompileErrorMethodSynthesizesResultUnion(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

open protocol Store {
    Get(struct { key string; }) -> (struct { value string; }) error uint32;
};
`)
	require.False(t, res.Reporter.HasErrors())
	require.True(t, declByName(res.Library, "example/Store_Get_Result"))

	result := unionByName(res.Library, "example/Store_Get_Result")
	require.NotNil(t, result)
	require.Len(t, result.Members, 3)
	require.Equal(t, "framework_err", result.Members[2].Name)
	require.Equal(t, uint32(3), result.Members[2].Ordinal)
}

func TestCompileStrictErrorMethodOmitsFrameworkErr(t *testing.T) {
	res := compileOne(t, "test.fidl", `library example;

open protocol Store {
    strict Get(struct { key string; }) -> (struct { value string; }) error uint32;
};
`)
	require.False(t, res.Reporter.HasErrors())
	result := unionByName(res.Library, "example/Store_Get_Result")
	require.NotNil(t, result)
	require.Len(t, result.Members, 2)
}

func unionByName(lib *ir.Library, fqn ir.FQN) *ir.UnionDeclaration {
	for i := range lib.UnionDeclarations {
		if lib.UnionDeclarations[i].Name == fqn {
			return &lib.UnionDeclarations[i]
		}
	}
	return nil
}
