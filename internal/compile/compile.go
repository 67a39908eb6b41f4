// Package compile implements the compile phase (C7): it walks the
// declaration graph the resolve phase (C5) ordered, computes every
// declared type's shape via internal/shape, and assembles the final
// internal/ir.Library that internal/irwriter serialises.
package compile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/consume"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/mehditeymorian/fidlgo/internal/resolve"
	"github.com/mehditeymorian/fidlgo/internal/shape"
	"github.com/mehditeymorian/fidlgo/internal/source"
)

// ctx carries the running state a topological walk over declarations
// accumulates: every declaration's shape, keyed by FQN, so a later
// declaration can look up an earlier one's shape without recomputing it.
type ctx struct {
	libName string
	r       *diagnostics.Reporter
	shapes  map[ir.FQN]ir.TypeShape
	decls   map[ir.FQN]*consume.RawDecl
}

// toIRLoc converts a parsed node's span into the location shape the JSON
// schema carries; a zero File (synthesized nodes with no source span)
// yields a zero Location rather than panicking.
func toIRLoc(sp source.Span) ir.Location {
	if sp.File == nil {
		return ir.Location{}
	}
	l := sp.File.LocationFor(sp)
	return ir.Location{Filename: l.Filename, Line: uint32(l.Line), Column: uint32(l.Column), Length: uint32(l.Length)}
}

// Compile runs the shape and type-resolution rules over every
// declaration in g.Order and assembles the resulting library. Errors
// raised during compilation (unresolved identifiers, malformed or
// optional arrays, empty strict unions/enums/bits, duplicate enum values,
// invalid bits members) are reported through r; duplicate ordinals and
// size bounds are not checked here.
// Library is still returned so the caller can decide whether a partial
// IR is useful, per spec's "compilation fails iff an error diagnostic
// was emitted" contract.
func Compile(lib *consume.Library, g *resolve.Graph, r *diagnostics.Reporter) *ir.Library {
	c := &ctx{
		libName: lib.Name,
		r:       r,
		shapes:  map[ir.FQN]ir.TypeShape{},
		decls:   lib.Decls,
	}

	out := &ir.Library{
		Name:                             lib.Name,
		Declarations:                     map[ir.FQN]string{},
		BitsDeclarations:                 []ir.BitsDeclaration{},
		ConstDeclarations:                []ir.ConstDeclaration{},
		EnumDeclarations:                 []ir.EnumDeclaration{},
		ExperimentalResourceDeclarations: []ir.ExperimentalResourceDeclaration{},
		ProtocolDeclarations:             []ir.ProtocolDeclaration{},
		ServiceDeclarations:              []ir.ServiceDeclaration{},
		StructDeclarations:               []ir.StructDeclaration{},
		ExternalStructDeclarations:       []ir.StructDeclaration{},
		TableDeclarations:                []ir.TableDeclaration{},
		UnionDeclarations:                []ir.UnionDeclaration{},
		AliasDeclarations:                []ir.AliasDeclaration{},
		NewTypeDeclarations:              []ir.NewTypeDeclaration{},
	}

	for _, name := range g.Order {
		decl := lib.Decls[name]
		switch decl.Kind {
		case consume.KindStruct:
			d := c.compileStruct(name, decl.Node.(*ast.StructDecl))
			out.StructDeclarations = append(out.StructDeclarations, d)
			out.Declarations[name] = "struct"
		case consume.KindTable:
			d := c.compileTable(name, decl.Node.(*ast.TableDecl))
			out.TableDeclarations = append(out.TableDeclarations, d)
			out.Declarations[name] = "table"
		case consume.KindUnion, consume.KindOverlay:
			d := c.compileUnion(name, decl.Node.(*ast.UnionDecl))
			out.UnionDeclarations = append(out.UnionDeclarations, d)
			out.Declarations[name] = "union"
		case consume.KindEnum:
			d := c.compileEnum(name, decl.Node.(*ast.EnumDecl))
			out.EnumDeclarations = append(out.EnumDeclarations, d)
			out.Declarations[name] = "enum"
		case consume.KindBits:
			d := c.compileBits(name, decl.Node.(*ast.BitsDecl))
			out.BitsDeclarations = append(out.BitsDeclarations, d)
			out.Declarations[name] = "bits"
		case consume.KindAlias:
			d := c.compileAlias(name, decl.Node.(*ast.AliasDecl))
			out.AliasDeclarations = append(out.AliasDeclarations, d)
			out.Declarations[name] = "alias"
		case consume.KindNewType:
			d := c.compileNewType(name, decl.Node.(*ast.TypeDecl))
			out.NewTypeDeclarations = append(out.NewTypeDeclarations, d)
			out.Declarations[name] = "new_type"
		case consume.KindConst:
			d := c.compileConst(name, decl.Node.(*ast.ConstDecl))
			out.ConstDeclarations = append(out.ConstDeclarations, d)
			out.Declarations[name] = "const"
		case consume.KindResource:
			d := c.compileResource(name, decl.Node.(*ast.ResourceDecl))
			out.ExperimentalResourceDeclarations = append(out.ExperimentalResourceDeclarations, d)
			out.Declarations[name] = "experimental_resource"
		case consume.KindProtocol:
			d := c.compileProtocol(name, decl.Node.(*ast.ProtocolDecl))
			out.ProtocolDeclarations = append(out.ProtocolDeclarations, d)
			out.Declarations[name] = "protocol"
		case consume.KindService:
			d := c.compileService(name, decl.Node.(*ast.ServiceDecl))
			out.ServiceDeclarations = append(out.ServiceDeclarations, d)
			out.Declarations[name] = "service"
		}
	}

	sortDeclarations(out)
	out.DeclarationOrder = append([]ir.FQN(nil), g.Order...)
	return out
}

func sortDeclarations(out *ir.Library) {
	sort.Slice(out.StructDeclarations, func(i, j int) bool {
		return out.StructDeclarations[i].Name < out.StructDeclarations[j].Name
	})
	sort.Slice(out.TableDeclarations, func(i, j int) bool {
		return out.TableDeclarations[i].Name < out.TableDeclarations[j].Name
	})
	sort.Slice(out.UnionDeclarations, func(i, j int) bool {
		return out.UnionDeclarations[i].Name < out.UnionDeclarations[j].Name
	})
	sort.Slice(out.EnumDeclarations, func(i, j int) bool {
		return out.EnumDeclarations[i].Name < out.EnumDeclarations[j].Name
	})
	sort.Slice(out.BitsDeclarations, func(i, j int) bool {
		return out.BitsDeclarations[i].Name < out.BitsDeclarations[j].Name
	})
	sort.Slice(out.AliasDeclarations, func(i, j int) bool {
		return out.AliasDeclarations[i].Name < out.AliasDeclarations[j].Name
	})
	sort.Slice(out.NewTypeDeclarations, func(i, j int) bool {
		return out.NewTypeDeclarations[i].Name < out.NewTypeDeclarations[j].Name
	})
	sort.Slice(out.ConstDeclarations, func(i, j int) bool {
		return out.ConstDeclarations[i].Name < out.ConstDeclarations[j].Name
	})
	sort.Slice(out.ProtocolDeclarations, func(i, j int) bool {
		return out.ProtocolDeclarations[i].Name < out.ProtocolDeclarations[j].Name
	})
	sort.Slice(out.ServiceDeclarations, func(i, j int) bool {
		return out.ServiceDeclarations[i].Name < out.ServiceDeclarations[j].Name
	})
	sort.Slice(out.ExperimentalResourceDeclarations, func(i, j int) bool {
		return out.ExperimentalResourceDeclarations[i].Name < out.ExperimentalResourceDeclarations[j].Name
	})
}

// ---- type resolution ----

var builtinPrimitives = map[string]bool{
	"bool": true, "int8": true, "uint8": true, "int16": true, "uint16": true,
	"int32": true, "uint32": true, "int64": true, "uint64": true,
	"float32": true, "float64": true,
}

func resolveFQN(id ast.CompoundIdentifier, libName string) ir.FQN {
	if len(id.Parts) == 1 {
		return ir.FQN(libName + "/" + id.Parts[0])
	}
	last := id.Parts[len(id.Parts)-1]
	libPath := strings.Join(id.Parts[:len(id.Parts)-1], ".")
	return ir.FQN(libPath + "/" + last)
}

func constU32(c ast.Constant) (uint32, bool) {
	lit, ok := c.(*ast.LiteralConstant)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(lit.Value, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// bound returns the declared [:N] constraint as a saturating u32, or
// ir.Unbounded if none was given (spec §4.6's default for string/vector).
func (c *ctx) bound(tc *ast.TypeConstructor) uint32 {
	if len(tc.Constraints) == 0 {
		return ir.Unbounded
	}
	for _, cons := range tc.Constraints {
		if n, ok := constU32(cons); ok {
			return n
		}
	}
	return ir.Unbounded
}

// resolveType compiles one type constructor into its fully shaped ir.Type,
// per spec §4.6's resolve-type algorithm. file/line/col locate diagnostics
// raised while resolving this specific reference.
func (c *ctx) resolveType(tc *ast.TypeConstructor, file string, line, col int) ir.Type {
	if tc == nil {
		return ir.Type{KindV2: ir.KindPrimitive, Subtype: "uint32", TypeShapeV2: ir.TypeShape{InlineSize: 4, Alignment: 4}}
	}

	idl, isIdent := tc.Layout.(ast.IdentifierLayout)
	if !isIdent {
		// An inline layout surviving to compile means consume's promotion
		// pass missed a case; treat conservatively as an opaque struct-
		// shaped identifier so compilation can still proceed.
		return ir.Type{KindV2: ir.KindIdentifier, TypeShapeV2: ir.TypeShape{InlineSize: 1, Alignment: 1}}
	}
	name := idl.Identifier.String()

	switch {
	case builtinPrimitives[name]:
		s, _ := shape.Primitive(name)
		return ir.Type{KindV2: ir.KindPrimitive, Subtype: name, TypeShapeV2: s}

	case name == "string" || name == "string_array":
		bound := c.bound(tc)
		s := shape.StringShape(bound)
		t := ir.Type{KindV2: ir.KindString, Nullable: tc.Nullable, TypeShapeV2: s}
		if bound != ir.Unbounded {
			b := bound
			t.MaybeElementCount = &b
		}
		return t

	case name == "vector":
		var elem ir.Type
		if len(tc.Parameters) > 0 {
			elem = c.resolveType(tc.Parameters[0], file, line, col)
		}
		bound := c.bound(tc)
		s := shape.VectorShape(elem.TypeShapeV2, bound)
		t := ir.Type{KindV2: ir.KindVector, Nullable: tc.Nullable, ElementType: &elem, TypeShapeV2: s}
		if bound != ir.Unbounded {
			b := bound
			t.MaybeElementCount = &b
		}
		return t

	case name == "array":
		if len(tc.Parameters) < 2 {
			c.r.Error(diagnostics.ErrUnexpectedToken, file, line, col, "array requires an element type and a count")
			return ir.Type{KindV2: ir.KindArray, TypeShapeV2: ir.TypeShape{InlineSize: 1, Alignment: 1}}
		}
		elem := c.resolveType(tc.Parameters[0], file, line, col)
		count, ok := constU32(tc.Parameters[1].Size)
		if !ok {
			count = 0
		}
		if tc.Nullable {
			c.r.Error(diagnostics.ErrOptionalOnNonIndirect, file, line, col,
				"array cannot be marked optional; wrap the containing field in box<> instead")
		}
		s := shape.ArrayShape(elem.TypeShapeV2, count)
		cnt := count
		return ir.Type{KindV2: ir.KindArray, ElementType: &elem, ElementCount: &cnt, TypeShapeV2: s}

	case name == "handle":
		s := shape.HandleShape()
		return ir.Type{KindV2: ir.KindHandle, Subtype: "handle", Nullable: tc.Nullable, TypeShapeV2: s}

	case name == "client_end" || name == "server_end" || name == "request":
		s := shape.HandleShape()
		var proto ir.FQN
		if len(tc.Parameters) > 0 {
			if pid, ok := tc.Parameters[0].Layout.(ast.IdentifierLayout); ok {
				proto = resolveFQN(pid.Identifier, c.libName)
			}
		}
		return ir.Type{KindV2: ir.KindHandle, Subtype: name, Identifier: proto, Nullable: tc.Nullable, TypeShapeV2: s}

	case name == "box":
		var inner ir.Type
		if len(tc.Parameters) > 0 {
			inner = c.resolveType(tc.Parameters[0], file, line, col)
		}
		s := shape.HandleShape()
		s.InlineSize, s.Alignment = 8, 8
		s.MaxHandles = inner.TypeShapeV2.MaxHandles
		s.MaxOutOfLine = shape.AddSat(inner.TypeShapeV2.InlineSize, inner.TypeShapeV2.MaxOutOfLine)
		s.Depth = shape.AddSat(inner.TypeShapeV2.Depth, 1)
		s.HasFlexibleEnvelope = inner.TypeShapeV2.HasFlexibleEnvelope
		return ir.Type{KindV2: ir.KindIdentifier, ElementType: &inner, Nullable: true, TypeShapeV2: s}

	case name == "fidl.FrameworkErr":
		// The framework_err member consume synthesises for flexible
		// error methods; its wire form is an int32.
		s, _ := shape.Primitive("int32")
		return ir.Type{KindV2: ir.KindIdentifier, Identifier: "fidl/FrameworkErr", TypeShapeV2: s}

	default:
		target := resolveFQN(idl.Identifier, c.libName)
		s, ok := c.shapes[target]
		if !ok {
			if _, declared := c.decls[target]; declared {
				// Legitimate forward reference across an indirect-only
				// cycle (e.g. a struct boxing itself): the target exists
				// but hasn't been compiled yet in this topological walk.
				// Its real shape is unbounded from here; box/vector above
				// us already account for that via their own depth+1 rule.
				s = shape.CycleSentinel(0, 1)
			} else {
				c.r.Error(diagnostics.ErrUnresolvedIdentifier, file, line, col,
					fmt.Sprintf("unresolved identifier %q", target))
				s = shape.CycleSentinel(1, 1)
			}
		}
		if tc.Nullable {
			s.InlineSize, s.Alignment = 8, 8
		}
		return ir.Type{KindV2: ir.KindIdentifier, Identifier: target, Nullable: tc.Nullable, TypeShapeV2: s}
	}
}
