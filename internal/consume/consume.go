// Package consume implements the consume phase (C4): it merges every
// file's raw AST into one declaration table keyed by fully qualified
// name, validates that every file agrees on the library's name, and
// synthesises the struct/union declarations a protocol method's
// anonymous request/response/error payloads imply.
package consume

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/mehditeymorian/fidlgo/internal/source"
)

// Kind distinguishes the declaration kinds named in spec §3.
type Kind string

const (
	KindStruct   Kind = "struct"
	KindTable    Kind = "table"
	KindUnion    Kind = "union"
	KindOverlay  Kind = "overlay"
	KindEnum     Kind = "enum"
	KindBits     Kind = "bits"
	KindAlias    Kind = "alias"
	KindNewType  Kind = "new-type"
	KindConst    Kind = "const"
	KindProtocol Kind = "protocol"
	KindService  Kind = "service"
	KindResource Kind = "resource"
)

// RawDecl pairs a declaration's FQN and kind with its AST node, so later
// phases can dispatch by Kind without a further type switch on Node.
type RawDecl struct {
	FQN  ir.FQN
	Kind Kind
	Node interface{}
}

// Library is the consume phase's output: every declaration across all
// input files, keyed by FQN, plus the order they were inserted in: file
// by file, each file's declarations grouped by kind; a promoted member
// layout is inserted just before its enclosing declaration, and a
// protocol's synthesised payloads right after the protocol.
type Library struct {
	Name  string
	Decls map[ir.FQN]*RawDecl
	Order []ir.FQN
}

func (l *Library) insert(r *diagnostics.Reporter, fqn ir.FQN, kind Kind, node interface{}, span source.Span) {
	if existing, ok := l.Decls[fqn]; ok {
		pos := span.File.PositionFor(span.Begin)
		r.ErrorRelated(diagnostics.ErrDuplicateName, span.File.Name, pos.Line, pos.Column,
			fmt.Sprintf("declaration %q already defined", fqn), diagnostics.Related{
				Message: "first defined here",
			})
		_ = existing
		return
	}
	l.Decls[fqn] = &RawDecl{FQN: fqn, Kind: kind, Node: node}
	l.Order = append(l.Order, fqn)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fqnOf(lib, shortName string) ir.FQN {
	return ir.FQN(lib + "/" + shortName)
}

// Consume merges files, which must all declare the same library, into a
// single Library of raw declarations.
func Consume(files []*ast.File, r *diagnostics.Reporter) *Library {
	lib := &Library{Decls: map[ir.FQN]*RawDecl{}}

	for _, f := range files {
		if f.LibraryDecl == nil {
			continue
		}
		path := f.LibraryDecl.Path.String()
		if lib.Name == "" {
			lib.Name = path
			continue
		}
		if lib.Name != path {
			sp := f.LibraryDecl.Span
			pos := sp.File.PositionFor(sp.Begin)
			r.Error(diagnostics.ErrConflictingLibraryName, sp.File.Name, pos.Line, pos.Column,
				fmt.Sprintf("file declares library %q, expected %q", path, lib.Name))
		}
	}
	if lib.Name == "" {
		lib.Name = "unknown"
	}

	for _, f := range files {
		consumeFile(lib, f, r)
	}
	return lib
}

func consumeFile(lib *Library, f *ast.File, r *diagnostics.Reporter) {
	for _, d := range f.Aliases {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindAlias, d, d.Span)
	}
	for _, d := range f.Consts {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindConst, d, d.Span)
	}
	for _, d := range f.Structs {
		promoteMemberLayouts(lib, r, d.Name, d.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), KindStruct, d, d.Span)
	}
	for _, d := range f.Enums {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindEnum, d, d.Span)
	}
	for _, d := range f.Bits {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindBits, d, d.Span)
	}
	for _, d := range f.Unions {
		kind := KindUnion
		if d.IsOverlay {
			kind = KindOverlay
		}
		promoteUnionMemberLayouts(lib, r, d.Name, d.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), kind, d, d.Span)
	}
	for _, d := range f.Tables {
		promoteTableMemberLayouts(lib, r, d.Name, d.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), KindTable, d, d.Span)
	}
	for _, d := range f.Types {
		consumeTypeDecl(lib, r, d)
	}
	for _, d := range f.Services {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindService, d, d.Span)
	}
	for _, d := range f.Resources {
		lib.insert(r, fqnOf(lib.Name, d.Name), KindResource, d, d.Span)
	}
	for _, d := range f.Protocols {
		consumeProtocol(lib, r, d)
	}
}

func consumeTypeDecl(lib *Library, r *diagnostics.Reporter, d *ast.TypeDecl) {
	switch layout := d.Layout.(type) {
	case *ast.StructDecl:
		layout.Name = d.Name
		promoteMemberLayouts(lib, r, d.Name, layout.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), KindStruct, layout, d.Span)
	case *ast.TableDecl:
		layout.Name = d.Name
		promoteTableMemberLayouts(lib, r, d.Name, layout.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), KindTable, layout, d.Span)
	case *ast.UnionDecl:
		layout.Name = d.Name
		kind := KindUnion
		if layout.IsOverlay {
			kind = KindOverlay
		}
		promoteUnionMemberLayouts(lib, r, d.Name, layout.Members)
		lib.insert(r, fqnOf(lib.Name, d.Name), kind, layout, d.Span)
	case *ast.EnumDecl:
		layout.Name = d.Name
		lib.insert(r, fqnOf(lib.Name, d.Name), KindEnum, layout, d.Span)
	case *ast.BitsDecl:
		layout.Name = d.Name
		lib.insert(r, fqnOf(lib.Name, d.Name), KindBits, layout, d.Span)
	default:
		// new-type form: `type Name = TypeConstructor;`
		lib.insert(r, fqnOf(lib.Name, d.Name), KindNewType, d, d.Span)
	}
}

// promoteMemberLayouts hoists any inline struct/table/union/enum/bits
// layout used as a struct member's type (directly, or nested inside
// box/vector/array parameters) to a top-level declaration, replacing it
// in place with a reference to the synthesised name.
func promoteMemberLayouts(lib *Library, r *diagnostics.Reporter, enclosing string, members []*ast.StructMember) {
	for _, m := range members {
		promoteTypeCtor(lib, r, enclosing, m.Name, m.TypeCtor)
	}
}

func promoteTableMemberLayouts(lib *Library, r *diagnostics.Reporter, enclosing string, members []*ast.TableMember) {
	for _, m := range members {
		if m.Reserved {
			continue
		}
		promoteTypeCtor(lib, r, enclosing, m.Name, m.TypeCtor)
	}
}

func promoteUnionMemberLayouts(lib *Library, r *diagnostics.Reporter, enclosing string, members []*ast.UnionMember) {
	for _, m := range members {
		if m.Reserved {
			continue
		}
		promoteTypeCtor(lib, r, enclosing, m.Name, m.TypeCtor)
	}
}

func promoteTypeCtor(lib *Library, r *diagnostics.Reporter, enclosing, member string, tc *ast.TypeConstructor) {
	if tc == nil {
		return
	}
	if inline, ok := tc.Layout.(ast.InlineLayout); ok {
		name := enclosing + capitalize(member)
		fqn := fqnOf(lib.Name, name)
		switch layout := inline.Layout.(type) {
		case *ast.StructDecl:
			layout.Name = name
			promoteMemberLayouts(lib, r, name, layout.Members)
			lib.insert(r, fqn, KindStruct, layout, layout.Span)
		case *ast.TableDecl:
			layout.Name = name
			promoteTableMemberLayouts(lib, r, name, layout.Members)
			lib.insert(r, fqn, KindTable, layout, layout.Span)
		case *ast.UnionDecl:
			layout.Name = name
			kind := KindUnion
			if layout.IsOverlay {
				kind = KindOverlay
			}
			promoteUnionMemberLayouts(lib, r, name, layout.Members)
			lib.insert(r, fqn, kind, layout, layout.Span)
		case *ast.EnumDecl:
			layout.Name = name
			lib.insert(r, fqn, KindEnum, layout, layout.Span)
		case *ast.BitsDecl:
			layout.Name = name
			lib.insert(r, fqn, KindBits, layout, layout.Span)
		}
		tc.Layout = ast.IdentifierLayout{Identifier: ast.CompoundIdentifier{Parts: []string{name}, Span: tc.Span}}
	}
	for _, p := range tc.Parameters {
		promoteTypeCtor(lib, r, enclosing, member, p)
	}
}

// consumeProtocol registers the protocol itself and synthesises a
// top-level struct for every inline request/response payload, and a
// result union when the method declares `error`. Naming follows
// consume_step.rs: "{Protocol}{Method}Request", and either
// "{Protocol}{Method}Response" or, when an error type is present,
// "{Protocol}_{method}_Response" plus a "{Protocol}_{method}_Result"
// union wrapping ordinals {1: response, 2: err, 3: framework_err}.
func consumeProtocol(lib *Library, r *diagnostics.Reporter, d *ast.ProtocolDecl) {
	lib.insert(r, fqnOf(lib.Name, d.Name), KindProtocol, d, d.Span)

	for _, m := range d.Methods {
		if m.IsCompose {
			continue
		}
		methodCamel := capitalize(m.Name)

		var reqName string
		if m.HasRequest && isInlineStruct(m.RequestPayload) {
			reqName = d.Name + methodCamel + "Request"
			promoteNamedStruct(lib, r, reqName, m.RequestPayload)
		}

		responseTypeCtor := m.ResponsePayload
		if m.HasResponse && isInlineStruct(m.ResponsePayload) {
			var respName string
			if m.HasError {
				respName = fmt.Sprintf("%s_%s_Response", d.Name, m.Name)
			} else {
				respName = d.Name + methodCamel + "Response"
			}
			promoteNamedStruct(lib, r, respName, m.ResponsePayload)
			responseTypeCtor = identifierTypeCtor(respName, m.Span)
		}

		if m.HasError {
			resultName := fmt.Sprintf("%s_%s_Result", d.Name, m.Name)
			members := []*ast.UnionMember{
				{Ordinal: 1, Name: "response", TypeCtor: responseTypeCtor},
				{Ordinal: 2, Name: "err", TypeCtor: m.ErrorTypeCtor},
			}
			if !m.Strict {
				members = append(members, &ast.UnionMember{Ordinal: 3, Name: "framework_err", TypeCtor: identifierTypeCtor("fidl.FrameworkErr", m.Span)})
			}
			strictness := ast.Flexible
			if m.Strict {
				strictness = ast.Strict
			}
			result := &ast.UnionDecl{Name: resultName, Strictness: strictness, Members: members, Span: m.Span}
			lib.insert(r, fqnOf(lib.Name, resultName), KindUnion, result, m.Span)
		}
	}
}

func identifierTypeCtor(name string, span source.Span) *ast.TypeConstructor {
	return &ast.TypeConstructor{
		Layout: ast.IdentifierLayout{Identifier: ast.CompoundIdentifier{Parts: []string{name}, Span: span}},
		Span:   span,
	}
}

func isInlineStruct(tc *ast.TypeConstructor) bool {
	if tc == nil {
		return false
	}
	inline, ok := tc.Layout.(ast.InlineLayout)
	if !ok {
		return false
	}
	_, ok = inline.Layout.(*ast.StructDecl)
	return ok
}

func promoteNamedStruct(lib *Library, r *diagnostics.Reporter, name string, tc *ast.TypeConstructor) {
	inline := tc.Layout.(ast.InlineLayout)
	s := inline.Layout.(*ast.StructDecl)
	s.Name = name
	promoteMemberLayouts(lib, r, name, s.Members)
	lib.insert(r, fqnOf(lib.Name, name), KindStruct, s, s.Span)
	tc.Layout = ast.IdentifierLayout{Identifier: ast.CompoundIdentifier{Parts: []string{name}, Span: tc.Span}}
}

// SortedFQNs returns every declared FQN in lexicographic order, the
// tie-break order spec §4.4/§9 require for deterministic output.
func (l *Library) SortedFQNs() []ir.FQN {
	out := append([]ir.FQN(nil), l.Order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
