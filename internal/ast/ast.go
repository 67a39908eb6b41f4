// Package ast defines the raw abstract syntax tree the parser (C3)
// produces. The tree is built once and never mutated; later phases attach
// side tables keyed by fully qualified name rather than annotating nodes
// in place. Every node carries a source.Span so diagnostics can always
// point at the exact construct that triggered them.
package ast

import "github.com/mehditeymorian/fidlgo/internal/source"

// CompoundIdentifier is a dot-joined path, e.g. ["my", "lib"] or
// ["my", "lib", "Foo"].
type CompoundIdentifier struct {
	Parts []string
	Span  source.Span
}

func (c CompoundIdentifier) String() string {
	s := ""
	for i, p := range c.Parts {
		if i > 0 {
			s += "."
		}
		s += p
	}
	return s
}

// Strictness is strict or flexible; see GLOSSARY.
type Strictness int

const (
	StrictnessUnspecified Strictness = iota
	Strict
	Flexible
)

// Openness governs a protocol's acceptance of unknown interactions.
type Openness int

const (
	OpennessUnspecified Openness = iota
	Open
	Ajar
	Closed
)

// Attribute is `@name[(args...)]` or a synthesized doc-comment attribute.
type Attribute struct {
	Name string
	Args []*AttributeArg
	// IsDoc marks a doc-comment run folded into a synthetic "doc" attribute
	// whose single positional argument is the comment text.
	IsDoc bool
	Span  source.Span
}

// AttributeArg is a named (`name = constant`) or positional attribute
// argument.
type AttributeArg struct {
	Name  string // empty when positional
	Value Constant
	Span  source.Span
}

// AttributeList is zero or more attributes attached to a declaration.
type AttributeList struct {
	Attributes []*Attribute
	Span       source.Span
}

// Constant is a closed sum: IdentifierConstant | LiteralConstant |
// BinaryOperatorConstant.
type Constant interface {
	constantNode()
	Span() source.Span
}

type IdentifierConstant struct {
	Identifier CompoundIdentifier
	Sp         source.Span
}

func (c *IdentifierConstant) constantNode()      {}
func (c *IdentifierConstant) Span() source.Span  { return c.Sp }

type LiteralKind int

const (
	LiteralBool LiteralKind = iota
	LiteralNumeric
	LiteralString
	LiteralDocComment
)

type LiteralConstant struct {
	Kind  LiteralKind
	Value string // textual form, verbatim
	Sp    source.Span
}

func (c *LiteralConstant) constantNode()     {}
func (c *LiteralConstant) Span() source.Span { return c.Sp }

type BinaryOperator int

const (
	BinaryOr BinaryOperator = iota
)

type BinaryOperatorConstant struct {
	Left, Right Constant
	Op          BinaryOperator
	Sp          source.Span
}

func (c *BinaryOperatorConstant) constantNode()     {}
func (c *BinaryOperatorConstant) Span() source.Span { return c.Sp }

// TypeConstructor is `name['<' params '>'] [':' constraint-or-list] ['?']`.
// A generic parameter position can itself hold a type (Layout set) or,
// for array's trailing element-count parameter, a bare numeric constant
// (Size set, Layout nil).
type TypeConstructor struct {
	// Layout is either an identifier path (named type) or an inline
	// anonymous layout (struct/table/union/enum/bits literal used as a
	// type parameter or protocol payload).
	Layout      LayoutParameter
	Size        Constant
	Parameters  []*TypeConstructor
	Constraints []Constant
	Nullable    bool
	Span        source.Span
}

// LayoutParameter is a closed sum: IdentifierLayout | InlineLayout.
type LayoutParameter interface {
	layoutParameterNode()
}

type IdentifierLayout struct {
	Identifier CompoundIdentifier
}

func (IdentifierLayout) layoutParameterNode() {}

type InlineLayout struct {
	Layout Decl // one of *StructDecl, *TableDecl, *UnionDecl, *EnumDecl, *BitsDecl
}

func (InlineLayout) layoutParameterNode() {}

// Decl is a closed sum over every declaration kind that can be named or
// promoted to a top-level declaration.
type Decl interface {
	declNode()
	DeclSpan() source.Span
}

// Member names shared by Struct/Enum/Bits/Table/Union members.
type StructMember struct {
	Attributes   *AttributeList
	TypeCtor     *TypeConstructor
	Name         string
	DefaultValue Constant
	Span         source.Span
}

type StructDecl struct {
	Attributes *AttributeList
	IsResource bool
	Name       string // set by consume phase if declared anonymously
	Members    []*StructMember
	Span       source.Span
}

func (*StructDecl) declNode()                {}
func (d *StructDecl) DeclSpan() source.Span { return d.Span }

type EnumMember struct {
	Attributes *AttributeList
	Name       string
	Value      Constant
	Span       source.Span
}

type EnumDecl struct {
	Attributes *AttributeList
	Name       string
	Subtype    *TypeConstructor // nil => default uint32
	Strictness Strictness       // Unspecified => default Flexible
	Members    []*EnumMember
	Span       source.Span
}

func (*EnumDecl) declNode()                {}
func (d *EnumDecl) DeclSpan() source.Span { return d.Span }

type BitsMember struct {
	Attributes *AttributeList
	Name       string
	Value      Constant
	Span       source.Span
}

type BitsDecl struct {
	Attributes *AttributeList
	Name       string
	Subtype    *TypeConstructor
	Strictness Strictness
	Members    []*BitsMember
	Span       source.Span
}

func (*BitsDecl) declNode()                {}
func (d *BitsDecl) DeclSpan() source.Span { return d.Span }

type UnionMember struct {
	Attributes *AttributeList
	Ordinal    int // as written in source, reserved members included
	Reserved   bool
	Name       string
	TypeCtor   *TypeConstructor
	Span       source.Span
}

type UnionDecl struct {
	Attributes *AttributeList
	Name       string
	Strictness Strictness
	IsResource bool
	// IsOverlay distinguishes `overlay` from `union`; both share the
	// union/overlay compile rule in spec §4.6.
	IsOverlay bool
	Members   []*UnionMember
	Span      source.Span
}

func (*UnionDecl) declNode()                {}
func (d *UnionDecl) DeclSpan() source.Span { return d.Span }

type TableMember struct {
	Attributes *AttributeList
	Ordinal    int
	Reserved   bool
	Name       string
	TypeCtor   *TypeConstructor
	Span       source.Span
}

type TableDecl struct {
	Attributes *AttributeList
	Name       string
	IsResource bool
	Members    []*TableMember
	Span       source.Span
}

func (*TableDecl) declNode()                {}
func (d *TableDecl) DeclSpan() source.Span { return d.Span }

// AliasDecl is `alias Name = TypeConstructor;`.
type AliasDecl struct {
	Attributes *AttributeList
	Name       string
	TypeCtor   *TypeConstructor
	Span       source.Span
}

func (*AliasDecl) declNode()                {}
func (d *AliasDecl) DeclSpan() source.Span { return d.Span }

// TypeDecl is the modern `type Name = [strict|flexible] [resource]
// LAYOUT;` form, or a plain `type Name = TypeConstructor;` new-type.
type TypeDecl struct {
	Attributes *AttributeList
	Name       string
	// Layout is the parsed inline layout (Struct/Enum/Bits/Union/Table),
	// or nil when this is a new-type alias over TypeCtor.
	Layout   Decl
	TypeCtor *TypeConstructor // set when Layout == nil (new-type form)
	Span     source.Span
}

func (*TypeDecl) declNode()                {}
func (d *TypeDecl) DeclSpan() source.Span { return d.Span }

// ConstDecl is `const Name Type = value;`.
type ConstDecl struct {
	Attributes *AttributeList
	Name       string
	TypeCtor   *TypeConstructor
	Value      Constant
	Span       source.Span
}

func (*ConstDecl) declNode()                {}
func (d *ConstDecl) DeclSpan() source.Span { return d.Span }

// ProtocolMethod is one method inside a protocol body, or a `compose P;`
// line (IsCompose).
type ProtocolMethod struct {
	Attributes      *AttributeList
	Name            string
	Compose         CompoundIdentifier // set, with Name=="", for compose lines
	IsCompose       bool
	HasRequest      bool
	RequestPayload  *TypeConstructor
	HasResponse     bool
	ResponsePayload *TypeConstructor
	HasError        bool
	ErrorTypeCtor   *TypeConstructor
	Strict          bool
	Span            source.Span
}

type ProtocolDecl struct {
	Attributes *AttributeList
	Name       string
	Openness   Openness
	Methods    []*ProtocolMethod
	Span       source.Span
}

func (*ProtocolDecl) declNode()                {}
func (d *ProtocolDecl) DeclSpan() source.Span { return d.Span }

type ServiceMember struct {
	Attributes *AttributeList
	Name       string
	TypeCtor   *TypeConstructor
	Span       source.Span
}

type ServiceDecl struct {
	Attributes *AttributeList
	Name       string
	Members    []*ServiceMember
	Span       source.Span
}

func (*ServiceDecl) declNode()                {}
func (d *ServiceDecl) DeclSpan() source.Span { return d.Span }

type ResourceProperty struct {
	Name     string
	TypeCtor *TypeConstructor
	Span     source.Span
}

// ResourceDecl is `resource_definition Name : underlying { properties {
// ... }; };`.
type ResourceDecl struct {
	Attributes *AttributeList
	Name       string
	Underlying *TypeConstructor
	Properties []*ResourceProperty
	Span       source.Span
}

func (*ResourceDecl) declNode()                {}
func (d *ResourceDecl) DeclSpan() source.Span { return d.Span }

// LibraryDecl is the mandatory `library a.b.c;` line.
type LibraryDecl struct {
	Attributes *AttributeList
	Path       CompoundIdentifier
	Span       source.Span
}

// UsingDecl is `using a.b.c [as alias];`.
type UsingDecl struct {
	Attributes *AttributeList
	Path       CompoundIdentifier
	Alias      string // empty when no `as`
	Span       source.Span
}

// File is the root node for one source file's worth of declarations.
type File struct {
	SourceFile  string
	Attributes  *AttributeList
	LibraryDecl *LibraryDecl
	Using       []*UsingDecl
	Consts      []*ConstDecl
	Types       []*TypeDecl
	// Direct-form declarations, accepted for backward compatibility
	// alongside the `type Name = LAYOUT;` form (spec §4.2).
	Structs   []*StructDecl
	Enums     []*EnumDecl
	Bits      []*BitsDecl
	Unions    []*UnionDecl
	Tables    []*TableDecl
	Aliases   []*AliasDecl
	Protocols []*ProtocolDecl
	Services  []*ServiceDecl
	Resources []*ResourceDecl
	Span      source.Span
}
