// Package ir defines the compiled intermediate representation: the node
// types every phase from consume (C4) through the JSON writer (C9)
// shares. Unlike the raw AST, IR nodes are keyed and cross-referenced by
// fully qualified name rather than by pointer, since the compile phase
// (C7) must be able to look a dependency's shape up before it has
// necessarily finished building that dependency's full IR node.
package ir

// FQN is "library.path/ShortName". Declarations, type identifiers and
// protocol method payloads are all addressed by FQN.
type FQN string

// Location is a byte-span rendered into the external JSON schema.
type Location struct {
	Filename string `json:"filename"`
	Line     uint32 `json:"line"`
	Column   uint32 `json:"column"`
	Length   uint32 `json:"length"`
}

// Unbounded is the saturating sentinel for "no fixed bound", carried
// through shape arithmetic as math.MaxUint32.
const Unbounded uint32 = 0xFFFFFFFF

// TypeShape is the FIDL v2 wire-format shape of a type. All counts
// saturate at Unbounded; they never wrap.
type TypeShape struct {
	InlineSize          uint32 `json:"inline_size"`
	Alignment           uint32 `json:"alignment"`
	Depth               uint32 `json:"depth"`
	MaxHandles          uint32 `json:"max_handles"`
	MaxOutOfLine        uint32 `json:"max_out_of_line"`
	HasPadding          bool   `json:"has_padding"`
	HasFlexibleEnvelope bool   `json:"has_flexible_envelope"`
}

// FieldShape is a member's placement within its enclosing inline layout.
type FieldShape struct {
	Offset  uint32 `json:"offset"`
	Padding uint32 `json:"padding"`
}

// TypeKindV2 tags the closed sum of wire-level type categories.
type TypeKindV2 string

const (
	KindPrimitive  TypeKindV2 = "primitive"
	KindString     TypeKindV2 = "string"
	KindVector     TypeKindV2 = "vector"
	KindArray      TypeKindV2 = "array"
	KindHandle     TypeKindV2 = "handle"
	KindIdentifier TypeKindV2 = "identifier"
)

// Type is a fully resolved type reference carrying its own shape, so a
// member never needs a second lookup into the shapes table to serialise
// itself.
type Type struct {
	KindV2            TypeKindV2  `json:"kind_v2"`
	Subtype           string      `json:"subtype,omitempty"`
	Identifier        FQN         `json:"identifier,omitempty"`
	Nullable          bool        `json:"nullable,omitempty"`
	ElementType       *Type       `json:"element_type,omitempty"`
	ElementCount      *uint32     `json:"element_count,omitempty"`
	MaybeElementCount *uint32     `json:"maybe_element_count,omitempty"`
	Deprecated        bool        `json:"deprecated,omitempty"`
	MaybeAttributes   []Attribute `json:"maybe_attributes,omitempty"`
	FieldShapeV2      *FieldShape `json:"field_shape_v2,omitempty"`
	TypeShapeV2       TypeShape   `json:"type_shape_v2"`
}

// ConstantKind tags the closed sum a Constant can be.
type ConstantKind string

const (
	ConstLiteral       ConstantKind = "literal"
	ConstIdentifier    ConstantKind = "identifier"
	ConstBinaryOperator ConstantKind = "binary_operator"
)

// LiteralValue is the nested literal payload of a Constant of kind
// "literal".
type LiteralValue struct {
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	Expression string `json:"expression"`
}

// Constant is the compiled form of a constant expression: its value
// (the literal's value, or for an identifier constant the referenced
// name as written, not resolved) plus the verbatim source expression it
// was parsed from.
type Constant struct {
	Kind       ConstantKind  `json:"kind"`
	Value      string        `json:"value"`
	Expression string        `json:"expression"`
	Literal    *LiteralValue `json:"literal,omitempty"`
}

// AttributeArg is one argument of a compiled Attribute.
type AttributeArg struct {
	Name  string   `json:"name,omitempty"`
	Value Constant `json:"value"`
}

// Attribute is a compiled `@name(args...)` or doc-comment attribute.
type Attribute struct {
	Name      string         `json:"name"`
	Arguments []AttributeArg `json:"arguments,omitempty"`
	Location  Location       `json:"location"`
}

// StructMember is one compiled struct member.
type StructMember struct {
	Name             string      `json:"name"`
	Type             Type        `json:"type"`
	Location         Location    `json:"location"`
	MaybeAttributes  []Attribute `json:"maybe_attributes,omitempty"`
	MaybeDefaultValue *Constant  `json:"maybe_default_value,omitempty"`
	FieldShapeV2     FieldShape  `json:"field_shape_v2"`
}

type StructDeclaration struct {
	Name       FQN            `json:"name"`
	Location   Location       `json:"location"`
	Anonymous  bool           `json:"anonymous,omitempty"`
	IsResource bool           `json:"is_resource"`
	Members    []StructMember `json:"members"`
	TypeShapeV2 TypeShape     `json:"type_shape_v2"`
}

type TableMember struct {
	Ordinal         uint32      `json:"ordinal"`
	Reserved        bool        `json:"reserved"`
	Name            string      `json:"name,omitempty"`
	Type            *Type       `json:"type,omitempty"`
	Location        Location    `json:"location"`
	MaybeAttributes []Attribute `json:"maybe_attributes,omitempty"`
}

type TableDeclaration struct {
	Name        FQN           `json:"name"`
	Location    Location      `json:"location"`
	IsResource  bool          `json:"is_resource"`
	Members     []TableMember `json:"members"`
	TypeShapeV2 TypeShape     `json:"type_shape_v2"`
}

type UnionMember struct {
	Ordinal         uint32      `json:"ordinal"`
	Reserved        bool        `json:"reserved"`
	Name            string      `json:"name,omitempty"`
	Type            *Type       `json:"type,omitempty"`
	Location        Location    `json:"location"`
	MaybeAttributes []Attribute `json:"maybe_attributes,omitempty"`
}

type UnionDeclaration struct {
	Name        FQN           `json:"name"`
	Location    Location      `json:"location"`
	IsResource  bool          `json:"is_resource"`
	IsOverlay   bool          `json:"is_overlay,omitempty"`
	Strict      bool          `json:"strict"`
	Members     []UnionMember `json:"members"`
	TypeShapeV2 TypeShape     `json:"type_shape_v2"`
}

type EnumMember struct {
	Name     string   `json:"name"`
	Value    Constant `json:"value"`
	Location Location `json:"location"`
}

type EnumDeclaration struct {
	Name              FQN          `json:"name"`
	Location          Location     `json:"location"`
	Type              string       `json:"type"`
	Strict            bool         `json:"strict"`
	Members           []EnumMember `json:"members"`
	MaybeUnknownValue *string      `json:"maybe_unknown_value,omitempty"`
	TypeShapeV2       TypeShape    `json:"type_shape_v2"`
}

type BitsMember struct {
	Name     string   `json:"name"`
	Value    Constant `json:"value"`
	Location Location `json:"location"`
}

type BitsDeclaration struct {
	Name        FQN          `json:"name"`
	Location    Location     `json:"location"`
	Type        string       `json:"type"`
	Mask        string       `json:"mask"`
	Strict      bool         `json:"strict"`
	Members     []BitsMember `json:"members"`
	TypeShapeV2 TypeShape    `json:"type_shape_v2"`
}

type AliasDeclaration struct {
	Name     FQN      `json:"name"`
	Location Location `json:"location"`
	Type     Type     `json:"type"`
}

type NewTypeDeclaration struct {
	Name     FQN      `json:"name"`
	Location Location `json:"location"`
	Type     Type     `json:"type"`
}

// ConstDeclaration per SPEC_FULL §12.
type ConstDeclaration struct {
	Name       FQN      `json:"name"`
	Location   Location `json:"location"`
	Deprecated bool     `json:"deprecated,omitempty"`
	Type       Type     `json:"type"`
	Value      Constant `json:"value"`
}

// ProtocolMethod per SPEC_FULL §12.
type ProtocolMethod struct {
	Name                   string `json:"name"`
	Ordinal                uint64 `json:"ordinal"`
	HasRequest             bool   `json:"has_request"`
	MaybeRequestPayload    FQN    `json:"maybe_request_payload,omitempty"`
	HasResponse            bool   `json:"has_response"`
	MaybeResponsePayload   FQN    `json:"maybe_response_payload,omitempty"`
	HasError               bool   `json:"has_error"`
	Strict                 bool   `json:"strict"`
	Location               Location `json:"location"`
}

// Openness of a protocol, per spec §4.1's keyword table.
type Openness string

const (
	OpenOpen   Openness = "open"
	OpenAjar   Openness = "ajar"
	OpenClosed Openness = "closed"
)

// ProtocolDeclaration per SPEC_FULL §12.
type ProtocolDeclaration struct {
	Name               FQN              `json:"name"`
	Location           Location         `json:"location"`
	ComposedProtocols  []FQN            `json:"composed_protocols,omitempty"`
	Methods            []ProtocolMethod `json:"methods"`
	Openness           Openness         `json:"openness"`
}

// ServiceMember per SPEC_FULL §12.
type ServiceMember struct {
	Name     string   `json:"name"`
	Type     FQN      `json:"type"`
	Location Location `json:"location"`
}

type ServiceDeclaration struct {
	Name     FQN             `json:"name"`
	Location Location        `json:"location"`
	Members  []ServiceMember `json:"members"`
}

// ResourceProperty per SPEC_FULL §12.
type ResourceProperty struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

type ExperimentalResourceDeclaration struct {
	Name       FQN                `json:"name"`
	Location   Location           `json:"location"`
	Type       Type               `json:"type"`
	Properties []ResourceProperty `json:"properties"`
}

// Library is the whole compiled output for one invocation; it is what
// internal/irwriter serialises.
type Library struct {
	Name                             string                            `json:"name"`
	Platform                         string                            `json:"platform,omitempty"`
	Available                        map[string]string                 `json:"available,omitempty"`
	Experiments                      []string                          `json:"experiments,omitempty"`
	LibraryDependencies              []string                          `json:"library_dependencies,omitempty"`
	BitsDeclarations                 []BitsDeclaration                 `json:"bits_declarations"`
	ConstDeclarations                []ConstDeclaration                `json:"const_declarations"`
	EnumDeclarations                 []EnumDeclaration                 `json:"enum_declarations"`
	ExperimentalResourceDeclarations []ExperimentalResourceDeclaration `json:"experimental_resource_declarations"`
	ProtocolDeclarations             []ProtocolDeclaration             `json:"protocol_declarations"`
	ServiceDeclarations              []ServiceDeclaration              `json:"service_declarations"`
	StructDeclarations               []StructDeclaration               `json:"struct_declarations"`
	ExternalStructDeclarations       []StructDeclaration                `json:"external_struct_declarations"`
	TableDeclarations                []TableDeclaration                `json:"table_declarations"`
	UnionDeclarations                []UnionDeclaration                `json:"union_declarations"`
	AliasDeclarations                []AliasDeclaration                `json:"alias_declarations"`
	NewTypeDeclarations              []NewTypeDeclaration              `json:"new_type_declarations"`
	DeclarationOrder                 []FQN                             `json:"declaration_order"`
	Declarations                     map[FQN]string                    `json:"declarations"`
}
