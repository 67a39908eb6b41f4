package lexer

import "github.com/mehditeymorian/fidlgo/internal/source"

// Kind is the coarse token category (C2 "kind" tag set).
type Kind int

const (
	EOF Kind = iota
	ILLEGAL
	STARTOFFILE

	IDENT // refined into a Subkind when it names a contextual keyword
	NUMBER
	STRING
	DOCCOMMENT
	COMMENT // discarded by the lexer; never returned by Tokenize

	// punctuation
	LPAREN    // (
	RPAREN    // )
	LBRACK    // [
	RBRACK    // ]
	LBRACE    // {
	RBRACE    // }
	LANGLE    // <
	RANGLE    // >
	AT        // @
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	QUESTION  // ?
	EQUAL     // =
	AMP       // &
	PIPE      // |
	ARROW     // ->
)

var kindNames = [...]string{
	EOF:         "EOF",
	ILLEGAL:     "ILLEGAL",
	STARTOFFILE: "START_OF_FILE",
	IDENT:       "IDENT",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	DOCCOMMENT:  "DOC_COMMENT",
	COMMENT:     "COMMENT",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACK:      "LBRACK",
	RBRACK:      "RBRACK",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LANGLE:      "LANGLE",
	RANGLE:      "RANGLE",
	AT:          "AT",
	DOT:         "DOT",
	COMMA:       "COMMA",
	SEMICOLON:   "SEMICOLON",
	COLON:       "COLON",
	QUESTION:    "QUESTION",
	EQUAL:       "EQUAL",
	AMP:         "AMP",
	PIPE:        "PIPE",
	ARROW:       "ARROW",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Subkind refines IDENT into a recognised contextual keyword. An IDENT
// whose subkind is SubNone is an ordinary identifier.
type Subkind int

const (
	SubNone Subkind = iota
	SubLibrary
	SubUsing
	SubAlias
	SubConst
	SubType
	SubStruct
	SubTable
	SubUnion
	SubOverlay
	SubEnum
	SubBits
	SubProtocol
	SubService
	SubResource
	SubResourceDefinition
	SubStrict
	SubFlexible
	SubOpen
	SubAjar
	SubClosed
	SubCompose
	SubError
	SubReserved
	SubAs
	SubTrue
	SubFalse
	SubRequest
	SubProperties
	SubArray
	SubVector
	SubString
	SubStringArray
)

var keywordSubkinds = map[string]Subkind{
	"library":             SubLibrary,
	"using":                SubUsing,
	"alias":                SubAlias,
	"const":                SubConst,
	"type":                 SubType,
	"struct":               SubStruct,
	"table":                SubTable,
	"union":                SubUnion,
	"overlay":              SubOverlay,
	"enum":                 SubEnum,
	"bits":                 SubBits,
	"protocol":             SubProtocol,
	"service":              SubService,
	"resource":             SubResource,
	"resource_definition":  SubResourceDefinition,
	"strict":               SubStrict,
	"flexible":             SubFlexible,
	"open":                 SubOpen,
	"ajar":                 SubAjar,
	"closed":               SubClosed,
	"compose":              SubCompose,
	"error":                SubError,
	"reserved":             SubReserved,
	"as":                   SubAs,
	"true":                 SubTrue,
	"false":                SubFalse,
	"request":              SubRequest,
	"properties":           SubProperties,
	"array":                SubArray,
	"vector":               SubVector,
	"string":               SubString,
	"string_array":         SubStringArray,
}

func lookupSubkind(lit string) Subkind {
	if sk, ok := keywordSubkinds[lit]; ok {
		return sk
	}
	return SubNone
}

// Token is a span plus (kind, sub-kind, leading-newlines).
type Token struct {
	Kind            Kind
	Subkind         Subkind
	Lit             string
	Span            source.Span
	LeadingNewlines int
}
