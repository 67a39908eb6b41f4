// Package frontend orchestrates one compilation invocation end to end:
// lex and parse every source file, consume them into one library,
// optionally narrow it to a selected version (the availability phase),
// resolve its dependency graph, compile every surviving declaration's
// shape, and hand back the IR ready
// for internal/irwriter. It holds no state across invocations — a fresh
// Compile call is the unit of work a CLI command or a test wraps.
package frontend

import (
	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/availability"
	"github.com/mehditeymorian/fidlgo/internal/compile"
	"github.com/mehditeymorian/fidlgo/internal/consume"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/mehditeymorian/fidlgo/internal/parser"
	"github.com/mehditeymorian/fidlgo/internal/resolve"
	"github.com/mehditeymorian/fidlgo/internal/source"
)

// Input is one named source file's raw bytes.
type Input struct {
	Name string
	Data []byte
}

// Options configures a single compilation invocation.
type Options struct {
	// SelectedVersion is the availability.Version the library is narrowed
	// to. Ignored unless Narrow is true.
	SelectedVersion availability.Version
	// Narrow, when true, runs the availability narrowing step; library
	// authors who never use @available can skip it entirely and get every
	// declaration back regardless of version.
	Narrow bool
}

// Result is everything one invocation produced: the compiled library
// (always non-nil, since consume and compile run even after parse
// errors) and the full diagnostic log. Per spec §5/§6, callers decide success by checking
// Reporter.HasErrors(), never by nil-checking Library alone — a partially
// compiled Library can still be present alongside reported errors.
type Result struct {
	Library  *ir.Library
	Reporter *diagnostics.Reporter
}

// Compile runs the full lex-through-compile pipeline over inputs and
// returns the assembled result. It never panics: every malformed-input
// path is reported through Result.Reporter instead.
func Compile(inputs []Input, opts Options) *Result {
	r := &diagnostics.Reporter{}

	var astFiles []*ast.File
	for _, in := range inputs {
		f := source.New(in.Name, in.Data)
		astFiles = append(astFiles, parser.Parse(f, r))
	}

	lib := consume.Consume(astFiles, r)

	if opts.Narrow {
		narrowLibrary(lib, opts.SelectedVersion, r)
	}

	graph := resolve.Resolve(lib, r)
	irLib := compile.Compile(lib, graph, r)
	return &Result{Library: irLib, Reporter: r}
}

// narrowLibrary runs the availability phase over every declaration,
// dropping those absent at the selected version from further compilation.
// Declarations with no @available attribute inherit the library's
// unbounded range and are never dropped by narrowing alone.
func narrowLibrary(lib *consume.Library, selected availability.Version, r *diagnostics.Reporter) {
	root := availability.Unbounded()
	absent := map[ir.FQN]bool{}
	for _, fqn := range lib.Order {
		a := declAvailability(lib.Decls[fqn])
		if a == nil {
			continue
		}
		if !a.Init(r, "", 0, 0) {
			continue
		}
		if !a.Inherit(r, root, "", 0, 0) {
			continue
		}
		if !a.Narrow(selected) {
			absent[fqn] = true
		}
	}
	if len(absent) == 0 {
		return
	}
	filtered := lib.Order[:0:0]
	for _, fqn := range lib.Order {
		if !absent[fqn] {
			filtered = append(filtered, fqn)
		} else {
			delete(lib.Decls, fqn)
		}
	}
	lib.Order = filtered
}

// declAvailability extracts the @available attribute from a raw
// declaration's attribute list, if any. Declarations with no attribute
// are left unversioned (nil): they are always present.
func declAvailability(decl *consume.RawDecl) *availability.Availability {
	attrs := attributesOf(decl.Node)
	if attrs == nil {
		return nil
	}
	for _, a := range attrs.Attributes {
		if a.Name != "available" {
			continue
		}
		av := &availability.Availability{}
		for _, arg := range a.Args {
			v, ok := arg.Value.(*ast.LiteralConstant)
			if !ok {
				continue
			}
			ver, ok := availability.ParseVersion(v.Value)
			if !ok {
				continue
			}
			switch arg.Name {
			case "added":
				av.Added = &ver
			case "deprecated":
				av.Deprecated = &ver
			case "removed":
				av.Removed = &ver
			}
		}
		return av
	}
	return nil
}

func attributesOf(node interface{}) *ast.AttributeList {
	switch d := node.(type) {
	case *ast.StructDecl:
		return d.Attributes
	case *ast.TableDecl:
		return d.Attributes
	case *ast.UnionDecl:
		return d.Attributes
	case *ast.EnumDecl:
		return d.Attributes
	case *ast.BitsDecl:
		return d.Attributes
	case *ast.AliasDecl:
		return d.Attributes
	case *ast.TypeDecl:
		return d.Attributes
	case *ast.ConstDecl:
		return d.Attributes
	case *ast.ProtocolDecl:
		return d.Attributes
	case *ast.ServiceDecl:
		return d.Attributes
	case *ast.ResourceDecl:
		return d.Attributes
	}
	return nil
}
