// Package resolve implements the resolve phase (C5): it classifies each
// declaration's dependencies into "sized" (the dependency must be fully
// shaped before this declaration can be) and "indirect" (the dependency
// only needs to exist; it is reached through a pointer-like wire
// construct — box, vector, client_end, server_end, request), then
// produces one topological order over the sized edges via three-colour
// DFS with lexicographic tie-breaking.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/consume"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
)

var builtinLeaves = map[string]bool{
	"bool": true, "int8": true, "uint8": true, "int16": true, "uint16": true,
	"int32": true, "uint32": true, "int64": true, "uint64": true,
	"float32": true, "float64": true, "string": true, "handle": true,
	"string_array": true,
}

// edge is one dependency of a declaration on another FQN.
type edge struct {
	target   ir.FQN
	indirect bool
}

// Graph is the resolve phase's output: every declaration's classified
// dependency list, plus the deterministic compile order.
type Graph struct {
	Deps  map[ir.FQN][]edge
	Order []ir.FQN
}

func resolveFQN(id ast.CompoundIdentifier, libName string) ir.FQN {
	if len(id.Parts) == 1 {
		return ir.FQN(libName + "/" + id.Parts[0])
	}
	last := id.Parts[len(id.Parts)-1]
	libPath := strings.Join(id.Parts[:len(id.Parts)-1], ".")
	return ir.FQN(libPath + "/" + last)
}

func collectDeps(tc *ast.TypeConstructor, libName string, indirect bool, out *[]edge) {
	if tc == nil {
		return
	}
	switch layout := tc.Layout.(type) {
	case ast.IdentifierLayout:
		name := layout.Identifier.String()
		switch {
		case builtinLeaves[name]:
			for _, p := range tc.Parameters {
				collectDeps(p, libName, indirect, out)
			}
		case name == "vector" || name == "box" || name == "client_end" || name == "server_end" || name == "request":
			for _, p := range tc.Parameters {
				collectDeps(p, libName, true, out)
			}
		case name == "array":
			if len(tc.Parameters) > 0 {
				collectDeps(tc.Parameters[0], libName, indirect, out)
			}
		default:
			*out = append(*out, edge{target: resolveFQN(layout.Identifier, libName), indirect: indirect})
			for _, p := range tc.Parameters {
				collectDeps(p, libName, indirect, out)
			}
		}
	case ast.InlineLayout:
		// The consume phase promotes every inline layout to a top-level
		// declaration before resolve runs; an inline layout surviving to
		// here has no member dependencies of its own to add here.
	}
}

func dependenciesOf(decl *consume.RawDecl, libName string) []edge {
	var out []edge
	switch decl.Kind {
	case consume.KindStruct:
		s := decl.Node.(*ast.StructDecl)
		for _, m := range s.Members {
			collectDeps(m.TypeCtor, libName, false, &out)
		}
	case consume.KindTable:
		t := decl.Node.(*ast.TableDecl)
		for _, m := range t.Members {
			if !m.Reserved {
				collectDeps(m.TypeCtor, libName, false, &out)
			}
		}
	case consume.KindUnion, consume.KindOverlay:
		u := decl.Node.(*ast.UnionDecl)
		for _, m := range u.Members {
			if !m.Reserved {
				collectDeps(m.TypeCtor, libName, false, &out)
			}
		}
	case consume.KindEnum:
		e := decl.Node.(*ast.EnumDecl)
		collectDeps(e.Subtype, libName, false, &out)
	case consume.KindBits:
		b := decl.Node.(*ast.BitsDecl)
		collectDeps(b.Subtype, libName, false, &out)
	case consume.KindAlias:
		a := decl.Node.(*ast.AliasDecl)
		collectDeps(a.TypeCtor, libName, false, &out)
	case consume.KindNewType:
		d := decl.Node.(*ast.TypeDecl)
		collectDeps(d.TypeCtor, libName, false, &out)
	case consume.KindConst:
		c := decl.Node.(*ast.ConstDecl)
		collectDeps(c.TypeCtor, libName, false, &out)
	case consume.KindResource:
		rd := decl.Node.(*ast.ResourceDecl)
		collectDeps(rd.Underlying, libName, false, &out)
		for _, p := range rd.Properties {
			collectDeps(p.TypeCtor, libName, false, &out)
		}
	// Protocol and service declarations reference other declarations
	// (payload structs, composed protocols, member protocols) but carry
	// no shape of their own, so they never participate in the sized
	// dependency graph: nothing needs their "size" to compile.
	case consume.KindProtocol, consume.KindService:
	}
	return out
}

type stackEntry struct {
	fqn             ir.FQN
	incomingIndirect bool
}

// Resolve builds the dependency graph and a topological order. A sized
// cycle (every edge around it indirect-free) is reported as
// ErrSizedCycle and the declarations on it are dropped from Order;
// cycles broken by at least one indirect edge are left in Order as
// encountered (any consistent order is fine—shape computation
// substitutes sentinel values for the unresolved side).
func Resolve(lib *consume.Library, r *diagnostics.Reporter) *Graph {
	g := &Graph{Deps: map[ir.FQN][]edge{}}
	for fqn, decl := range lib.Decls {
		g.Deps[fqn] = dependenciesOf(decl, lib.Name)
	}

	names := make([]ir.FQN, 0, len(lib.Decls))
	for fqn := range lib.Decls {
		names = append(names, fqn)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	visited := map[ir.FQN]bool{}
	onStack := map[ir.FQN]int{} // fqn -> index in stack
	var stack []stackEntry
	fatal := map[ir.FQN]bool{}

	var visit func(fqn ir.FQN, incomingIndirect bool)
	visit = func(fqn ir.FQN, incomingIndirect bool) {
		if visited[fqn] {
			return
		}
		if idx, grey := onStack[fqn]; grey {
			// Back edge closes a cycle from idx..top. The cycle is fatal
			// only if the closing edge and every edge along the existing
			// path from idx to the top of the stack are all sized.
			sized := !incomingIndirect
			for k := idx + 1; k < len(stack); k++ {
				if stack[k].incomingIndirect {
					sized = false
				}
			}
			if sized {
				for k := idx; k < len(stack); k++ {
					fatal[stack[k].fqn] = true
				}
				fatal[fqn] = true
				r.Error(diagnostics.ErrSizedCycle, "", 0, 0,
					fmt.Sprintf("sized dependency cycle detected involving %s", fqn))
			}
			return
		}

		stack = append(stack, stackEntry{fqn: fqn, incomingIndirect: incomingIndirect})
		onStack[fqn] = len(stack) - 1

		deps := append([]edge(nil), g.Deps[fqn]...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].target < deps[j].target })
		for _, e := range deps {
			if _, ok := lib.Decls[e.target]; !ok {
				continue // cross-library or unresolved; surfaced by compile phase
			}
			visit(e.target, e.indirect)
		}

		stack = stack[:len(stack)-1]
		delete(onStack, fqn)
		visited[fqn] = true
		g.Order = append(g.Order, fqn)
	}

	for _, name := range names {
		visit(name, false)
	}

	if len(fatal) == 0 {
		return g
	}
	filtered := g.Order[:0:0]
	for _, fqn := range g.Order {
		if !fatal[fqn] {
			filtered = append(filtered, fqn)
		}
	}
	g.Order = filtered
	return g
}
