package compile

import (
	"fmt"
	"strconv"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/ir"
	"github.com/mehditeymorian/fidlgo/internal/shape"
	"github.com/mehditeymorian/fidlgo/internal/source"
)

func (c *ctx) locParts(sp source.Span) (string, int, int) {
	if sp.File == nil {
		return "", 0, 0
	}
	l := sp.File.LocationFor(sp)
	return l.Filename, l.Line, l.Column
}

func (c *ctx) typeAt(tc *ast.TypeConstructor, sp source.Span) ir.Type {
	f, ln, col := c.locParts(sp)
	return c.resolveType(tc, f, ln, col)
}

// compileConstant renders a parsed constant expression into its IR form.
// Identifier constants keep their source expression verbatim rather than
// eagerly resolving the referenced value, since downstream tooling reads
// the IR for the expression text, not a pre-folded value.
func compileConstant(val ast.Constant) ir.Constant {
	switch v := val.(type) {
	case *ast.LiteralConstant:
		kind := "numeric"
		switch v.Kind {
		case ast.LiteralBool:
			kind = "bool"
		case ast.LiteralString:
			kind = "string"
		case ast.LiteralDocComment:
			kind = "string"
		}
		return ir.Constant{
			Kind:       ir.ConstLiteral,
			Value:      v.Value,
			Expression: v.Value,
			Literal:    &ir.LiteralValue{Kind: kind, Value: v.Value, Expression: v.Value},
		}
	case *ast.IdentifierConstant:
		id := v.Identifier.String()
		return ir.Constant{Kind: ir.ConstIdentifier, Value: id, Expression: id}
	case *ast.BinaryOperatorConstant:
		left := compileConstant(v.Left)
		right := compileConstant(v.Right)
		expr := left.Expression + " | " + right.Expression
		value := expr
		if ln, err := strconv.ParseUint(left.Value, 0, 64); err == nil {
			if rn, err2 := strconv.ParseUint(right.Value, 0, 64); err2 == nil {
				value = strconv.FormatUint(ln|rn, 10)
			}
		}
		return ir.Constant{Kind: ir.ConstBinaryOperator, Value: value, Expression: expr}
	}
	return ir.Constant{}
}

func compileAttrs(al *ast.AttributeList) []ir.Attribute {
	if al == nil {
		return nil
	}
	var out []ir.Attribute
	for _, a := range al.Attributes {
		attr := ir.Attribute{Name: a.Name, Location: toIRLoc(a.Span)}
		for _, arg := range a.Args {
			attr.Arguments = append(attr.Arguments, ir.AttributeArg{Name: arg.Name, Value: compileConstant(arg.Value)})
		}
		out = append(out, attr)
	}
	return out
}

func (c *ctx) compileStruct(name ir.FQN, d *ast.StructDecl) ir.StructDeclaration {
	var members []shape.Member
	var irMembers []ir.StructMember
	for _, m := range d.Members {
		t := c.typeAt(m.TypeCtor, m.Span)
		members = append(members, shape.Member{Shape: t.TypeShapeV2})
		sm := ir.StructMember{
			Name:            m.Name,
			Type:            t,
			Location:        toIRLoc(m.Span),
			MaybeAttributes: compileAttrs(m.Attributes),
		}
		if m.DefaultValue != nil {
			dv := compileConstant(m.DefaultValue)
			sm.MaybeDefaultValue = &dv
		}
		irMembers = append(irMembers, sm)
	}
	fields, s := shape.StructLayout(members)
	for i := range irMembers {
		irMembers[i].FieldShapeV2 = fields[i]
	}
	c.shapes[name] = s
	return ir.StructDeclaration{
		Name:        name,
		Location:    toIRLoc(d.Span),
		IsResource:  d.IsResource,
		Members:     irMembers,
		TypeShapeV2: s,
	}
}

func (c *ctx) compileTable(name ir.FQN, d *ast.TableDecl) ir.TableDeclaration {
	var maxOrdinal uint32
	var memberShapes []ir.TypeShape
	var irMembers []ir.TableMember
	for _, m := range d.Members {
		ord := uint32(m.Ordinal)
		if ord > maxOrdinal {
			maxOrdinal = ord
		}
		if m.Reserved {
			irMembers = append(irMembers, ir.TableMember{Ordinal: ord, Reserved: true, Location: toIRLoc(m.Span)})
			continue
		}
		t := c.typeAt(m.TypeCtor, m.Span)
		memberShapes = append(memberShapes, t.TypeShapeV2)
		tv := t
		irMembers = append(irMembers, ir.TableMember{
			Ordinal:         ord,
			Name:            m.Name,
			Type:            &tv,
			Location:        toIRLoc(m.Span),
			MaybeAttributes: compileAttrs(m.Attributes),
		})
	}
	s := shape.TableShape(maxOrdinal, memberShapes)
	c.shapes[name] = s
	return ir.TableDeclaration{
		Name:        name,
		Location:    toIRLoc(d.Span),
		IsResource:  d.IsResource,
		Members:     irMembers,
		TypeShapeV2: s,
	}
}

func (c *ctx) compileUnion(name ir.FQN, d *ast.UnionDecl) ir.UnionDeclaration {
	strict := d.Strictness == ast.Strict
	var memberShapes []ir.TypeShape
	var irMembers []ir.UnionMember
	presentCount := 0
	for _, m := range d.Members {
		if m.Reserved {
			irMembers = append(irMembers, ir.UnionMember{Ordinal: uint32(m.Ordinal), Reserved: true, Location: toIRLoc(m.Span)})
			continue
		}
		presentCount++
		t := c.typeAt(m.TypeCtor, m.Span)
		memberShapes = append(memberShapes, t.TypeShapeV2)
		tv := t
		irMembers = append(irMembers, ir.UnionMember{
			Ordinal:         uint32(m.Ordinal),
			Name:            m.Name,
			Type:            &tv,
			Location:        toIRLoc(m.Span),
			MaybeAttributes: compileAttrs(m.Attributes),
		})
	}
	if strict && presentCount == 0 {
		f, ln, col := c.locParts(d.Span)
		c.r.Error(diagnostics.ErrEmptyStrictUnion, f, ln, col, fmt.Sprintf("strict union/overlay %q must declare at least one member", name))
	}
	s := shape.UnionShape(strict, memberShapes)
	c.shapes[name] = s
	return ir.UnionDeclaration{
		Name:        name,
		Location:    toIRLoc(d.Span),
		IsResource:  d.IsResource,
		IsOverlay:   d.IsOverlay,
		Strict:      strict,
		Members:     irMembers,
		TypeShapeV2: s,
	}
}

func enumBitsUnderlying(tc *ast.TypeConstructor) string {
	if tc == nil {
		return "uint32"
	}
	if idl, ok := tc.Layout.(ast.IdentifierLayout); ok {
		return idl.Identifier.String()
	}
	return "uint32"
}

func (c *ctx) compileEnum(name ir.FQN, d *ast.EnumDecl) ir.EnumDeclaration {
	underlying := enumBitsUnderlying(d.Subtype)
	s, ok := shape.Primitive(underlying)
	if !ok {
		s = ir.TypeShape{InlineSize: 4, Alignment: 4}
	}
	strict := d.Strictness == ast.Strict

	var irMembers []ir.EnumMember
	seen := map[uint64]bool{}
	for _, m := range d.Members {
		v := compileConstant(m.Value)
		if n, err := strconv.ParseUint(v.Value, 0, 64); err == nil {
			if seen[n] {
				f, ln, col := c.locParts(m.Span)
				c.r.Error(diagnostics.ErrDuplicateMemberValue, f, ln, col, fmt.Sprintf("duplicate enum value %d on member %q", n, m.Name))
			}
			seen[n] = true
		}
		irMembers = append(irMembers, ir.EnumMember{Name: m.Name, Value: v, Location: toIRLoc(m.Span)})
	}
	if strict && len(irMembers) == 0 {
		f, ln, col := c.locParts(d.Span)
		c.r.Error(diagnostics.ErrEmptyStrictEnum, f, ln, col, fmt.Sprintf("strict enum %q must declare at least one member", name))
	}
	var unknown *string
	if !strict {
		for _, m := range d.Members {
			for _, a := range attrsOf(m.Attributes) {
				if a.Name == "unknown" {
					u := m.Name
					unknown = &u
				}
			}
		}
	}
	c.shapes[name] = s
	return ir.EnumDeclaration{
		Name:              name,
		Location:          toIRLoc(d.Span),
		Type:              underlying,
		Strict:            strict,
		Members:           irMembers,
		MaybeUnknownValue: unknown,
		TypeShapeV2:       s,
	}
}

func attrsOf(al *ast.AttributeList) []*ast.Attribute {
	if al == nil {
		return nil
	}
	return al.Attributes
}

func (c *ctx) compileBits(name ir.FQN, d *ast.BitsDecl) ir.BitsDeclaration {
	underlying := enumBitsUnderlying(d.Subtype)
	s, ok := shape.Primitive(underlying)
	if !ok {
		s = ir.TypeShape{InlineSize: 4, Alignment: 4}
	}
	strict := d.Strictness == ast.Strict

	var irMembers []ir.BitsMember
	var mask uint64
	for _, m := range d.Members {
		v := compileConstant(m.Value)
		if n, err := strconv.ParseUint(v.Value, 0, 64); err == nil {
			if n != 0 && n&(n-1) != 0 {
				f, ln, col := c.locParts(m.Span)
				c.r.Error(diagnostics.ErrValueNotPowerOfTwo, f, ln, col, fmt.Sprintf("bits member %q value %d is not a power of two", m.Name, n))
			}
			if mask&n != 0 {
				f, ln, col := c.locParts(m.Span)
				c.r.Error(diagnostics.ErrDuplicateMemberValue, f, ln, col, fmt.Sprintf("bits member %q overlaps an earlier member's bit", m.Name))
			}
			mask |= n
		}
		irMembers = append(irMembers, ir.BitsMember{Name: m.Name, Value: v, Location: toIRLoc(m.Span)})
	}
	if strict && len(irMembers) == 0 {
		f, ln, col := c.locParts(d.Span)
		c.r.Error(diagnostics.ErrEmptyStrictEnum, f, ln, col, fmt.Sprintf("strict bits %q must declare at least one member", name))
	}
	c.shapes[name] = s
	return ir.BitsDeclaration{
		Name:        name,
		Location:    toIRLoc(d.Span),
		Type:        underlying,
		Mask:        strconv.FormatUint(mask, 10),
		Strict:      strict,
		Members:     irMembers,
		TypeShapeV2: s,
	}
}

func (c *ctx) compileAlias(name ir.FQN, d *ast.AliasDecl) ir.AliasDeclaration {
	t := c.typeAt(d.TypeCtor, d.Span)
	c.shapes[name] = t.TypeShapeV2
	return ir.AliasDeclaration{Name: name, Location: toIRLoc(d.Span), Type: t}
}

func (c *ctx) compileNewType(name ir.FQN, d *ast.TypeDecl) ir.NewTypeDeclaration {
	t := c.typeAt(d.TypeCtor, d.Span)
	c.shapes[name] = t.TypeShapeV2
	return ir.NewTypeDeclaration{Name: name, Location: toIRLoc(d.Span), Type: t}
}

func (c *ctx) compileConst(name ir.FQN, d *ast.ConstDecl) ir.ConstDeclaration {
	t := c.typeAt(d.TypeCtor, d.Span)
	return ir.ConstDeclaration{
		Name:     name,
		Location: toIRLoc(d.Span),
		Type:     t,
		Value:    compileConstant(d.Value),
	}
}

func (c *ctx) compileResource(name ir.FQN, d *ast.ResourceDecl) ir.ExperimentalResourceDeclaration {
	underlying := c.typeAt(d.Underlying, d.Span)
	var props []ir.ResourceProperty
	for _, p := range d.Properties {
		props = append(props, ir.ResourceProperty{Name: p.Name, Type: c.typeAt(p.TypeCtor, p.Span)})
	}
	return ir.ExperimentalResourceDeclaration{
		Name:       name,
		Location:   toIRLoc(d.Span),
		Type:       underlying,
		Properties: props,
	}
}

func (c *ctx) compileProtocol(name ir.FQN, d *ast.ProtocolDecl) ir.ProtocolDeclaration {
	var composed []ir.FQN
	var methods []ir.ProtocolMethod
	var ordinal uint64 = 1
	for _, m := range d.Methods {
		if m.IsCompose {
			composed = append(composed, resolveFQN(m.Compose, c.libName))
			continue
		}
		pm := ir.ProtocolMethod{
			Name:        m.Name,
			Ordinal:     ordinal,
			HasRequest:  m.HasRequest,
			HasResponse: m.HasResponse,
			HasError:    m.HasError,
			Strict:      m.Strict,
			Location:    toIRLoc(m.Span),
		}
		ordinal++
		if m.HasRequest && m.RequestPayload != nil {
			if idl, ok := m.RequestPayload.Layout.(ast.IdentifierLayout); ok {
				pm.MaybeRequestPayload = resolveFQN(idl.Identifier, c.libName)
			}
		}
		if m.HasResponse && m.ResponsePayload != nil {
			if idl, ok := m.ResponsePayload.Layout.(ast.IdentifierLayout); ok {
				pm.MaybeResponsePayload = resolveFQN(idl.Identifier, c.libName)
			}
		}
		methods = append(methods, pm)
	}
	openness := ir.OpenOpen
	switch d.Openness {
	case ast.Ajar:
		openness = ir.OpenAjar
	case ast.Closed:
		openness = ir.OpenClosed
	}
	return ir.ProtocolDeclaration{
		Name:              name,
		Location:          toIRLoc(d.Span),
		ComposedProtocols: composed,
		Methods:           methods,
		Openness:          openness,
	}
}

func (c *ctx) compileService(name ir.FQN, d *ast.ServiceDecl) ir.ServiceDeclaration {
	var members []ir.ServiceMember
	for _, m := range d.Members {
		var target ir.FQN
		if idl, ok := m.TypeCtor.Layout.(ast.IdentifierLayout); ok {
			target = resolveFQN(idl.Identifier, c.libName)
		}
		members = append(members, ir.ServiceMember{Name: m.Name, Type: target, Location: toIRLoc(m.Span)})
	}
	return ir.ServiceDeclaration{Name: name, Location: toIRLoc(d.Span), Members: members}
}
