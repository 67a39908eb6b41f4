// Package parser implements a recursive-descent parser with one-token
// lookahead (C3). It materialises a raw AST carrying source spans and
// never mutates its input; the whole token stream is buffered up front
// (the lexer has no suspension points to interleave with) and consumed by
// index.
package parser

import (
	"strconv"

	"github.com/mehditeymorian/fidlgo/internal/ast"
	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/mehditeymorian/fidlgo/internal/lexer"
	"github.com/mehditeymorian/fidlgo/internal/source"
)

// Parser holds the token buffer and current position.
type Parser struct {
	file     *source.File
	tokens   []lexer.Token
	pos      int
	reporter *diagnostics.Reporter
}

// Parse lexes and parses file, reporting diagnostics to r.
func Parse(file *source.File, r *diagnostics.Reporter) *ast.File {
	toks := lexer.Tokenize(file, r)
	p := &Parser{file: file, tokens: toks, reporter: r}
	return p.parseFile()
}

func (p *Parser) cur() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return lexer.Token{Kind: lexer.EOF}
}

func (p *Parser) peekAt(off int) lexer.Token {
	idx := p.pos + off
	if idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return lexer.Token{Kind: lexer.EOF}
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) at(k lexer.Kind) bool    { return p.cur().Kind == k }
func (p *Parser) atSub(s lexer.Subkind) bool {
	return p.cur().Kind == lexer.IDENT && p.cur().Subkind == s
}

func (p *Parser) errorf(code diagnostics.Code, tok lexer.Token, message string) {
	pos := p.file.PositionFor(tok.Span.Begin)
	p.reporter.Error(code, p.file.Name, pos.Line, pos.Column, message)
}

// expect consumes the current token if it matches kind, else reports an
// error and returns the zero Token without consuming, so callers can keep
// best-effort parsing.
func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf(diagnostics.ErrUnexpectedToken, p.cur(), "expected "+what)
	return lexer.Token{}, false
}

func (p *Parser) expectSub(s lexer.Subkind, what string) (lexer.Token, bool) {
	if p.atSub(s) {
		return p.advance(), true
	}
	p.errorf(diagnostics.ErrUnexpectedToken, p.cur(), "expected "+what)
	return lexer.Token{}, false
}

func (p *Parser) expectIdent(what string) (string, source.Span) {
	if p.at(lexer.IDENT) {
		t := p.advance()
		return t.Lit, t.Span
	}
	p.errorf(diagnostics.ErrUnexpectedToken, p.cur(), "expected "+what)
	return "", p.cur().Span
}

// syncToTopLevel skips tokens until the next top-level keyword or the next
// semicolon at brace depth 0, per spec §4.2's error-recovery rule.
func (p *Parser) syncToTopLevel() {
	depth := 0
	for !p.at(lexer.EOF) {
		switch p.cur().Kind {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			if depth > 0 {
				depth--
			}
		case lexer.SEMICOLON:
			if depth == 0 {
				p.advance()
				return
			}
		}
		if depth == 0 && isTopLevelKeyword(p.cur()) {
			return
		}
		p.advance()
	}
}

func isTopLevelKeyword(t lexer.Token) bool {
	if t.Kind != lexer.IDENT {
		return false
	}
	switch t.Subkind {
	case lexer.SubLibrary, lexer.SubUsing, lexer.SubConst, lexer.SubType,
		lexer.SubAlias, lexer.SubProtocol, lexer.SubService,
		lexer.SubResourceDefinition, lexer.SubStruct, lexer.SubEnum,
		lexer.SubBits, lexer.SubUnion, lexer.SubOverlay, lexer.SubTable,
		lexer.SubOpen, lexer.SubAjar, lexer.SubClosed:
		return true
	}
	return false
}

func join(start, end source.Span) source.Span {
	return source.Span{File: start.File, Begin: start.Begin, End: end.End}
}

// ---- attributes ----

func (p *Parser) parseAttributes() *ast.AttributeList {
	var attrs []*ast.Attribute
	var docTexts []string
	var docSpan source.Span
	for p.at(lexer.DOCCOMMENT) {
		t := p.advance()
		if len(docTexts) == 0 {
			docSpan = t.Span
		} else {
			docSpan = join(docSpan, t.Span)
		}
		docTexts = append(docTexts, t.Lit)
	}
	if len(docTexts) > 0 {
		a := &ast.Attribute{Name: "doc", IsDoc: true, Span: docSpan}
		for _, txt := range docTexts {
			a.Args = append(a.Args, &ast.AttributeArg{
				Value: &ast.LiteralConstant{Kind: ast.LiteralDocComment, Value: txt, Sp: docSpan},
				Span:  docSpan,
			})
		}
		attrs = append(attrs, a)
	}
	for p.at(lexer.AT) {
		attrs = append(attrs, p.parseAttribute())
	}
	if len(attrs) == 0 {
		return nil
	}
	return &ast.AttributeList{Attributes: attrs}
}

func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.advance() // '@'
	name, nameSpan := p.expectIdent("attribute name")
	end := nameSpan
	var args []*ast.AttributeArg
	if p.at(lexer.LPAREN) {
		p.advance()
		for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
			argName := ""
			if p.at(lexer.IDENT) && p.peekAt(1).Kind == lexer.EQUAL {
				argName = p.advance().Lit
				p.advance() // '='
			}
			val := p.parseConstant()
			args = append(args, &ast.AttributeArg{Name: argName, Value: val})
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		t, _ := p.expect(lexer.RPAREN, "')'")
		end = t.Span
	}
	return &ast.Attribute{Name: name, Args: args, Span: join(start.Span, end)}
}

// ---- constants ----

func (p *Parser) parseConstant() ast.Constant {
	t := p.cur()
	switch {
	case t.Kind == lexer.STRING:
		p.advance()
		return &ast.LiteralConstant{Kind: ast.LiteralString, Value: t.Lit, Sp: t.Span}
	case t.Kind == lexer.NUMBER:
		p.advance()
		return &ast.LiteralConstant{Kind: ast.LiteralNumeric, Value: t.Lit, Sp: t.Span}
	case t.Subkind == lexer.SubTrue || t.Subkind == lexer.SubFalse:
		p.advance()
		return &ast.LiteralConstant{Kind: ast.LiteralBool, Value: t.Lit, Sp: t.Span}
	case t.Kind == lexer.IDENT:
		id := p.parseCompoundIdentifier()
		var left ast.Constant = &ast.IdentifierConstant{Identifier: id, Sp: id.Span}
		if p.at(lexer.PIPE) {
			p.advance()
			right := p.parseConstant()
			return &ast.BinaryOperatorConstant{Left: left, Right: right, Op: ast.BinaryOr, Sp: join(id.Span, right.Span())}
		}
		return left
	default:
		p.errorf(diagnostics.ErrUnexpectedToken, t, "expected a constant")
		p.advance()
		return &ast.LiteralConstant{Kind: ast.LiteralNumeric, Value: "0", Sp: t.Span}
	}
}

func (p *Parser) parseCompoundIdentifier() ast.CompoundIdentifier {
	first, sp := p.expectIdent("identifier")
	parts := []string{first}
	end := sp
	for p.at(lexer.DOT) {
		p.advance()
		part, psp := p.expectIdent("identifier")
		parts = append(parts, part)
		end = psp
	}
	return ast.CompoundIdentifier{Parts: parts, Span: join(sp, end)}
}

// ---- type constructors ----

func (p *Parser) isInlineLayoutStart() bool {
	switch p.cur().Subkind {
	case lexer.SubStruct, lexer.SubTable, lexer.SubUnion, lexer.SubOverlay,
		lexer.SubEnum, lexer.SubBits, lexer.SubStrict, lexer.SubFlexible,
		lexer.SubResource:
		return true
	}
	return false
}

func (p *Parser) parseTypeConstructor() *ast.TypeConstructor {
	start := p.cur()
	var layout ast.LayoutParameter
	if p.isInlineLayoutStart() {
		layout = ast.InlineLayout{Layout: p.parseInlineLayout()}
	} else {
		id := p.parseCompoundIdentifier()
		layout = ast.IdentifierLayout{Identifier: id}
	}
	var params []*ast.TypeConstructor
	end := p.tokens[max(p.pos-1, 0)].Span
	if p.at(lexer.LANGLE) {
		p.advance()
		for {
			if p.at(lexer.NUMBER) {
				c := p.parseConstant()
				params = append(params, &ast.TypeConstructor{Size: c, Span: c.Span()})
			} else {
				params = append(params, p.parseTypeConstructor())
			}
			if p.at(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		t, _ := p.expect(lexer.RANGLE, "'>'")
		end = t.Span
	}
	var constraints []ast.Constant
	if p.at(lexer.COLON) {
		p.advance()
		if p.at(lexer.LANGLE) {
			p.advance()
			for {
				c := p.parseConstant()
				constraints = append(constraints, c)
				end = c.Span()
				if p.at(lexer.COMMA) {
					p.advance()
					continue
				}
				break
			}
			t, _ := p.expect(lexer.RANGLE, "'>'")
			end = t.Span
		} else {
			c := p.parseConstant()
			constraints = append(constraints, c)
			end = c.Span()
		}
	}
	nullable := false
	if p.at(lexer.QUESTION) {
		t := p.advance()
		nullable = true
		end = t.Span
	}
	return &ast.TypeConstructor{
		Layout: layout, Parameters: params, Constraints: constraints,
		Nullable: nullable, Span: join(start.Span, end),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (p *Parser) parseInlineLayout() ast.Decl {
	strictness := ast.StrictnessUnspecified
	isResource := false
	for {
		if p.atSub(lexer.SubStrict) {
			strictness = ast.Strict
			p.advance()
			continue
		}
		if p.atSub(lexer.SubFlexible) {
			strictness = ast.Flexible
			p.advance()
			continue
		}
		if p.atSub(lexer.SubResource) {
			isResource = true
			p.advance()
			continue
		}
		break
	}
	switch p.cur().Subkind {
	case lexer.SubStruct:
		p.advance()
		return p.parseStructBody("", isResource)
	case lexer.SubTable:
		p.advance()
		return p.parseTableBody("", isResource)
	case lexer.SubUnion:
		p.advance()
		return p.parseUnionBody("", isResource, strictness, false)
	case lexer.SubOverlay:
		p.advance()
		return p.parseUnionBody("", isResource, strictness, true)
	case lexer.SubEnum:
		p.advance()
		return p.parseEnumBody("", strictness)
	case lexer.SubBits:
		p.advance()
		return p.parseBitsBody("", strictness)
	default:
		p.errorf(diagnostics.ErrUnexpectedToken, p.cur(), "expected a layout")
		return &ast.StructDecl{Span: p.cur().Span}
	}
}

// ---- declaration bodies ----

func (p *Parser) parseStructBody(name string, isResource bool) *ast.StructDecl {
	start, _ := p.expect(lexer.LBRACE, "'{'")
	var members []*ast.StructMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		mname, mspan := p.expectIdent("member name")
		typeCtor := p.parseTypeConstructor()
		var def ast.Constant
		if p.at(lexer.EQUAL) {
			p.advance()
			def = p.parseConstant()
		}
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		members = append(members, &ast.StructMember{
			Attributes: attrs, TypeCtor: typeCtor, Name: mname,
			DefaultValue: def, Span: join(mspan, end.Span),
		})
	}
	end, _ := p.expect(lexer.RBRACE, "'}'")
	return &ast.StructDecl{Name: name, IsResource: isResource, Members: members, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseOrdinal() (int, source.Span) {
	t, ok := p.expect(lexer.NUMBER, "ordinal")
	if !ok {
		return 0, t.Span
	}
	n, _ := strconv.ParseInt(t.Lit, 0, 64)
	return int(n), t.Span
}

func (p *Parser) parseTableBody(name string, isResource bool) *ast.TableDecl {
	start, _ := p.expect(lexer.LBRACE, "'{'")
	var members []*ast.TableMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		ord, ospan := p.parseOrdinal()
		p.expect(lexer.COLON, "':'")
		if p.atSub(lexer.SubReserved) {
			p.advance()
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			members = append(members, &ast.TableMember{Ordinal: ord, Reserved: true, Span: join(ospan, end.Span)})
			continue
		}
		mname, _ := p.expectIdent("member name")
		typeCtor := p.parseTypeConstructor()
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		members = append(members, &ast.TableMember{
			Attributes: attrs, Ordinal: ord, Name: mname, TypeCtor: typeCtor,
			Span: join(ospan, end.Span),
		})
	}
	end, _ := p.expect(lexer.RBRACE, "'}'")
	return &ast.TableDecl{Name: name, IsResource: isResource, Members: members, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseUnionBody(name string, isResource bool, strictness ast.Strictness, isOverlay bool) *ast.UnionDecl {
	start, _ := p.expect(lexer.LBRACE, "'{'")
	var members []*ast.UnionMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		ord, ospan := p.parseOrdinal()
		p.expect(lexer.COLON, "':'")
		if p.atSub(lexer.SubReserved) {
			p.advance()
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			members = append(members, &ast.UnionMember{Ordinal: ord, Reserved: true, Span: join(ospan, end.Span)})
			continue
		}
		mname, _ := p.expectIdent("member name")
		typeCtor := p.parseTypeConstructor()
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		members = append(members, &ast.UnionMember{
			Attributes: attrs, Ordinal: ord, Name: mname, TypeCtor: typeCtor,
			Span: join(ospan, end.Span),
		})
	}
	end, _ := p.expect(lexer.RBRACE, "'}'")
	return &ast.UnionDecl{
		Name: name, Strictness: strictness, IsResource: isResource, IsOverlay: isOverlay,
		Members: members, Span: join(start.Span, end.Span),
	}
}

func (p *Parser) parseEnumBody(name string, strictness ast.Strictness) *ast.EnumDecl {
	var subtype *ast.TypeConstructor
	if p.at(lexer.COLON) {
		p.advance()
		subtype = p.parseTypeConstructor()
	}
	start, _ := p.expect(lexer.LBRACE, "'{'")
	var members []*ast.EnumMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		mname, mspan := p.expectIdent("member name")
		p.expect(lexer.EQUAL, "'='")
		val := p.parseConstant()
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		members = append(members, &ast.EnumMember{Attributes: attrs, Name: mname, Value: val, Span: join(mspan, end.Span)})
	}
	end, _ := p.expect(lexer.RBRACE, "'}'")
	return &ast.EnumDecl{Name: name, Subtype: subtype, Strictness: strictness, Members: members, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseBitsBody(name string, strictness ast.Strictness) *ast.BitsDecl {
	var subtype *ast.TypeConstructor
	if p.at(lexer.COLON) {
		p.advance()
		subtype = p.parseTypeConstructor()
	}
	start, _ := p.expect(lexer.LBRACE, "'{'")
	var members []*ast.BitsMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		mname, mspan := p.expectIdent("member name")
		p.expect(lexer.EQUAL, "'='")
		val := p.parseConstant()
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		members = append(members, &ast.BitsMember{Attributes: attrs, Name: mname, Value: val, Span: join(mspan, end.Span)})
	}
	end, _ := p.expect(lexer.RBRACE, "'}'")
	return &ast.BitsDecl{Name: name, Subtype: subtype, Strictness: strictness, Members: members, Span: join(start.Span, end.Span)}
}

// ---- top-level declarations ----

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{SourceFile: p.file.Name}
	if p.at(lexer.STARTOFFILE) {
		p.advance()
	}
	f.Attributes = p.parseAttributes()
	if lib, ok := p.expectSub(lexer.SubLibrary, "'library'"); ok {
		path := p.parseCompoundIdentifier()
		end, _ := p.expect(lexer.SEMICOLON, "';'")
		f.LibraryDecl = &ast.LibraryDecl{Attributes: f.Attributes, Path: path, Span: join(lib.Span, end.Span)}
	}

	for !p.at(lexer.EOF) {
		attrs := p.parseAttributes()
		switch {
		case p.atSub(lexer.SubUsing):
			start := p.advance()
			path := p.parseCompoundIdentifier()
			alias := ""
			if p.atSub(lexer.SubAs) {
				p.advance()
				alias, _ = p.expectIdent("alias")
			}
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			f.Using = append(f.Using, &ast.UsingDecl{Attributes: attrs, Path: path, Alias: alias, Span: join(start.Span, end.Span)})

		case p.atSub(lexer.SubConst):
			start := p.advance()
			name, _ := p.expectIdent("const name")
			typeCtor := p.parseTypeConstructor()
			p.expect(lexer.EQUAL, "'='")
			val := p.parseConstant()
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			f.Consts = append(f.Consts, &ast.ConstDecl{Attributes: attrs, Name: name, TypeCtor: typeCtor, Value: val, Span: join(start.Span, end.Span)})

		case p.atSub(lexer.SubAlias):
			start := p.advance()
			name, _ := p.expectIdent("alias name")
			p.expect(lexer.EQUAL, "'='")
			typeCtor := p.parseTypeConstructor()
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			f.Aliases = append(f.Aliases, &ast.AliasDecl{Attributes: attrs, Name: name, TypeCtor: typeCtor, Span: join(start.Span, end.Span)})

		case p.atSub(lexer.SubType):
			f.Types = append(f.Types, p.parseTypeDecl(attrs))

		case p.atSub(lexer.SubStruct):
			start := p.advance()
			name, _ := consumeDirectName(p, nil)
			d := p.parseStructBody(name, false)
			d.Span = join(start.Span, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Structs = append(f.Structs, d)

		case p.atSub(lexer.SubEnum):
			p.advance()
			name, nspan := p.expectIdent("enum name")
			d := p.parseEnumBody(name, ast.StrictnessUnspecified)
			d.Span = join(nspan, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Enums = append(f.Enums, d)

		case p.atSub(lexer.SubBits):
			p.advance()
			name, nspan := p.expectIdent("bits name")
			d := p.parseBitsBody(name, ast.StrictnessUnspecified)
			d.Span = join(nspan, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Bits = append(f.Bits, d)

		case p.atSub(lexer.SubUnion):
			p.advance()
			name, nspan := p.expectIdent("union name")
			d := p.parseUnionBody(name, false, ast.StrictnessUnspecified, false)
			d.Span = join(nspan, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Unions = append(f.Unions, d)

		case p.atSub(lexer.SubOverlay):
			p.advance()
			name, nspan := p.expectIdent("overlay name")
			d := p.parseUnionBody(name, false, ast.StrictnessUnspecified, true)
			d.Span = join(nspan, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Unions = append(f.Unions, d)

		case p.atSub(lexer.SubTable):
			p.advance()
			name, nspan := p.expectIdent("table name")
			d := p.parseTableBody(name, false)
			d.Span = join(nspan, d.Span)
			p.expect(lexer.SEMICOLON, "';'")
			f.Tables = append(f.Tables, d)

		case p.atSub(lexer.SubOpen), p.atSub(lexer.SubAjar), p.atSub(lexer.SubClosed), p.atSub(lexer.SubProtocol):
			f.Protocols = append(f.Protocols, p.parseProtocol(attrs))

		case p.atSub(lexer.SubService):
			f.Services = append(f.Services, p.parseService(attrs))

		case p.atSub(lexer.SubResourceDefinition):
			f.Resources = append(f.Resources, p.parseResourceDefinition(attrs))

		case p.at(lexer.EOF):
			// loop condition handles this

		default:
			p.errorf(diagnostics.ErrUnexpectedToken, p.cur(), "unexpected top-level token")
			p.syncToTopLevel()
		}
	}
	return f
}

// consumeDirectName reads the name following the `struct` keyword of a
// direct-form declaration (`struct Name { ... };`), before the body is
// parsed. The span argument is unused.
func consumeDirectName(p *Parser, _ *source.Span) (string, source.Span) {
	return p.expectIdent("struct name")
}

func (p *Parser) parseTypeDecl(attrs *ast.AttributeList) *ast.TypeDecl {
	start, _ := p.expectSub(lexer.SubType, "'type'")
	name, _ := p.expectIdent("type name")
	p.expect(lexer.EQUAL, "'='")

	strictness := ast.StrictnessUnspecified
	if p.atSub(lexer.SubStrict) {
		strictness = ast.Strict
		p.advance()
	} else if p.atSub(lexer.SubFlexible) {
		strictness = ast.Flexible
		p.advance()
	}
	isResource := false
	if p.atSub(lexer.SubResource) {
		isResource = true
		p.advance()
	}

	var layout ast.Decl
	switch p.cur().Subkind {
	case lexer.SubStruct:
		p.advance()
		layout = p.parseStructBody(name, isResource)
	case lexer.SubTable:
		p.advance()
		layout = p.parseTableBody(name, isResource)
	case lexer.SubUnion:
		p.advance()
		layout = p.parseUnionBody(name, isResource, strictness, false)
	case lexer.SubOverlay:
		p.advance()
		layout = p.parseUnionBody(name, isResource, strictness, true)
	case lexer.SubEnum:
		p.advance()
		layout = p.parseEnumBody(name, strictness)
	case lexer.SubBits:
		p.advance()
		layout = p.parseBitsBody(name, strictness)
	default:
		typeCtor := p.parseTypeConstructor()
		end, _ := p.expect(lexer.SEMICOLON, "';'")
		return &ast.TypeDecl{Attributes: attrs, Name: name, TypeCtor: typeCtor, Span: join(start.Span, end.Span)}
	}
	end, _ := p.expect(lexer.SEMICOLON, "';'")
	return &ast.TypeDecl{Attributes: attrs, Name: name, Layout: layout, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseProtocol(attrs *ast.AttributeList) *ast.ProtocolDecl {
	openness := ast.OpennessUnspecified
	start := p.cur()
	if p.atSub(lexer.SubOpen) {
		openness = ast.Open
		p.advance()
	} else if p.atSub(lexer.SubAjar) {
		openness = ast.Ajar
		p.advance()
	} else if p.atSub(lexer.SubClosed) {
		openness = ast.Closed
		p.advance()
	}
	p.expectSub(lexer.SubProtocol, "'protocol'")
	name, _ := p.expectIdent("protocol name")
	p.expect(lexer.LBRACE, "'{'")

	var methods []*ast.ProtocolMethod
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		mattrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		if p.atSub(lexer.SubCompose) {
			cstart := p.advance()
			path := p.parseCompoundIdentifier()
			end, _ := p.expect(lexer.SEMICOLON, "';'")
			if mattrs != nil {
				for _, a := range mattrs.Attributes {
					if !a.IsDoc && a.Name != "available" {
						p.errorf(diagnostics.ErrComposeAttribute, cstart, "only @available and doc comments may attach to compose")
					}
				}
			}
			methods = append(methods, &ast.ProtocolMethod{
				Attributes: mattrs, IsCompose: true, Compose: path, Span: join(cstart.Span, end.Span),
			})
			continue
		}
		mstart := p.cur()
		// A method's strictness defaults to flexible when no modifier is
		// given, matching parse_strictness()'s else-branch.
		strict := false
		if p.atSub(lexer.SubStrict) {
			strict = true
			p.advance()
		} else if p.atSub(lexer.SubFlexible) {
			p.advance()
		}
		mname, _ := p.expectIdent("method name")
		p.expect(lexer.LPAREN, "'('")
		var reqPayload *ast.TypeConstructor
		hasReq := false
		if !p.at(lexer.RPAREN) {
			reqPayload = p.parseTypeConstructor()
			hasReq = true
		}
		p.expect(lexer.RPAREN, "')'")

		hasResp := false
		var respPayload *ast.TypeConstructor
		hasErr := false
		var errCtor *ast.TypeConstructor
		if p.at(lexer.ARROW) {
			p.advance()
			p.expect(lexer.LPAREN, "'('")
			if !p.at(lexer.RPAREN) {
				respPayload = p.parseTypeConstructor()
			}
			p.expect(lexer.RPAREN, "')'")
			hasResp = true
			if p.atSub(lexer.SubError) {
				p.advance()
				errCtor = p.parseTypeConstructor()
				hasErr = true
			}
		}
		end, ok := p.expect(lexer.SEMICOLON, "';'")
		if !ok {
			p.syncToTopLevel()
		}
		methods = append(methods, &ast.ProtocolMethod{
			Attributes: mattrs, Name: mname, HasRequest: hasReq, RequestPayload: reqPayload,
			HasResponse: hasResp, ResponsePayload: respPayload, HasError: hasErr, ErrorTypeCtor: errCtor,
			Strict: strict, Span: join(mstart.Span, end.Span),
		})
	}
	p.expect(lexer.RBRACE, "'}'")
	end, _ := p.expect(lexer.SEMICOLON, "';'")
	return &ast.ProtocolDecl{Attributes: attrs, Name: name, Openness: openness, Methods: methods, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseService(attrs *ast.AttributeList) *ast.ServiceDecl {
	start, _ := p.expectSub(lexer.SubService, "'service'")
	name, _ := p.expectIdent("service name")
	p.expect(lexer.LBRACE, "'{'")
	var members []*ast.ServiceMember
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		mattrs := p.parseAttributes()
		if p.at(lexer.RBRACE) {
			break
		}
		mname, mspan := p.expectIdent("member name")
		typeCtor := p.parseTypeConstructor()
		end, _ := p.expect(lexer.SEMICOLON, "';'")
		members = append(members, &ast.ServiceMember{Attributes: mattrs, Name: mname, TypeCtor: typeCtor, Span: join(mspan, end.Span)})
	}
	p.expect(lexer.RBRACE, "'}'")
	end, _ := p.expect(lexer.SEMICOLON, "';'")
	return &ast.ServiceDecl{Attributes: attrs, Name: name, Members: members, Span: join(start.Span, end.Span)}
}

func (p *Parser) parseResourceDefinition(attrs *ast.AttributeList) *ast.ResourceDecl {
	start, _ := p.expectSub(lexer.SubResourceDefinition, "'resource_definition'")
	name, _ := p.expectIdent("resource name")
	p.expect(lexer.COLON, "':'")
	underlying := p.parseTypeConstructor()
	p.expect(lexer.LBRACE, "'{'")
	var props []*ast.ResourceProperty
	if p.atSub(lexer.SubProperties) {
		p.advance()
		p.expect(lexer.LBRACE, "'{'")
		for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
			pname, pspan := p.expectIdent("property name")
			ptype := p.parseTypeConstructor()
			p.expect(lexer.SEMICOLON, "';'")
			props = append(props, &ast.ResourceProperty{Name: pname, TypeCtor: ptype, Span: pspan})
		}
		p.expect(lexer.RBRACE, "'}'")
		p.expect(lexer.SEMICOLON, "';'")
	}
	p.expect(lexer.RBRACE, "'}'")
	end, _ := p.expect(lexer.SEMICOLON, "';'")
	return &ast.ResourceDecl{Attributes: attrs, Name: name, Underlying: underlying, Properties: props, Span: join(start.Span, end.Span)}
}
