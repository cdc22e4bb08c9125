package grammar

import (
	"fmt"
	"slices"
	"strings"

	pc "github.com/shibukawa/parsercombinator"
)

// entity is the payload carried through the combinators: a lexed token on
// input, a built tree element on output.
type entity struct {
	token *Token
	value Value
	node  Element
}

var (
	identifier = primitive(TokenIdentifier)
	operator   = primitive(TokenOperator)
	logical    = primitive(TokenLogical)
	lparen     = primitive(TokenLParen)
	rparen     = primitive(TokenRParen)
	quoted     = primitive(TokenString)
	literal    = primitive(TokenDate, TokenReal, TokenInteger, TokenIdentifier, TokenString)

	expression pc.Parser[entity]
)

func init() {
	binary := pc.Trans(
		pc.Seq(identifier, operator, literal),
		func(pctx *pc.ParseContext[entity], tokens []pc.Token[entity]) ([]pc.Token[entity], error) {
			return []pc.Token[entity]{node(tokens[0], &Statement{
				Variable: tokens[0].Val.token.Value,
				Operator: tokens[1].Val.token.Value,
				Value:    tokens[2].Val.value,
				Pos:      tokens[0].Val.token.Pos,
			})}, nil
		},
	)

	freetext := pc.Trans(
		quoted,
		func(pctx *pc.ParseContext[entity], tokens []pc.Token[entity]) ([]pc.Token[entity], error) {
			return []pc.Token[entity]{node(tokens[0], &Freetext{
				Term: tokens[0].Val.token.Value,
				Pos:  tokens[0].Val.token.Pos,
			})}, nil
		},
	)

	group := pc.Trans(
		pc.Seq(lparen, pc.Lazy(func() pc.Parser[entity] { return expression }), rparen),
		func(pctx *pc.ParseContext[entity], tokens []pc.Token[entity]) ([]pc.Token[entity], error) {
			return []pc.Token[entity]{node(tokens[0], tokens[1].Val.node)}, nil
		},
	)

	condition := pc.Or(binary, freetext, group)

	expression = pc.Trans(
		pc.Seq(condition, pc.ZeroOrMore("connective", pc.Seq(logical, condition))),
		func(pctx *pc.ParseContext[entity], tokens []pc.Token[entity]) ([]pc.Token[entity], error) {
			expr := &Expression{Elements: make([]Element, 0, len(tokens))}
			for _, t := range tokens {
				if t.Val.node != nil {
					expr.Elements = append(expr.Elements, t.Val.node)
					continue
				}
				expr.Elements = append(expr.Elements, Connective(t.Val.token.Value))
			}
			return []pc.Token[entity]{node(tokens[0], expr)}, nil
		},
	)
}

func primitive(types ...TokenType) pc.Parser[entity] {
	return func(pctx *pc.ParseContext[entity], tokens []pc.Token[entity]) (int, []pc.Token[entity], error) {
		if len(tokens) > 0 && tokens[0].Val.node == nil && slices.Contains(types, tokens[0].Val.token.Type) {
			return 1, tokens[:1], nil
		}
		return 0, nil, pc.ErrNotMatch
	}
}

func node(at pc.Token[entity], el Element) pc.Token[entity] {
	return pc.Token[entity]{
		Type: "node",
		Pos:  at.Pos,
		Val:  entity{token: at.Val.token, node: el},
	}
}

// Parse parses a query string into an expression tree. Blank input returns
// a nil expression and no error.
func Parse(input string) (*Expression, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	tokens, err := NewTokenizer(input).TokenizeAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	src := make([]pc.Token[entity], 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type == TokenEOF {
			break
		}
		e := entity{token: tok}
		switch tok.Type {
		case TokenDate, TokenReal, TokenInteger, TokenIdentifier, TokenString:
			v, err := newValue(tok)
			if err != nil {
				return nil, err
			}
			e.value = v
		}
		src = append(src, pc.Token[entity]{
			Type: tok.Type.String(),
			Pos:  &pc.Pos{Line: 1, Col: tok.Pos + 1, Index: tok.Pos},
			Val:  e,
			Raw:  tok.Value,
		})
	}

	pctx := pc.NewParseContext[entity]()
	pctx.OrMode = pc.OrModeTryFast

	consumed, parsed, err := expression(pctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	if consumed != len(src) {
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, src[consumed].Raw, src[consumed].Val.token.Pos)
	}
	if len(parsed) != 1 {
		return nil, ErrSyntax
	}
	expr, ok := parsed[0].Val.node.(*Expression)
	if !ok {
		return nil, ErrSyntax
	}
	return expr, nil
}
