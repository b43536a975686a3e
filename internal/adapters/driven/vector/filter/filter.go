// Package filter parses and evaluates vector store filter expressions.
//
// An expression is a conjunction of comparisons joined by AND:
//
//	teamId == '42' AND lastEditedTime >= '2026-01-01T00:00:00Z'
//
// Literals are single-quoted; a quote inside a literal is written twice.
// Comparisons are on strings, which orders RFC3339 UTC timestamps correctly.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for malformed expressions.
var ErrSyntax = errors.New("filter syntax error")

// Operator is a comparison operator.
type Operator string

// Supported operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
)

// operators is ordered so two-character operators match first.
var operators = []Operator{OpEqual, OpNotEqual, OpGreaterEqual, OpLessEqual, OpGreater, OpLess}

// Clause compares one metadata field against a literal.
type Clause struct {
	Field string
	Op    Operator
	Value string
}

// Match reports whether the metadata satisfies the clause. A missing field
// compares as the empty string.
func (c Clause) Match(meta map[string]string) bool {
	v := meta[c.Field]
	switch c.Op {
	case OpEqual:
		return v == c.Value
	case OpNotEqual:
		return v != c.Value
	case OpGreaterEqual:
		return v >= c.Value
	case OpLessEqual:
		return v <= c.Value
	case OpGreater:
		return v > c.Value
	case OpLess:
		return v < c.Value
	default:
		return false
	}
}

// Expr is a parsed expression. The zero value matches everything.
type Expr []Clause

// Match reports whether every clause matches.
func (e Expr) Match(meta map[string]string) bool {
	for _, c := range e {
		if !c.Match(meta) {
			return false
		}
	}
	return true
}

// Parse parses an expression. Blank input yields an empty Expr.
func Parse(input string) (Expr, error) {
	p := &parser{src: input}
	p.skipSpace()
	if p.done() {
		return nil, nil
	}

	var expr Expr
	for {
		clause, err := p.clause()
		if err != nil {
			return nil, err
		}
		expr = append(expr, clause)

		p.skipSpace()
		if p.done() {
			return expr, nil
		}
		if !p.keyword("AND") {
			return nil, p.errorf("expected AND")
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.src)
}

func (p *parser) skipSpace() {
	for !p.done() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) clause() (Clause, error) {
	p.skipSpace()
	start := p.pos
	for !p.done() && isFieldChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return Clause{}, p.errorf("expected field name")
	}
	field := p.src[start:p.pos]

	p.skipSpace()
	op, ok := p.operator()
	if !ok {
		return Clause{}, p.errorf("expected operator after %q", field)
	}

	p.skipSpace()
	value, err := p.literal()
	if err != nil {
		return Clause{}, err
	}
	return Clause{Field: field, Op: op, Value: value}, nil
}

func (p *parser) operator() (Operator, bool) {
	rest := p.src[p.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, string(op)) {
			p.pos += len(op)
			return op, true
		}
	}
	return "", false
}

// literal reads a single-quoted string. Doubled quotes inside it stand for one quote.
func (p *parser) literal() (string, error) {
	if p.done() || p.src[p.pos] != '\'' {
		return "", p.errorf("expected quoted literal")
	}
	p.pos++

	var sb strings.Builder
	for !p.done() {
		ch := p.src[p.pos]
		if ch != '\'' {
			sb.WriteByte(ch)
			p.pos++
			continue
		}
		if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
			sb.WriteByte('\'')
			p.pos += 2
			continue
		}
		p.pos++
		return sb.String(), nil
	}
	return "", p.errorf("unterminated literal")
}

// keyword consumes a case-insensitive keyword followed by whitespace.
func (p *parser) keyword(word string) bool {
	end := p.pos + len(word)
	if end >= len(p.src) || !strings.EqualFold(p.src[p.pos:end], word) || !isSpace(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isFieldChar(ch byte) bool {
	return ch == '_' || ch == '.' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
