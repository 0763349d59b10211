package bot

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

var ErrDivisionByZero = errors.New("division by zero")

// Recursive descent evaluator for the calculator pad.
// Supports: +, -, *, /, parentheses, unary minus, decimal numbers.
type parser struct {
	tokens []token
	pos    int
}

type tokenType int

const (
	tokenNumber tokenType = iota
	tokenPlus
	tokenMinus
	tokenMul
	tokenDiv
	tokenLParen
	tokenRParen
)

type token struct {
	typ tokenType
	val float64
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := rune(expr[i])
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '+':
			tokens = append(tokens, token{typ: tokenPlus})
			i++
		case ch == '-':
			tokens = append(tokens, token{typ: tokenMinus})
			i++
		case ch == '*':
			tokens = append(tokens, token{typ: tokenMul})
			i++
		case ch == '/':
			tokens = append(tokens, token{typ: tokenDiv})
			i++
		case ch == '(':
			tokens = append(tokens, token{typ: tokenLParen})
			i++
		case ch == ')':
			tokens = append(tokens, token{typ: tokenRParen})
			i++
		case ch >= '0' && ch <= '9', ch == '.':
			j := i
			for j < len(expr) && (expr[j] == '.' || (expr[j] >= '0' && expr[j] <= '9')) {
				j++
			}
			val, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number: %s", expr[i:j])
			}
			tokens = append(tokens, token{typ: tokenNumber, val: val})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character: %c", ch)
		}
	}
	return tokens, nil
}

// Evaluate computes an arithmetic expression.
func Evaluate(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	p := &parser{tokens: tokens}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos < len(p.tokens) {
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return result, nil
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.typ != tokenPlus && t.typ != tokenMinus {
			break
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if t.typ == tokenPlus {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.typ != tokenMul && t.typ != tokenDiv {
			break
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if t.typ == tokenMul {
			left *= right
		} else {
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (float64, error) {
	if p.pos < len(p.tokens) {
		switch p.tokens[p.pos].typ {
		case tokenMinus:
			p.pos++
			v, err := p.parseUnary()
			return -v, err
		case tokenPlus:
			p.pos++
			return p.parseUnary()
		}
	}
	return p.parseFactor()
}

func (p *parser) parseFactor() (float64, error) {
	if p.pos >= len(p.tokens) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	t := p.tokens[p.pos]
	if t.typ == tokenNumber {
		p.pos++
		return t.val, nil
	}
	if t.typ == tokenLParen {
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].typ != tokenRParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	}
	return 0, fmt.Errorf("unexpected token")
}

// formatNumber prints whole results without a fractional part.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}
