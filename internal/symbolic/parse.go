package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"text/scanner"
)

// DefaultMaxDepth bounds the nesting of parentheses and unary operators.
const DefaultMaxDepth = 256

// ErrEmptyExpression is returned for blank input.
var ErrEmptyExpression = errors.New("empty expression")

// SyntaxError describes input that is not a valid expression. Pos is the
// 1-based column of the offending token.
type SyntaxError struct {
	Pos int
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid syntax at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parser turns text into simplified expressions. It is safe for concurrent
// use.
type Parser struct {
	maxDepth int
}

// NewParser creates a parser with the default nesting limit.
func NewParser() *Parser {
	return &Parser{maxDepth: DefaultMaxDepth}
}

// WithMaxDepth returns a copy of p with a different nesting limit.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	return &Parser{maxDepth: depth}
}

var defaultParser = NewParser()

// Parse parses text with the default parser.
func Parse(text string) (Expr, error) {
	return defaultParser.Parse(text)
}

// power is the token for "**", which the scanner reports as two '*'.
const power rune = -100

type lexer struct {
	sc      scanner.Scanner
	tok     rune
	text    string
	pos     int
	scanErr string
	depth   int
	max     int
}

// Parse parses and simplifies text.
func (p *Parser) Parse(text string) (expr Expr, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Pos: 1, Msg: "empty expression", Err: ErrEmptyExpression}
	}

	lex := &lexer{max: p.maxDepth}
	lex.sc.Init(strings.NewReader(text))
	lex.sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	lex.sc.Error = func(_ *scanner.Scanner, msg string) { lex.scanErr = msg }

	defer func() {
		if r := recover(); r != nil {
			var se *SyntaxError
			if e, ok := r.(error); ok && errors.As(e, &se) {
				expr, err = nil, se
				return
			}
			expr, err = nil, &SyntaxError{Pos: lex.pos, Msg: fmt.Sprint(r)}
		}
	}()

	lex.next()
	expr = lex.expression()
	if lex.tok != scanner.EOF {
		lex.fail("unexpected %s", describe(lex.tok, lex.text))
	}
	return expr, nil
}

func (l *lexer) next() {
	l.tok = l.sc.Scan()
	l.text = l.sc.TokenText()
	l.pos = l.sc.Position.Column
	if l.scanErr != "" {
		l.fail("%s", l.scanErr)
	}
	if l.tok == '*' && l.sc.Peek() == '*' {
		l.sc.Next()
		l.tok = power
		l.text = "**"
	}
}

func (l *lexer) fail(format string, args ...any) {
	panic(&SyntaxError{Pos: l.pos, Msg: fmt.Sprintf(format, args...)})
}

func (l *lexer) failWith(err error) {
	panic(&SyntaxError{Pos: l.pos, Msg: err.Error(), Err: err})
}

func (l *lexer) enter() {
	l.depth++
	if l.depth > l.max {
		l.fail("expression nested too deeply")
	}
}

func (l *lexer) leave() { l.depth-- }

func describe(tok rune, text string) string {
	switch tok {
	case scanner.EOF:
		return "end of input"
	case scanner.Ident, scanner.Int, scanner.Float, power:
		return strconv.Quote(text)
	}
	return strconv.QuoteRune(tok)
}

// expression = term { ("+" | "-") term }
func (l *lexer) expression() Expr {
	e := l.term()
	for {
		switch l.tok {
		case '+':
			l.next()
			e = NewAdd(e, l.term())
		case '-':
			l.next()
			e = Sub(e, l.term())
		default:
			return e
		}
	}
}

// term = unary { ("*" | "/") unary }
func (l *lexer) term() Expr {
	e := l.unary()
	for {
		switch l.tok {
		case '*':
			l.next()
			e = NewMul(e, l.unary())
		case '/':
			l.next()
			e = Div(e, l.unary())
		default:
			return e
		}
	}
}

// unary = ("+" | "-") unary | power
func (l *lexer) unary() Expr {
	l.enter()
	defer l.leave()
	switch l.tok {
	case '+':
		l.next()
		return l.unary()
	case '-':
		l.next()
		return Neg(l.unary())
	}
	return l.power()
}

// power = postfix [ ("**" | "^") unary ]
func (l *lexer) power() Expr {
	base := l.postfix()
	if l.tok == power || l.tok == '^' {
		l.next()
		return NewPow(base, l.unary())
	}
	return base
}

// postfix = primary { "!" }
func (l *lexer) postfix() Expr {
	e := l.primary()
	for l.tok == '!' {
		l.next()
		e = mustFunc("factorial", e)
	}
	return e
}

// parseInt reads an integer literal: decimal, or 0x, 0o and 0b prefixed,
// with underscores between digits. Decimal literals may not have leading
// zeros, so "010" is an error rather than eight or ten.
func parseInt(text string) (*big.Int, error) {
	if len(text) > 1 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
		default:
			if strings.Trim(text, "0_") != "" {
				return nil, fmt.Errorf("leading zeros in integer %q are not allowed", text)
			}
			return new(big.Int), nil
		}
	}
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, fmt.Errorf("malformed number %q", text)
	}
	return n, nil
}

var constants = map[string]Expr{
	"pi":  Pi,
	"E":   E,
	"oo":  Infinity,
	"zoo": ComplexInfinity,
	"nan": NaN,
}

func (l *lexer) primary() Expr {
	switch l.tok {
	case scanner.Int:
		n, err := parseInt(l.text)
		if err != nil {
			l.fail("%v", err)
		}
		l.next()
		return ratNum(new(big.Rat).SetInt(n))

	case scanner.Float:
		if len(l.text) > 1 && (l.text[1] == 'x' || l.text[1] == 'X') {
			l.fail("hexadecimal float %q is not supported", l.text)
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(l.text, "_", ""), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			l.fail("malformed number %q", l.text)
		}
		l.next()
		return Float(f)

	case scanner.Ident:
		name, pos := l.text, l.pos
		l.next()
		if l.tok == '(' {
			args := l.arguments()
			e, err := NewFunc(name, args...)
			if err != nil {
				l.pos = pos
				l.failWith(err)
			}
			return e
		}
		if c, ok := constants[name]; ok {
			return c
		}
		if IsFunction(name) {
			l.pos = pos
			l.fail("function %s needs arguments", name)
		}
		return Symbol(name)

	case '(':
		l.enter()
		defer l.leave()
		l.next()
		e := l.expression()
		if l.tok != ')' {
			l.fail("expected ')', got %s", describe(l.tok, l.text))
		}
		l.next()
		return e
	}
	l.fail("unexpected %s", describe(l.tok, l.text))
	return nil
}

// arguments = "(" [ expression { "," expression } ] ")"
func (l *lexer) arguments() []Expr {
	l.enter()
	defer l.leave()
	l.next()
	var args []Expr
	if l.tok == ')' {
		l.next()
		return args
	}
	for {
		args = append(args, l.expression())
		switch l.tok {
		case ')':
			l.next()
			return args
		case ',':
			l.next()
		default:
			l.fail("expected ',' or ')', got %s", describe(l.tok, l.text))
		}
	}
}
