package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Formula engine: a closed arithmetic grammar over listing fields.
 *
 * Grammar (recursive descent, no precedence table needed):
 *
 *   expr    := term (('+' | '-') term)*
 *   term    := unary (('*' | '/') unary)*
 *   unary   := '-' unary | primary
 *   primary := NUMBER | IDENT | IDENT '(' expr (',' expr)* ')' | '(' expr ')'
 *
 * IDENT is a dotted field path (ram_spec.ddr_generation) or one of the
 * allow-listed functions min, max, abs, round. There is no assignment, no
 * loop, and no arbitrary call: the grammar is deliberately closed so formula
 * authors cannot introduce unbounded computation or side effects.
 *
 * Parse produces an AST evaluated by structural recursion against a
 * snapshot. Parsing and evaluation are pure; the same expression against the
 * same snapshot always yields the same float64, a property the reproducible
 * breakdown contract depends on.
 *
 * Faults (parse error, unresolved field, division by zero) are typed errors;
 * the action evaluator recovers them as a zero contribution.
 */

// formulaNode is one AST node, evaluated by structural recursion.
type formulaNode interface {
	eval(snap Snapshot) (float64, error)
}

type numberNode struct{ value float64 }

type fieldNode struct{ path string }

type unaryNode struct{ operand formulaNode }

type binaryNode struct {
	op          byte // one of + - * /
	left, right formulaNode
}

type callNode struct {
	name string
	args []formulaNode
}

func (n *numberNode) eval(Snapshot) (float64, error) { return n.value, nil }

func (n *fieldNode) eval(snap Snapshot) (float64, error) {
	value := Resolve(snap, n.path)
	num, ok := value.AsNumber()
	if !ok {
		return 0, fmt.Errorf("formula field %q: %w", n.path, types.ErrFieldNotFound)
	}
	return num, nil
}

func (n *unaryNode) eval(snap Snapshot) (float64, error) {
	v, err := n.operand.eval(snap)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n *binaryNode) eval(snap Snapshot) (float64, error) {
	left, err := n.left.eval(snap)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(snap)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	default:
		if right == 0 {
			return 0, types.ErrDivisionByZero
		}
		return left / right, nil
	}
}

func (n *callNode) eval(snap Snapshot) (float64, error) {
	args := make([]float64, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(snap)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch n.name {
	case "min":
		result := args[0]
		for _, v := range args[1:] {
			result = math.Min(result, v)
		}
		return result, nil
	case "max":
		result := args[0]
		for _, v := range args[1:] {
			result = math.Max(result, v)
		}
		return result, nil
	case "abs":
		return math.Abs(args[0]), nil
	default: // round, checked at parse time
		return math.Round(args[0]), nil
	}
}

// Formula is a parsed, reusable expression.
type Formula struct {
	source string
	root   formulaNode
}

// Source returns the original expression text.
func (f *Formula) Source() string { return f.source }

// Evaluate computes the formula against a snapshot.
func (f *Formula) Evaluate(snap Snapshot) (float64, error) {
	return f.root.eval(snap)
}

// ParseFormula parses expression text into a reusable Formula.
// Returns ErrFormulaSyntax-wrapped errors for any grammar violation.
func ParseFormula(src string) (*Formula, error) {
	if len(src) > types.MaxFormulaLength {
		return nil, types.ErrFormulaTooLong
	}
	p := &formulaParser{src: src}
	p.next()
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF || p.poisoned() {
		return nil, p.syntaxError("unexpected trailing input")
	}
	return &Formula{source: src, root: root}, nil
}

// EvaluateFormula parses and evaluates in one step.
func EvaluateFormula(src string, snap Snapshot) (float64, error) {
	f, err := ParseFormula(src)
	if err != nil {
		return 0, err
	}
	return f.Evaluate(snap)
}

// allowedFunctions is the closed function allow list with arity bounds.
var allowedFunctions = map[string]struct{ minArgs, maxArgs int }{
	"min":   {2, 8},
	"max":   {2, 8},
	"abs":   {1, 1},
	"round": {1, 1},
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPunct // one of + - * / ( ) ,
)

type token struct {
	kind  tokenKind
	punct byte
	num   float64
	text  string
	pos   int
}

type formulaParser struct {
	src string
	pos int
	tok token
}

// next advances the lexer by one token.
func (p *formulaParser) next() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	c := p.src[p.pos]
	switch {
	case strings.IndexByte("+-*/(),", c) >= 0:
		p.pos++
		p.tok = token{kind: tokPunct, punct: c, pos: start}
	case c >= '0' && c <= '9' || c == '.':
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		num, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			p.tok = token{kind: tokEOF, pos: start}
			p.pos = len(p.src) + 1 // poison: forces syntax error upstream
			return
		}
		p.tok = token{kind: tokNumber, num: num, pos: start}
	case isIdentStart(c):
		for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	default:
		// Unknown byte: emit EOF with a poisoned position so the parser
		// reports a syntax error instead of silently stopping.
		p.tok = token{kind: tokEOF, pos: start}
		p.pos = len(p.src) + 1
	}
}

func (p *formulaParser) poisoned() bool { return p.pos > len(p.src) }

func (p *formulaParser) syntaxError(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", types.ErrFormulaSyntax, msg, p.tok.pos)
}

func (p *formulaParser) parseExpr() (formulaNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPunct && (p.tok.punct == '+' || p.tok.punct == '-') {
		op := p.tok.punct
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *formulaParser) parseTerm() (formulaNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPunct && (p.tok.punct == '*' || p.tok.punct == '/') {
		op := p.tok.punct
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *formulaParser) parseUnary() (formulaNode, error) {
	if p.tok.kind == tokPunct && p.tok.punct == '-' {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *formulaParser) parsePrimary() (formulaNode, error) {
	switch p.tok.kind {
	case tokNumber:
		node := &numberNode{value: p.tok.num}
		p.next()
		return node, nil

	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind == tokPunct && p.tok.punct == '(' {
			return p.parseCall(name)
		}
		if strings.Count(name, ".")+1 > types.MaxFieldPathDepth {
			return nil, p.syntaxError("field path too deep")
		}
		return &fieldNode{path: name}, nil

	case tokPunct:
		if p.tok.punct == '(' {
			p.next()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.tok.kind != tokPunct || p.tok.punct != ')' {
				return nil, p.syntaxError("missing closing parenthesis")
			}
			p.next()
			return inner, nil
		}
		return nil, p.syntaxError(fmt.Sprintf("unexpected %q", string(p.tok.punct)))

	default:
		if p.poisoned() {
			return nil, p.syntaxError("unexpected character")
		}
		return nil, p.syntaxError("unexpected end of expression")
	}
}

// parseCall parses an allow-listed function call; name has been consumed and
// the current token is '('.
func (p *formulaParser) parseCall(name string) (formulaNode, error) {
	arity, ok := allowedFunctions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFunction, name)
	}

	p.next() // consume '('
	var args []formulaNode
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.kind == tokPunct && p.tok.punct == ',' {
			p.next()
			continue
		}
		break
	}
	if p.tok.kind != tokPunct || p.tok.punct != ')' {
		return nil, p.syntaxError("missing closing parenthesis in call")
	}
	p.next()

	if len(args) < arity.minArgs || len(args) > arity.maxArgs {
		return nil, fmt.Errorf("%w: %s expects %d..%d arguments, got %d",
			types.ErrFormulaSyntax, name, arity.minArgs, arity.maxArgs, len(args))
	}
	return &callNode{name: name, args: args}, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}
