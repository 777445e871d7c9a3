package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evalExpression evaluates an arithmetic expression over + - * / ^,
// parentheses, the constants pi and e, and a small set of whitelisted
// functions. It is a closed parser; nothing is ever delegated to a
// general-purpose evaluator.
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: []rune(strings.TrimSpace(input))}
	if len(p.input) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("expression result is not a finite number")
	}
	return value, nil
}

var exprConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var exprFunctions = map[string]func([]float64) (float64, error){
	"abs": unaryFunc(math.Abs),
	"sqrt": func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("sqrt expects 1 argument")
		}
		if args[0] < 0 {
			return 0, fmt.Errorf("sqrt of negative number")
		}
		return math.Sqrt(args[0]), nil
	},
	"round": unaryFunc(math.Round),
	"floor": unaryFunc(math.Floor),
	"ceil":  unaryFunc(math.Ceil),
	"min": func(args []float64) (float64, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("min expects at least 2 arguments")
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Min(out, a)
		}
		return out, nil
	},
	"max": func(args []float64) (float64, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("max expects at least 2 arguments")
		}
		out := args[0]
		for _, a := range args[1:] {
			out = math.Max(out, a)
		}
		return out, nil
	},
}

func unaryFunc(fn func(float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("function expects 1 argument")
		}
		return fn(args[0]), nil
	}
}

type exprParser struct {
	input []rune
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) peek() rune {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) accept(r rune) bool {
	p.skipSpaces()
	if p.peek() == r {
		p.pos++
		return true
	}
	return false
}

// parseExpr handles + and -.
func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		if p.accept('+') {
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		} else if p.accept('-') {
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		} else {
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		if p.accept('*') {
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		} else if p.accept('/') {
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		} else {
			return left, nil
		}
	}
}

// parsePower handles ^, which is right-associative.
func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.accept('^') {
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.accept('-') {
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	p.accept('+')
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if p.accept('(') {
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if !p.accept(')') {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		return value, nil
	}

	r := p.peek()
	if unicode.IsDigit(r) || r == '.' {
		return p.parseNumber()
	}
	if unicode.IsLetter(r) {
		return p.parseIdentifier()
	}
	return 0, fmt.Errorf("unexpected character %q at position %d", r, p.pos)
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	text := string(p.input[start:p.pos])
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return value, nil
}

func (p *exprParser) parseIdentifier() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(p.input[p.pos]) || unicode.IsDigit(p.input[p.pos])) {
		p.pos++
	}
	name := strings.ToLower(string(p.input[start:p.pos]))

	if value, ok := exprConstants[name]; ok {
		return value, nil
	}

	fn, ok := exprFunctions[name]
	if !ok {
		return 0, fmt.Errorf("unknown identifier %q", name)
	}

	if !p.accept('(') {
		return 0, fmt.Errorf("function %q requires arguments", name)
	}

	var args []float64
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		args = append(args, arg)
		if p.accept(',') {
			continue
		}
		break
	}
	if !p.accept(')') {
		return 0, fmt.Errorf("missing closing parenthesis in call to %q", name)
	}

	return fn(args)
}
