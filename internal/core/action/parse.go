package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The rule mini-language mirrors what map files carry in their object
// properties:
//
//	has_inventory
//	has_item "white key"
//	any [has_item "key", has_inventory]
//	all [has_item "torch", any [has_item "key", has_inventory]]
//
// Lifespans are either the word "forever" or a decimal use count.

var errTrailing = errors.New("trailing input after expression")

// ParseFitness parses one rule expression. The whole input must be
// consumed.
func ParseFitness(input string) (Fitness, error) {
	p := &parser{src: input}
	f, err := p.expr()
	if err != nil {
		return Fitness{}, fmt.Errorf("parse fitness %q: %w", input, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Fitness{}, fmt.Errorf("parse fitness %q at %d: %w", input, p.pos, errTrailing)
	}
	return f, nil
}

// ParseLifespan parses "forever" or a decimal number of uses.
func ParseLifespan(input string) (Lifespan, error) {
	s := strings.TrimSpace(input)
	if s == "forever" {
		return Forever(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Lifespan{}, fmt.Errorf("parse lifespan %q: want %q or a non-negative count", input, "forever")
	}
	return Uses(n), nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) expr() (Fitness, error) {
	p.skipSpace()
	switch {
	case p.eat("has_item"):
		p.skipSpace()
		name, err := p.quoted()
		if err != nil {
			return Fitness{}, err
		}
		return HasItem(name), nil
	case p.eat("has_inventory"):
		return HasInventory(), nil
	case p.eat("any"):
		children, err := p.list()
		if err != nil {
			return Fitness{}, err
		}
		return Any(children...), nil
	case p.eat("all"):
		children, err := p.list()
		if err != nil {
			return Fitness{}, err
		}
		return All(children...), nil
	default:
		return Fitness{}, fmt.Errorf("at %d: expected has_item, has_inventory, any or all", p.pos)
	}
}

func (p *parser) list() ([]Fitness, error) {
	p.skipSpace()
	if !p.eat("[") {
		return nil, fmt.Errorf("at %d: expected '['", p.pos)
	}
	var out []Fitness
	p.skipSpace()
	if p.eat("]") {
		return out, nil
	}
	for {
		f, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		p.skipSpace()
		if p.eat(",") {
			continue
		}
		if p.eat("]") {
			return out, nil
		}
		return nil, fmt.Errorf("at %d: expected ',' or ']'", p.pos)
	}
}

func (p *parser) quoted() (string, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '"' {
		return "", fmt.Errorf("at %d: expected quoted string", p.pos)
	}
	end := strings.IndexByte(p.src[p.pos+1:], '"')
	if end < 0 {
		return "", fmt.Errorf("at %d: unterminated string", p.pos)
	}
	s := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return s, nil
}

func (p *parser) eat(tok string) bool {
	if !strings.HasPrefix(p.src[p.pos:], tok) {
		return false
	}
	// Keywords must not run into a longer identifier.
	if isWordTok(tok) {
		rest := p.src[p.pos+len(tok):]
		if rest != "" && isWordByte(rest[0]) {
			return false
		}
	}
	p.pos += len(tok)
	return true
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func isWordTok(tok string) bool { return isWordByte(tok[0]) }

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
