package placeholder

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

// Free-text formulas are plain arithmetic over placeholder keys and numeric
// literals, e.g. "TOTAL_DAYS * PRICE_PER_DAY". Grammar:
//
//	expr   = term  { ("+" | "-") term }
//	term   = factor { ("*" | "/" | "%") factor }
//	factor = number | identifier | "(" expr ")" | "-" factor

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// identifiers lists the distinct placeholder keys referenced by an expression.
func identifiers(expr string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range identRe.FindAllString(expr, -1) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func evalTextFormula(key string, f *domain.Formula, defs map[string]domain.Placeholder, values Values, calc map[string]string, fieldErrs map[string]*FieldError) (string, *FieldError) {
	p := &exprParser{
		key: key,
		src: normalizeExpr(f.Text),
		resolve: func(ident string) (float64, *FieldError) {
			op, ferr := resolveOperand(key, ident, defs, values, calc, fieldErrs)
			if ferr != nil {
				return 0, ferr
			}
			if op.isDate {
				return 0, &FieldError{Key: key, Kind: ErrBadFormula}
			}
			return op.num, nil
		},
	}
	v, zeroDiv, ferr := p.parseExpr()
	if ferr != nil {
		return "", ferr
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return "", &FieldError{Key: key, Kind: ErrBadFormula}
	}
	if zeroDiv {
		return DivisionByZero, nil
	}
	return formatNumber(v, f.Rounding), nil
}

type exprParser struct {
	key     string
	src     string
	pos     int
	resolve func(ident string) (float64, *FieldError)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parseExpr() (float64, bool, *FieldError) {
	v, zd, ferr := p.parseTerm()
	if ferr != nil {
		return 0, false, ferr
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			r, z, ferr := p.parseTerm()
			if ferr != nil {
				return 0, false, ferr
			}
			v, zd = v+r, zd || z
		case '-':
			p.pos++
			r, z, ferr := p.parseTerm()
			if ferr != nil {
				return 0, false, ferr
			}
			v, zd = v-r, zd || z
		default:
			return v, zd, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, bool, *FieldError) {
	v, zd, ferr := p.parseFactor()
	if ferr != nil {
		return 0, false, ferr
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			r, z, ferr := p.parseFactor()
			if ferr != nil {
				return 0, false, ferr
			}
			v, zd = v*r, zd || z
		case '/':
			p.pos++
			r, z, ferr := p.parseFactor()
			if ferr != nil {
				return 0, false, ferr
			}
			if r == 0 {
				v, zd = 0, true
			} else {
				v, zd = v/r, zd || z
			}
		case '%':
			p.pos++
			r, z, ferr := p.parseFactor()
			if ferr != nil {
				return 0, false, ferr
			}
			if r == 0 {
				v, zd = 0, true
			} else {
				v, zd = float64(int64(v)%int64(r)), zd || z
			}
		default:
			return v, zd, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, bool, *FieldError) {
	p.skipSpace()
	switch {
	case p.peek() == '(':
		p.pos++
		v, zd, ferr := p.parseExpr()
		if ferr != nil {
			return 0, false, ferr
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, false, &FieldError{Key: p.key, Kind: ErrBadFormula}
		}
		p.pos++
		return v, zd, nil
	case p.peek() == '-':
		p.pos++
		v, zd, ferr := p.parseFactor()
		return -v, zd, ferr
	case p.peek() >= '0' && p.peek() <= '9', p.peek() == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return 0, false, &FieldError{Key: p.key, Kind: ErrBadFormula}
		}
		return n, false, nil
	case isIdentStart(rune(p.peek())):
		start := p.pos
		for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
			p.pos++
		}
		v, ferr := p.resolve(p.src[start:p.pos])
		return v, false, ferr
	default:
		return 0, false, &FieldError{Key: p.key, Kind: ErrBadFormula}
	}
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentPart(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

// normalizeExpr strips newlines so multi-line formulas parse.
func normalizeExpr(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
