package placeholder

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

// ErrorKind classifies a field-scoped formula failure.
type ErrorKind string

const (
	ErrMissingOperand  ErrorKind = "missing_operand"
	ErrCircularFormula ErrorKind = "circular_formula"
	ErrUnparsableDate  ErrorKind = "unparsable_date"
	ErrBadFormula      ErrorKind = "bad_formula"
)

// FieldError is a formula error scoped to a single placeholder key. The
// affected field degrades to an empty substitution; the rest of the document
// resolves normally.
type FieldError struct {
	Key  string
	Kind ErrorKind
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("placeholder %s: %s", e.Key, e.Kind)
}

// DivisionByZero is rendered instead of failing when a formula divides by zero.
const DivisionByZero = "—"

var dateFormats = []string{"2006-01-02", "02.01.2006"}

func parseDate(s string) (time.Time, bool) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// operand is a resolved formula input: a number or a date.
type operand struct {
	num    float64
	date   time.Time
	isDate bool
}

// evaluate computes every calculated placeholder in dependency order.
// Calculated fields may reference other calculated fields; cycles are
// detected explicitly instead of recursing.
func evaluate(defs map[string]domain.Placeholder, values Values) (map[string]string, map[string]*FieldError) {
	calc := make(map[string]string)
	fieldErrs := make(map[string]*FieldError)

	var keys []string
	for k, def := range defs {
		if def.Type == domain.PlaceholderCalculated {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	deps := make(map[string][]string, len(keys))
	for _, k := range keys {
		f := defs[k].Formula
		if f == nil {
			fieldErrs[k] = &FieldError{Key: k, Kind: ErrBadFormula}
			continue
		}
		deps[k] = calculatedDeps(f, defs)
	}

	order, cyclic := topoSort(keys, deps)
	for _, k := range cyclic {
		fieldErrs[k] = &FieldError{Key: k, Kind: ErrCircularFormula}
	}

	for _, k := range order {
		if _, bad := fieldErrs[k]; bad {
			continue
		}
		v, ferr := evalFormula(k, defs[k].Formula, defs, values, calc, fieldErrs)
		if ferr != nil {
			fieldErrs[k] = ferr
			continue
		}
		calc[k] = v
	}
	return calc, fieldErrs
}

// calculatedDeps lists the calculated placeholders a formula depends on.
// Non-calculated keys and literals never form cycles, so they are excluded
// from the graph.
func calculatedDeps(f *domain.Formula, defs map[string]domain.Placeholder) []string {
	var refs []string
	if f.UseTextFormula {
		refs = identifiers(f.Text)
	} else {
		refs = []string{f.Operand1, f.Operand2}
	}
	var out []string
	for _, r := range refs {
		if def, ok := defs[r]; ok && def.Type == domain.PlaceholderCalculated {
			out = append(out, r)
		}
	}
	return out
}

// topoSort is Kahn's algorithm over the calculated-field dependency graph.
// Returns evaluation order plus the keys stuck in a cycle.
func topoSort(keys []string, deps map[string][]string) (order, cyclic []string) {
	indeg := make(map[string]int, len(keys))
	dependents := make(map[string][]string)
	for _, k := range keys {
		indeg[k] = 0
	}
	for k, ds := range deps {
		for _, d := range ds {
			if _, ok := indeg[d]; ok {
				indeg[k]++
				dependents[d] = append(dependents[d], k)
			}
		}
	}

	var ready []string
	for _, k := range keys {
		if indeg[k] == 0 {
			ready = append(ready, k)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		order = append(order, k)
		for _, dep := range dependents[k] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Strings(ready)
	}

	if len(order) < len(keys) {
		done := make(map[string]bool, len(order))
		for _, k := range order {
			done[k] = true
		}
		for _, k := range keys {
			if !done[k] {
				cyclic = append(cyclic, k)
			}
		}
	}
	return order, cyclic
}

func evalFormula(key string, f *domain.Formula, defs map[string]domain.Placeholder, values Values, calc map[string]string, fieldErrs map[string]*FieldError) (string, *FieldError) {
	if f.UseTextFormula {
		return evalTextFormula(key, f, defs, values, calc, fieldErrs)
	}

	a, ferr := resolveOperand(key, f.Operand1, defs, values, calc, fieldErrs)
	if ferr != nil {
		return "", ferr
	}
	b, ferr := resolveOperand(key, f.Operand2, defs, values, calc, fieldErrs)
	if ferr != nil {
		return "", ferr
	}

	op := f.Operation
	// Subtracting one date from another is a day difference, same as an
	// explicit days_between.
	if op == domain.OpDaysBetween || (op == domain.OpSubtract && a.isDate && b.isDate) {
		if !a.isDate || !b.isDate {
			return "", &FieldError{Key: key, Kind: ErrUnparsableDate}
		}
		days := a.date.Sub(b.date).Hours() / 24
		return formatNumber(days, f.Rounding), nil
	}
	if a.isDate || b.isDate {
		return "", &FieldError{Key: key, Kind: ErrBadFormula}
	}

	var v float64
	switch op {
	case domain.OpAdd:
		v = a.num + b.num
	case domain.OpSubtract:
		v = a.num - b.num
	case domain.OpMultiply:
		v = a.num * b.num
	case domain.OpDivide:
		if b.num == 0 {
			return DivisionByZero, nil
		}
		v = a.num / b.num
	case domain.OpModulo:
		if b.num == 0 {
			return DivisionByZero, nil
		}
		v = math.Mod(a.num, b.num)
	default:
		return "", &FieldError{Key: key, Kind: ErrBadFormula}
	}
	return formatNumber(v, f.Rounding), nil
}

// resolveOperand turns an operand reference into a number or date. The
// reference is a placeholder key when one exists, otherwise a literal.
func resolveOperand(key, ref string, defs map[string]domain.Placeholder, values Values, calc map[string]string, fieldErrs map[string]*FieldError) (operand, *FieldError) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return operand{}, &FieldError{Key: key, Kind: ErrMissingOperand}
	}

	raw := ref
	if def, ok := defs[ref]; ok {
		if def.Type == domain.PlaceholderCalculated {
			if _, bad := fieldErrs[ref]; bad {
				return operand{}, &FieldError{Key: key, Kind: ErrMissingOperand}
			}
			raw = calc[ref]
		} else {
			raw = values[ref]
		}
		if strings.TrimSpace(raw) == "" {
			return operand{}, &FieldError{Key: key, Kind: ErrMissingOperand}
		}
		if def.Type == domain.PlaceholderDate {
			t, ok := parseDate(raw)
			if !ok {
				return operand{}, &FieldError{Key: key, Kind: ErrUnparsableDate}
			}
			return operand{date: t, isDate: true}, nil
		}
	}

	raw = strings.TrimSpace(raw)
	if raw == DivisionByZero {
		return operand{}, &FieldError{Key: key, Kind: ErrMissingOperand}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return operand{num: n}, nil
	}
	if t, ok := parseDate(raw); ok {
		return operand{date: t, isDate: true}, nil
	}
	return operand{}, &FieldError{Key: key, Kind: ErrMissingOperand}
}

// formatNumber renders a result per the rounding mode: integer rounds to the
// nearest whole unit, decimal keeps two fraction digits.
func formatNumber(v float64, rounding string) string {
	if rounding == domain.RoundDecimal {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
}
