package placeholder

import (
	"fmt"
	"strconv"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

var validTypes = map[string]bool{
	domain.PlaceholderText:       true,
	domain.PlaceholderNumber:     true,
	domain.PlaceholderDate:       true,
	domain.PlaceholderCalculated: true,
}

var validOperations = map[string]bool{
	domain.OpAdd:         true,
	domain.OpSubtract:    true,
	domain.OpMultiply:    true,
	domain.OpDivide:      true,
	domain.OpModulo:      true,
	domain.OpDaysBetween: true,
}

// ValidateDefinitions checks placeholder definitions against one or more
// content variants (the main content plus translations). Every {{KEY}} in
// each content must be defined, every definition must be well-formed, and
// formula references must point at defined keys or parse as literals.
// All failures wrap domain.ErrBadRequest.
func ValidateDefinitions(defs map[string]domain.Placeholder, contents ...string) error {
	for _, content := range contents {
		for _, key := range ContentKeys(content) {
			if _, ok := defs[key]; !ok {
				return fmt.Errorf("content references undefined placeholder %q: %w", key, domain.ErrBadRequest)
			}
		}
	}

	for key, def := range defs {
		if !validTypes[def.Type] {
			return fmt.Errorf("placeholder %q has unknown type %q: %w", key, def.Type, domain.ErrBadRequest)
		}
		if def.Owner != domain.OwnerCreator && def.Owner != domain.OwnerSigner {
			return fmt.Errorf("placeholder %q has unknown owner %q: %w", key, def.Owner, domain.ErrBadRequest)
		}
		if def.Type != domain.PlaceholderCalculated {
			if def.Formula != nil {
				return fmt.Errorf("placeholder %q is not calculated but carries a formula: %w", key, domain.ErrBadRequest)
			}
			continue
		}
		if def.Formula == nil {
			return fmt.Errorf("calculated placeholder %q has no formula: %w", key, domain.ErrBadRequest)
		}
		if err := validateFormula(key, def.Formula, defs); err != nil {
			return err
		}
	}
	return nil
}

func validateFormula(key string, f *domain.Formula, defs map[string]domain.Placeholder) error {
	if f.Rounding != "" && f.Rounding != domain.RoundInteger && f.Rounding != domain.RoundDecimal {
		return fmt.Errorf("placeholder %q has unknown rounding %q: %w", key, f.Rounding, domain.ErrBadRequest)
	}

	if f.UseTextFormula {
		if f.Text == "" {
			return fmt.Errorf("placeholder %q has an empty text formula: %w", key, domain.ErrBadRequest)
		}
		for _, ident := range identifiers(f.Text) {
			if _, ok := defs[ident]; !ok {
				return fmt.Errorf("formula for %q references undefined placeholder %q: %w", key, ident, domain.ErrBadRequest)
			}
		}
		// Dry-run parse with stub values to reject syntax errors up front.
		p := &exprParser{
			key: key,
			src: normalizeExpr(f.Text),
			resolve: func(string) (float64, *FieldError) {
				return 1, nil
			},
		}
		if _, _, ferr := p.parseExpr(); ferr != nil {
			return fmt.Errorf("formula for %q does not parse: %w", key, domain.ErrBadRequest)
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return fmt.Errorf("formula for %q does not parse: %w", key, domain.ErrBadRequest)
		}
		return nil
	}

	if !validOperations[f.Operation] {
		return fmt.Errorf("formula for %q has unknown operation %q: %w", key, f.Operation, domain.ErrBadRequest)
	}
	for _, ref := range []string{f.Operand1, f.Operand2} {
		if ref == "" {
			return fmt.Errorf("formula for %q is missing an operand: %w", key, domain.ErrBadRequest)
		}
		if _, ok := defs[ref]; ok {
			continue
		}
		if _, err := strconv.ParseFloat(ref, 64); err == nil {
			continue
		}
		if _, ok := parseDate(ref); ok {
			continue
		}
		return fmt.Errorf("formula for %q references %q, which is neither a placeholder nor a literal: %w", key, ref, domain.ErrBadRequest)
	}
	return nil
}
