// Package placeholder resolves template {{KEY}} markers into concrete text
// and evaluates calculated fields. Pure functions of (definitions, values):
// no storage, no clock, no side effects.
package placeholder

import (
	"regexp"
	"strings"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

// Values maps placeholder keys to their resolved string values.
type Values map[string]string

var markerRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// ContentKeys returns the distinct placeholder keys referenced by content,
// in order of first appearance.
func ContentKeys(content string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range markerRe.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Options tune how unresolved fields render.
type Options struct {
	// NotFilled is substituted for required placeholders that have no value.
	// Defaults to a fill-in-the-blank line.
	NotFilled string
}

func (o Options) notFilled() string {
	if o.NotFilled == "" {
		return "__________"
	}
	return o.NotFilled
}

// Result of a resolution pass.
type Result struct {
	Text string
	// Calculated holds the evaluated value of every calculated placeholder.
	Calculated map[string]string
	// FieldErrors holds per-key formula errors. A field error degrades that
	// single field to an empty substitution; the rest of the document
	// still resolves.
	FieldErrors map[string]*FieldError
}

// Resolve substitutes every placeholder regardless of owner. Used once both
// parties' values are known (signing and later).
func Resolve(defs map[string]domain.Placeholder, values Values, content string, opts Options) Result {
	return resolve(defs, values, content, "", opts)
}

// ResolveForViewer substitutes only placeholders owned by viewer; keys owned
// by the other party keep their raw {{KEY}} marker. Every content-producing
// call site goes through here, so one party's data can never show up inside
// the other party's fields.
func ResolveForViewer(defs map[string]domain.Placeholder, values Values, content, viewer string, opts Options) Result {
	return resolve(defs, values, content, viewer, opts)
}

func resolve(defs map[string]domain.Placeholder, values Values, content, viewer string, opts Options) Result {
	calc, fieldErrs := evaluate(defs, values)

	text := markerRe.ReplaceAllStringFunc(content, func(m string) string {
		key := markerRe.FindStringSubmatch(m)[1]
		def, ok := defs[key]
		if !ok {
			// Unknown key: leave the marker untouched rather than guessing.
			return m
		}
		if viewer != "" && def.Owner != viewer {
			return m
		}
		if def.Type == domain.PlaceholderCalculated {
			if fe, bad := fieldErrs[key]; bad {
				// In a viewer-scoped render a missing operand usually means
				// the other party has not filled their side yet. Keep the
				// marker so the formula can still resolve later; only the
				// final full render degrades it to empty.
				if viewer != "" && fe.Kind == ErrMissingOperand {
					return m
				}
				return ""
			}
			return calc[key]
		}
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
		if def.Required {
			return opts.notFilled()
		}
		return m
	})

	return Result{Text: text, Calculated: calc, FieldErrors: fieldErrs}
}
