package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// Defaults used when the number format rule leaves a field empty. The regex
// matches plain and space/comma-grouped numbers with an optional two-digit
// decimal part.
const (
	defaultNumberRegex       = `(\d{1,4}(?:[,\s]\d{3})*(?:[.,]\d{1,2})?)`
	defaultGroupSeparators   = ",. \u00a0"
	defaultDecimalSeparators = ".,"
)

// pricePlaceholder marks where the numeric token regex is spliced into a
// pattern template.
const pricePlaceholder = "{price}"

// DefaultPricePatterns is the built-in pattern list, most to least specific.
// Evaluation order is the sole priority mechanism, so the tightly anchored
// shapes come first and the bare-number fallback last.
func DefaultPricePatterns() []domain.PricePattern {
	return []domain.PricePattern{
		{
			Description: "currency symbol before number",
			Template:    `[€$]\s*{price}`,
		},
		{
			// The single leading digit keeps this shape from swallowing wider
			// grouped numbers such as "13 450", which usually glue a model
			// number onto a price.
			Description: "space-grouped number before currency symbol",
			Template:    `\b{price}\s*[€$]`,
			NumberRegex: `(\d(?:[ \x{00a0}]\d{3})+(?:[.,]\d{1,2})?)`,
		},
		{
			// Simple number on purpose: a grouped regex here would read
			// "iPhone 13 450€" as 13450 instead of 450.
			Description: "trailing number with currency symbol",
			Template:    `{price}\s*[€$]\s*$`,
			NumberRegex: `(\d+(?:[.,]\d{1,2})?)`,
		},
		{
			Description: "standalone number adjacent to currency symbol",
			Template:    `\b{price}\s?[€$]`,
			NumberRegex: `(\d+(?:[.,]\d{1,2})?)`,
		},
		{
			Description: "number with three-letter currency code",
			Template:    `\b{price}\s*(?:EUR|USD|RUB)\b`,
		},
		{
			Description: "number after price context word",
			Template:    `(?:price|цена|cena|hinta)\s*:?\s*{price}`,
		},
		{
			Description: "bare number fallback",
			Template:    `\b{price}\b`,
			MinValue:    100,
		},
	}
}

// Currency context words, folded the same way message text is so they keep
// matching after normalization.
var (
	euroWord   = foldLookalikes("евро")
	dollarWord = foldLookalikes("доллар")
)

// PriceInfo is a price extracted from one message
type PriceInfo struct {
	Value    float64
	Currency string
}

type compiledPricePattern struct {
	description string
	re          *regexp.Regexp // nil when the template failed to compile
	minValue    float64
}

// PriceExtractor applies an ordered price pattern list to normalized text.
// Position in the list is the sole priority mechanism: ambiguous numeric
// strings are disambiguated by writing more specific, context-anchored
// patterns earlier, never by comparing candidate matches.
type PriceExtractor struct {
	patterns          []compiledPricePattern
	groupSeparators   string
	decimalSeparators string
}

// NewPriceExtractor compiles the configured patterns. Each template must
// contain exactly one {price} placeholder; the placeholder expands to the
// pattern's own number regex when set, else to the number format's regex.
// Templates are look-alike-folded and compiled case-insensitive. A template
// that fails to compile is disabled for the session and reported; the rest
// of the list stays live.
func NewPriceExtractor(patterns []domain.PricePattern, format domain.NumberFormat, errs *[]error) *PriceExtractor {
	numberRegex := format.Regex
	if numberRegex == "" {
		numberRegex = defaultNumberRegex
	}
	groupSeps := format.GroupSeparators
	if groupSeps == "" {
		groupSeps = defaultGroupSeparators
	}
	decimalSeps := format.DecimalSeparators
	if decimalSeps == "" {
		decimalSeps = defaultDecimalSeparators
	}

	compiled := make([]compiledPricePattern, 0, len(patterns))
	for _, p := range patterns {
		cp := compiledPricePattern{description: p.Description, minValue: p.MinValue}

		if strings.Count(p.Template, pricePlaceholder) != 1 {
			appendErr(errs, fmt.Errorf("%w: price pattern %q: template needs exactly one %s placeholder",
				domain.ErrInvalidPattern, p.Description, pricePlaceholder))
			compiled = append(compiled, cp)
			continue
		}

		token := p.NumberRegex
		if token == "" {
			token = numberRegex
		}
		expanded := strings.Replace(foldLookalikes(p.Template), pricePlaceholder, token, 1)

		re, err := regexp.Compile("(?i)" + expanded)
		if err != nil {
			appendErr(errs, fmt.Errorf("%w: price pattern %q: %v", domain.ErrInvalidPattern, p.Description, err))
		} else {
			cp.re = re
		}
		compiled = append(compiled, cp)
	}

	return &PriceExtractor{
		patterns:          compiled,
		groupSeparators:   groupSeps,
		decimalSeparators: decimalSeps,
	}
}

// Extract applies patterns strictly in configured order. The first pattern
// whose regex matches the text is authoritative: evaluation stops there even
// when the captured token fails to parse or falls below the pattern's
// min_value, in which case no price is reported at all.
func (e *PriceExtractor) Extract(text string) *PriceInfo {
	for _, p := range e.patterns {
		if p.re == nil {
			continue // disabled at load
		}
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) < 2 {
			return nil // number regex captured nothing
		}
		value, err := e.parseNumber(m[1])
		if err != nil {
			return nil
		}
		if value < p.minValue {
			return nil
		}
		return &PriceInfo{Value: value, Currency: detectCurrency(m[0])}
	}
	return nil
}

// parseNumber turns a captured numeric token into a float. The decimal
// separator is whichever configured decimal rune comes last with one or two
// digits after it; every other separator is treated as grouping and removed.
func (e *PriceExtractor) parseNumber(token string) (float64, error) {
	cleaned := strings.TrimSpace(token)
	if cleaned == "" {
		return 0, fmt.Errorf("empty numeric token")
	}

	intPart, decPart := cleaned, ""
	if pos := strings.LastIndexAny(cleaned, e.decimalSeparators); pos >= 0 {
		_, w := utf8.DecodeRuneInString(cleaned[pos:])
		frac := cleaned[pos+w:]
		if len(frac) >= 1 && len(frac) <= 2 && allDigits(frac) {
			intPart, decPart = cleaned[:pos], frac
		}
	}

	intPart = stripRunes(intPart, e.groupSeparators+e.decimalSeparators)
	if intPart == "" || !allDigits(intPart) {
		return 0, fmt.Errorf("unparsable numeric token %q", token)
	}

	s := intPart
	if decPart != "" {
		s = intPart + "." + decPart
	}
	return strconv.ParseFloat(s, 64)
}

// detectCurrency resolves the currency from the full matched span,
// independent of the numeric value. An unrecognized span yields an empty
// currency, which is still a valid price.
func detectCurrency(span string) string {
	upper := strings.ToUpper(span)
	lower := strings.ToLower(span)
	switch {
	case strings.Contains(span, "€"), strings.Contains(upper, "EUR"), strings.Contains(lower, euroWord):
		return "€"
	case strings.Contains(span, "$"), strings.Contains(upper, "USD"),
		strings.Contains(lower, "dollar"), strings.Contains(lower, dollarWord):
		return "$"
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func stripRunes(s, set string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(set, r) {
			return -1
		}
		return r
	}, s)
}

func appendErr(errs *[]error, err error) {
	if errs != nil {
		*errs = append(*errs, err)
	}
}
