package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// ruleKind selects the evaluation strategy for a compiled rule. The variant
// is fixed at configuration load and never re-inspected per message.
type ruleKind int

const (
	ruleLiteral ruleKind = iota
	rulePattern
	ruleDisabled
)

// KeywordRule is one inclusion or exclusion rule compiled against the
// session's matching flags.
type KeywordRule struct {
	Raw     string // keyword as written in configuration
	kind    ruleKind
	literal string         // normalized literal, set for ruleLiteral
	re      *regexp.Regexp // compiled pattern, set for rulePattern
}

// KeywordEvaluator evaluates an ordered keyword rule list. The first rule
// that matches wins; rules are never scored against each other.
type KeywordEvaluator struct {
	wholeWord bool
	rules     []KeywordRule
}

// isPatternShaped reports whether a keyword is meant as a regular expression
// rather than a literal. QuoteMeta returns its input unchanged exactly when
// no metacharacters are present.
func isPatternShaped(s string) bool {
	return regexp.QuoteMeta(s) != s
}

// CompileRules builds an evaluator from configured keywords. Keywords pass
// through the same look-alike fold and case fold as message text. Malformed
// regex keywords fail closed: the offending rule is disabled for the session
// and reported, while the remaining rules stay live.
func CompileRules(keywords []string, cfg domain.MatchingConfig, norm *Normalizer) (*KeywordEvaluator, []error) {
	rules := make([]KeywordRule, 0, len(keywords))
	var errs []error

	for _, kw := range keywords {
		normalized := norm.Normalize(kw)
		rule := KeywordRule{Raw: kw}

		if cfg.RegexEnabled && isPatternShaped(normalized) {
			re, err := regexp.Compile(normalized)
			if err != nil {
				rule.kind = ruleDisabled
				errs = append(errs, fmt.Errorf("%w: keyword %q: %v", domain.ErrInvalidPattern, kw, err))
			} else {
				rule.kind = rulePattern
				rule.re = re
			}
		} else {
			rule.kind = ruleLiteral
			rule.literal = normalized
		}

		rules = append(rules, rule)
	}

	return &KeywordEvaluator{wholeWord: cfg.WholeWord, rules: rules}, errs
}

// Match returns the first rule matching text, in configured order
func (e *KeywordEvaluator) Match(text string) (string, bool) {
	for _, r := range e.rules {
		if r.matches(text, e.wholeWord) {
			return r.Raw, true
		}
	}
	return "", false
}

// Len returns the number of configured rules, disabled ones included
func (e *KeywordEvaluator) Len() int {
	return len(e.rules)
}

func (r KeywordRule) matches(text string, wholeWord bool) bool {
	switch r.kind {
	case rulePattern:
		return r.re.MatchString(text)
	case ruleLiteral:
		if wholeWord {
			return containsWholeWord(text, r.literal)
		}
		return strings.Contains(text, r.literal)
	default:
		return false
	}
}

// containsWholeWord reports whether needle occurs in haystack bounded on both
// sides by a non-alphanumeric rune or a text edge. RE2's \b is ASCII-only and
// breaks on Cyrillic keywords, so boundaries are checked by hand.
func containsWholeWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; start <= len(haystack)-len(needle); {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		if boundaryBefore(haystack, idx) && boundaryAfter(haystack, idx+len(needle)) {
			return true
		}
		start = idx + 1
	}
	return false
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !isWordRune(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
