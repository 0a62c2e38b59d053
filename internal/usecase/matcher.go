package usecase

import (
	"log"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// MatcherConfig holds configuration for the matcher service
type MatcherConfig struct {
	Matching           domain.MatchingConfig
	EnableDebugLogging bool
}

// compiledProduct pairs a product with its keyword evaluators, built once at
// load and read-only afterwards.
type compiledProduct struct {
	product domain.Product
	include *KeywordEvaluator
	exclude *KeywordEvaluator
}

// MatcherService evaluates every configured product against channel messages.
// It is a pure, synchronous computation over read-only compiled rules and is
// safe for concurrent use.
type MatcherService struct {
	normalizer *Normalizer
	extractor  *PriceExtractor
	products   []compiledProduct
	debug      bool
}

// NewMatcherService compiles products and price patterns against the matching
// flags. Compile errors (malformed regex rules or pattern templates) disable
// the offending rule for the session and are returned for the caller to log;
// they never prevent well-formed rules from being used.
func NewMatcherService(
	products []domain.Product,
	patterns []domain.PricePattern,
	format domain.NumberFormat,
	cfg MatcherConfig,
) (*MatcherService, []error) {
	var errs []error

	norm := NewNormalizer(cfg.Matching.CaseSensitive)
	extractor := NewPriceExtractor(patterns, format, &errs)

	compiled := make([]compiledProduct, 0, len(products))
	for _, p := range products {
		include, incErrs := CompileRules(p.Keywords, cfg.Matching, norm)
		exclude, excErrs := CompileRules(p.ExcludeKeywords, cfg.Matching, norm)
		errs = append(errs, incErrs...)
		errs = append(errs, excErrs...)
		compiled = append(compiled, compiledProduct{product: p, include: include, exclude: exclude})
	}

	return &MatcherService{
		normalizer: norm,
		extractor:  extractor,
		products:   compiled,
		debug:      cfg.EnableDebugLogging,
	}, errs
}

// MatchMessage evaluates every configured product against one message and
// returns the matches in product configuration order. Products are
// independent: one message may match any number of them.
func (s *MatcherService) MatchMessage(text string) []domain.MatchResult {
	if text == "" {
		return nil
	}

	// Normalized once, shared across all products.
	normalized := s.normalizer.Normalize(text)

	var results []domain.MatchResult
	for _, cp := range s.products {
		if res, ok := s.matchProduct(normalized, cp); ok {
			results = append(results, res)
		}
	}
	return results
}

func (s *MatcherService) matchProduct(text string, cp compiledProduct) (domain.MatchResult, bool) {
	// Exclusion always wins and is checked before inclusion.
	if kw, ok := cp.exclude.Match(text); ok {
		if s.debug {
			log.Printf("[MATCH] %s: rejected by exclude keyword %q", cp.product.Name, kw)
		}
		return domain.MatchResult{}, false
	}

	kw, ok := cp.include.Match(text)
	if !ok {
		return domain.MatchResult{}, false
	}

	price := s.extractor.Extract(text)

	if cp.product.PriceRange != nil {
		// A configured range implies a price is mandatory.
		if price == nil {
			if s.debug {
				log.Printf("[MATCH] %s: price range configured but no price found", cp.product.Name)
			}
			return domain.MatchResult{}, false
		}
		if !cp.product.PriceRange.Contains(price.Value) {
			if s.debug {
				log.Printf("[MATCH] %s: price %.2f outside configured range", cp.product.Name, price.Value)
			}
			return domain.MatchResult{}, false
		}
	}

	res := domain.MatchResult{
		ProductName:    cp.product.Name,
		MatchedKeyword: kw,
		Notify:         cp.product.ShouldNotify(),
	}
	if price != nil {
		v := price.Value
		res.Price = &v
		res.Currency = price.Currency
	}
	return res, true
}
