package domain

// Product represents one configured product to watch for in channel messages
type Product struct {
	Name            string      `mapstructure:"name" json:"name"`
	Keywords        []string    `mapstructure:"keywords" json:"keywords"`
	ExcludeKeywords []string    `mapstructure:"exclude_keywords" json:"excludeKeywords,omitempty"`
	PriceRange      *PriceRange `mapstructure:"price_range" json:"priceRange,omitempty"`
	Notify          *bool       `mapstructure:"notify" json:"notify,omitempty"`
}

// ShouldNotify reports whether matches for this product trigger alerts.
// Unset means yes.
func (p Product) ShouldNotify() bool {
	return p.Notify == nil || *p.Notify
}

// PriceRange bounds an acceptable price. Either bound may be nil, meaning
// unbounded on that side.
type PriceRange struct {
	Min *float64 `mapstructure:"min" json:"min,omitempty"`
	Max *float64 `mapstructure:"max" json:"max,omitempty"`
}

// Contains reports whether v falls inside the range
func (r *PriceRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// MatchResult represents a single product matched against one message.
// Price and Currency are optional; a match without a price is valid for
// products that do not configure a price range.
type MatchResult struct {
	ProductName    string   `json:"productName"`
	MatchedKeyword string   `json:"matchedKeyword"`
	Price          *float64 `json:"price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Notify         bool     `json:"notify"`
}

// MatchingConfig holds the three process-wide matching flags. It is read-only
// for the lifetime of a matching session.
type MatchingConfig struct {
	CaseSensitive bool `mapstructure:"case_sensitive" json:"caseSensitive"`
	WholeWord     bool `mapstructure:"whole_word" json:"wholeWord"`
	RegexEnabled  bool `mapstructure:"regex_enabled" json:"regexEnabled"`
}
