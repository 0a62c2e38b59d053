package domain

// PricePattern describes one price-detection rule. Template contains exactly
// one {price} placeholder marking where the numeric token appears. Patterns
// are tried strictly in configured order; position in the list is the only
// priority mechanism.
type PricePattern struct {
	Description string  `mapstructure:"description" json:"description,omitempty"`
	Template    string  `mapstructure:"pattern" json:"pattern"`
	NumberRegex string  `mapstructure:"number_regex" json:"numberRegex,omitempty"`
	MinValue    float64 `mapstructure:"min_value" json:"minValue,omitempty"`
}

// NumberFormat describes how numeric price tokens are written: the regex that
// matches a candidate token, which characters group thousands, and which mark
// the decimal part.
type NumberFormat struct {
	Regex             string `mapstructure:"regex" json:"regex"`
	GroupSeparators   string `mapstructure:"group_separators" json:"groupSeparators"`
	DecimalSeparators string `mapstructure:"decimal_separators" json:"decimalSeparators"`
}
