// Package matcher implements the payment-to-invoice match engine.
//
// For each bank payment the engine scores every still-eligible invoice on
// three weighted criteria (invoice-number substring presence in the payment
// reference, amount closeness, fuzzy reference/details similarity), then
// walks an acceptance ladder:
//  1. Auto-accept the top candidate above a high-confidence threshold
//  2. Fall back to an invoice-number substring match above a lower threshold
//  3. Fall back to a bounded search for 2-3 invoice combinations whose
//     totals sum to the payment amount within tolerance
//  4. Fall back to a ranked candidate shortlist for human adjudication
//
// An invoice accepted into a single or combined proposal is consumed for
// the remainder of the run, so payments must be processed strictly in input
// order. A run is a pure function of (invoices, payments).
//
// Example usage:
//
//	engine := matcher.NewMatchEngine(matcher.DefaultMatchConfig())
//	result := engine.Run(invoices, payments)
package matcher

import "fmt"

// MatchWeights defines the relative importance of the scoring criteria.
// Weights should sum to approximately 1.0 so combined scores stay in [0,1].
type MatchWeights struct {
	InvoiceNoWeight float64 `json:"invoice_no_weight"`
	AmountWeight    float64 `json:"amount_weight"`
	DetailsWeight   float64 `json:"details_weight"`
}

// Validate checks if the matching weights are valid
func (mw *MatchWeights) Validate() error {
	for name, w := range map[string]float64{
		"invoice_no": mw.InvoiceNoWeight,
		"amount":     mw.AmountWeight,
		"details":    mw.DetailsWeight,
	} {
		if w < 0.0 || w > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", name, w)
		}
	}

	total := mw.InvoiceNoWeight + mw.AmountWeight + mw.DetailsWeight
	if total < 0.9 || total > 1.1 {
		return fmt.Errorf("weights should sum to approximately 1.0, got %f", total)
	}

	return nil
}

// MatchConfig holds the thresholds and bounds of the acceptance ladder.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchConfig(): the production thresholds
//   - StrictMatchConfig(): tighter thresholds, fewer automatic accepts
//   - RelaxedMatchConfig(): looser thresholds for exploratory matching
type MatchConfig struct {
	// AutoAcceptThreshold is the combined score at or above which the top
	// candidate is accepted without further checks
	AutoAcceptThreshold float64 `json:"auto_accept_threshold"`

	// SubstringThreshold is the minimum combined score for accepting an
	// invoice-number substring match that missed auto-accept
	SubstringThreshold float64 `json:"substring_threshold"`

	// CombinationThreshold is the minimum score for accepting an
	// approximate (non exact-tolerance) invoice combination
	CombinationThreshold float64 `json:"combination_threshold"`

	// MaxCombinationPool caps how many top candidates the combination
	// search draws from. Hard bound on combinatorics: at most
	// C(pool,2)+C(pool,3) sums are evaluated per payment.
	MaxCombinationPool int `json:"max_combination_pool"`

	// MaxCombinationSize caps how many invoices one payment may settle
	MaxCombinationSize int `json:"max_combination_size"`

	// MaxShortlist caps the candidates returned for human review
	MaxShortlist int `json:"max_shortlist"`

	// Weights for the combined candidate score
	Weights MatchWeights `json:"weights"`
}

// DefaultMatchConfig returns the production matching configuration
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		AutoAcceptThreshold:  0.78,
		SubstringThreshold:   0.50,
		CombinationThreshold: 0.65,
		MaxCombinationPool:   10,
		MaxCombinationSize:   3,
		MaxShortlist:         5,
		Weights: MatchWeights{
			InvoiceNoWeight: 0.45,
			AmountWeight:    0.40,
			DetailsWeight:   0.15,
		},
	}
}

// StrictMatchConfig returns a configuration for strict matching
func StrictMatchConfig() *MatchConfig {
	config := DefaultMatchConfig()
	config.AutoAcceptThreshold = 0.90
	config.SubstringThreshold = 0.65
	config.CombinationThreshold = 0.80
	config.MaxShortlist = 3
	return config
}

// RelaxedMatchConfig returns a configuration for exploratory matching
func RelaxedMatchConfig() *MatchConfig {
	config := DefaultMatchConfig()
	config.AutoAcceptThreshold = 0.70
	config.SubstringThreshold = 0.40
	config.CombinationThreshold = 0.55
	config.MaxShortlist = 10
	return config
}

// Validate checks if the matching configuration is valid
func (mc *MatchConfig) Validate() error {
	for name, threshold := range map[string]float64{
		"auto accept": mc.AutoAcceptThreshold,
		"substring":   mc.SubstringThreshold,
		"combination": mc.CombinationThreshold,
	} {
		if threshold < 0.0 || threshold > 1.0 {
			return fmt.Errorf("%s threshold must be between 0.0 and 1.0: %f", name, threshold)
		}
	}

	if mc.SubstringThreshold > mc.AutoAcceptThreshold {
		return fmt.Errorf("substring threshold (%f) cannot exceed auto accept threshold (%f)",
			mc.SubstringThreshold, mc.AutoAcceptThreshold)
	}

	if mc.MaxCombinationPool <= 0 {
		return fmt.Errorf("max combination pool must be positive: %d", mc.MaxCombinationPool)
	}

	if mc.MaxCombinationSize < 2 {
		return fmt.Errorf("max combination size must be at least 2: %d", mc.MaxCombinationSize)
	}

	if mc.MaxShortlist <= 0 {
		return fmt.Errorf("max shortlist must be positive: %d", mc.MaxShortlist)
	}

	return mc.Weights.Validate()
}

// Clone creates a copy of the matching configuration
func (mc *MatchConfig) Clone() *MatchConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchConfig) String() string {
	return fmt.Sprintf("MatchConfig{AutoAccept: %.2f, Substring: %.2f, Combination: %.2f, Pool: %d, MaxCombo: %d}",
		mc.AutoAcceptThreshold, mc.SubstringThreshold, mc.CombinationThreshold,
		mc.MaxCombinationPool, mc.MaxCombinationSize)
}
