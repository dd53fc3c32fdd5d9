package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// SimilarityFunc scores the similarity of two strings, normalized to [0,1].
// The engine uses it for payment-reference vs invoice-details comparison;
// any token-order-tolerant similarity works.
type SimilarityFunc func(a, b string) float64

// TokenSortRatio is the default similarity: both strings are lowercased,
// tokenized and re-joined in sorted token order, then compared by
// Levenshtein ratio. Word order differences score as identical; minor
// spelling differences degrade the score gradually.
func TokenSortRatio(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0.0
	}

	sortedA := sortTokens(a)
	sortedB := sortTokens(b)
	if sortedA == sortedB {
		return 1.0
	}

	return levenshtein.RatioForStrings([]rune(sortedA), []rune(sortedB), levenshtein.DefaultOptions)
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// AmountScore measures how close an invoice total is to a payment amount,
// normalized to [0,1]: 1.0 for equal positive amounts, decaying linearly
// with the relative difference. Both amounts non-positive scores 0.
func AmountScore(invoiceTotal, paymentAmount decimal.Decimal) float64 {
	if !invoiceTotal.IsPositive() && !paymentAmount.IsPositive() {
		return 0.0
	}

	inv := invoiceTotal.InexactFloat64()
	pay := paymentAmount.InexactFloat64()
	denom := math.Max(math.Max(inv, pay), 1.0)

	return math.Max(0.0, 1.0-math.Abs(inv-pay)/denom)
}

// round3 rounds scores to 3 decimals, the precision reported to reviewers.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
