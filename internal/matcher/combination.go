package matcher

import (
	"github.com/shopspring/decimal"

	"ca-recon-service/internal/models"
)

// combinationMatch is the outcome of the bounded multi-invoice search.
// Exact marks a combination whose summed totals fall within the payment
// tolerance; otherwise it is the best approximate combination seen.
type combinationMatch struct {
	Allocations []models.Allocation
	Indices     []int
	Score       float64
	Exact       bool
}

var one = decimal.NewFromInt(1)
var onePercent = decimal.NewFromFloat(0.01)

// combinationTolerance is max(1.0, 1% of the payment amount).
func combinationTolerance(paymentAmount decimal.Decimal) decimal.Decimal {
	tol := paymentAmount.Mul(onePercent)
	if tol.LessThan(one) {
		return one
	}
	return tol
}

// findCombination searches for 2..MaxCombinationSize invoice combinations
// (drawn from at most the MaxCombinationPool highest-scored candidates)
// whose totals sum to the payment amount within tolerance.
//
// The first exact-tolerance combination in generation order — sizes 2
// before 3, index-lexicographic within a size — is returned immediately; no
// search for a better-scoring exact hit is performed. While searching, the
// best approximate combination is tracked, scored as
// 0.7*mean(candidate scores) + 0.3*amount-closeness; it is returned when no
// exact hit exists. Callers gate approximate results on the configured
// combination threshold.
//
// Worst case with the default bounds: C(10,2)+C(10,3) = 165 sum evaluations.
func (me *MatchEngine) findCombination(paymentAmount decimal.Decimal, candidates []*models.Candidate) *combinationMatch {
	pool := candidates
	if len(pool) > me.config.MaxCombinationPool {
		pool = pool[:me.config.MaxCombinationPool]
	}
	if len(pool) < 2 {
		return nil
	}

	tolerance := combinationTolerance(paymentAmount)

	maxSize := me.config.MaxCombinationSize
	if maxSize > len(pool) {
		maxSize = len(pool)
	}

	var best *combinationMatch

	for size := 2; size <= maxSize; size++ {
		indices := firstCombination(size)
		for indices != nil {
			sum := decimal.Zero
			for _, i := range indices {
				sum = sum.Add(pool[i].Invoice.Total)
			}

			if sum.Sub(paymentAmount).Abs().LessThanOrEqual(tolerance) {
				return &combinationMatch{
					Allocations: buildAllocations(pool, indices),
					Indices:     poolIndices(pool, indices),
					Score:       round3(meanScore(pool, indices)),
					Exact:       true,
				}
			}

			score := round3(0.7*meanScore(pool, indices) + 0.3*amountCloseness(sum, paymentAmount))
			if best == nil || score > best.Score {
				best = &combinationMatch{
					Allocations: buildAllocations(pool, indices),
					Indices:     poolIndices(pool, indices),
					Score:       score,
				}
			}

			indices = nextCombination(indices, len(pool))
		}
	}

	return best
}

// amountCloseness is 1 minus the relative gap between the combination sum
// and the payment amount, floored at 0.
func amountCloseness(sum, paymentAmount decimal.Decimal) float64 {
	denom := decimal.Max(paymentAmount, sum, one)
	closeness := 1.0 - sum.Sub(paymentAmount).Abs().Div(denom).InexactFloat64()
	if closeness < 0 {
		return 0
	}
	return closeness
}

func meanScore(pool []*models.Candidate, indices []int) float64 {
	total := 0.0
	for _, i := range indices {
		total += pool[i].Score
	}
	return total / float64(len(indices))
}

func buildAllocations(pool []*models.Candidate, indices []int) []models.Allocation {
	allocations := make([]models.Allocation, 0, len(indices))
	for _, i := range indices {
		allocations = append(allocations, models.Allocation{
			Invoice:   pool[i].Invoice,
			Allocated: pool[i].Invoice.Total,
		})
	}
	return allocations
}

func poolIndices(pool []*models.Candidate, indices []int) []int {
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		out = append(out, pool[i].InvoiceIndex)
	}
	return out
}

// firstCombination returns the lexicographically first index combination
// of the given size: [0, 1, ..., size-1].
func firstCombination(size int) []int {
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// nextCombination advances to the next index combination in lexicographic
// order, or returns nil when exhausted. n is the pool size.
func nextCombination(indices []int, n int) []int {
	size := len(indices)
	i := size - 1
	for i >= 0 && indices[i] == n-size+i {
		i--
	}
	if i < 0 {
		return nil
	}

	indices[i]++
	for j := i + 1; j < size; j++ {
		indices[j] = indices[j-1] + 1
	}
	return indices
}
