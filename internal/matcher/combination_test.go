package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"ca-recon-service/internal/models"
)

func candidateFor(invoiceNo string, total float64, score float64, index int) *models.Candidate {
	return &models.Candidate{
		Invoice: &models.InvoiceRecord{
			InvoiceNo: invoiceNo,
			Details:   "line " + invoiceNo,
			Total:     decimal.NewFromFloat(total),
		},
		InvoiceIndex: index,
		Score:        score,
	}
}

func TestCombinationTolerance(t *testing.T) {
	// 1% of 10000 is 100
	tol := combinationTolerance(decimal.NewFromInt(10000))
	if !tol.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected tolerance 100, got %s", tol.String())
	}

	// Floor of 1.0 for small payments
	tol = combinationTolerance(decimal.NewFromInt(50))
	if !tol.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected tolerance floored at 1, got %s", tol.String())
	}
}

func TestFindCombinationExactPair(t *testing.T) {
	engine := NewMatchEngine(nil)
	candidates := []*models.Candidate{
		candidateFor("A", 600, 0.6, 0),
		candidateFor("B", 400, 0.5, 1),
		candidateFor("C", 999, 0.4, 2),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil {
		t.Fatal("Expected a combination, got nil")
	}
	if !combo.Exact {
		t.Error("Expected an exact-tolerance combination")
	}
	if len(combo.Allocations) != 2 {
		t.Fatalf("Expected a pair, got %d invoices", len(combo.Allocations))
	}
	if combo.Allocations[0].Invoice.InvoiceNo != "A" || combo.Allocations[1].Invoice.InvoiceNo != "B" {
		t.Errorf("Expected A+B, got %s+%s",
			combo.Allocations[0].Invoice.InvoiceNo, combo.Allocations[1].Invoice.InvoiceNo)
	}
	// Exact hits score the mean of the member candidate scores
	if combo.Score != 0.55 {
		t.Errorf("Expected score 0.55, got %f", combo.Score)
	}
}

func TestFindCombinationFirstExactWins(t *testing.T) {
	engine := NewMatchEngine(nil)

	// Both A+B and C+D sum to 1000; generation order is index-lexicographic
	// so A+B is found first even though C+D has the higher mean score.
	candidates := []*models.Candidate{
		candidateFor("A", 600, 0.3, 0),
		candidateFor("B", 400, 0.3, 1),
		candidateFor("C", 500, 0.9, 2),
		candidateFor("D", 500, 0.9, 3),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil || !combo.Exact {
		t.Fatal("Expected an exact combination")
	}
	if combo.Allocations[0].Invoice.InvoiceNo != "A" {
		t.Errorf("Expected first exact hit A+B accepted, got %s first",
			combo.Allocations[0].Invoice.InvoiceNo)
	}
}

func TestFindCombinationPairsBeforeTriples(t *testing.T) {
	engine := NewMatchEngine(nil)

	// A+B+C sums exactly; D+E also sums exactly. Pairs are searched first.
	candidates := []*models.Candidate{
		candidateFor("A", 300, 0.5, 0),
		candidateFor("B", 300, 0.5, 1),
		candidateFor("C", 400, 0.5, 2),
		candidateFor("D", 700, 0.5, 3),
		candidateFor("E", 300, 0.5, 4),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil || !combo.Exact {
		t.Fatal("Expected an exact combination")
	}
	if len(combo.Allocations) != 2 {
		t.Errorf("Expected size-2 combination found before size-3, got size %d", len(combo.Allocations))
	}
}

func TestFindCombinationTriple(t *testing.T) {
	engine := NewMatchEngine(nil)
	candidates := []*models.Candidate{
		candidateFor("A", 300, 0.5, 0),
		candidateFor("B", 300, 0.5, 1),
		candidateFor("C", 400, 0.5, 2),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil || !combo.Exact {
		t.Fatal("Expected an exact triple")
	}
	if len(combo.Allocations) != 3 {
		t.Errorf("Expected 3 invoices, got %d", len(combo.Allocations))
	}
}

func TestFindCombinationWithinTolerance(t *testing.T) {
	engine := NewMatchEngine(nil)

	// Sum 1005 against payment 1000: within the 1% tolerance of 10.
	candidates := []*models.Candidate{
		candidateFor("A", 605, 0.5, 0),
		candidateFor("B", 400, 0.5, 1),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil || !combo.Exact {
		t.Error("Expected sum within tolerance to count as exact")
	}
}

func TestFindCombinationApproximate(t *testing.T) {
	engine := NewMatchEngine(nil)

	// No pair or triple lands within tolerance of 1000
	candidates := []*models.Candidate{
		candidateFor("A", 100, 0.9, 0),
		candidateFor("B", 200, 0.9, 1),
		candidateFor("C", 300, 0.9, 2),
	}

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo == nil {
		t.Fatal("Expected a best approximate combination, got nil")
	}
	if combo.Exact {
		t.Error("Expected an approximate combination")
	}

	// The best approximation is the largest sum (600), closest to 1000
	if !combo.Allocations[0].Allocated.Add(combo.Allocations[1].Allocated).Add(combo.Allocations[2].Allocated).Equal(decimal.NewFromInt(600)) {
		sum := decimal.Zero
		for _, a := range combo.Allocations {
			sum = sum.Add(a.Allocated)
		}
		t.Errorf("Expected best approximate sum 600, got %s", sum.String())
	}
	if combo.Score <= 0.0 || combo.Score > 1.0 {
		t.Errorf("Expected approximate score in (0,1], got %f", combo.Score)
	}
}

func TestFindCombinationTooFewCandidates(t *testing.T) {
	engine := NewMatchEngine(nil)

	if combo := engine.findCombination(decimal.NewFromInt(1000), nil); combo != nil {
		t.Error("Expected nil for empty candidate list")
	}

	single := []*models.Candidate{candidateFor("A", 1000, 0.9, 0)}
	if combo := engine.findCombination(decimal.NewFromInt(1000), single); combo != nil {
		t.Error("Expected nil for a single candidate")
	}
}

func TestFindCombinationPoolBound(t *testing.T) {
	engine := NewMatchEngine(nil)

	// 12 candidates, but only the top 10 participate; the exact pair hides
	// at positions 10 and 11 and must not be found.
	candidates := make([]*models.Candidate, 0, 12)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidateFor("X", 10, 0.5, i))
	}
	candidates = append(candidates, candidateFor("Y", 600, 0.4, 10))
	candidates = append(candidates, candidateFor("Z", 400, 0.4, 11))

	combo := engine.findCombination(decimal.NewFromInt(1000), candidates)
	if combo != nil && combo.Exact {
		t.Error("Expected candidates beyond the pool bound to be ignored")
	}
}

func TestNextCombination(t *testing.T) {
	// Walk all C(4,2) = 6 pairs
	expected := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

	indices := firstCombination(2)
	for i, exp := range expected {
		if indices == nil {
			t.Fatalf("Combination stream ended early at step %d", i)
		}
		if indices[0] != exp[0] || indices[1] != exp[1] {
			t.Errorf("Step %d: expected %v, got %v", i, exp, indices)
		}
		indices = nextCombination(indices, 4)
	}
	if indices != nil {
		t.Errorf("Expected stream exhausted, got %v", indices)
	}
}
