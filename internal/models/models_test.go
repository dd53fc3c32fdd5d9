package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain number", "1200.50", "1200.5"},
		{"integer", "500", "500"},
		{"thousand separators", "1,20,000", "120000"},
		{"rupee symbol", "₹1500.00", "1500"},
		{"dollar symbol", "$99.99", "99.99"},
		{"leading whitespace", "  250.00  ", "250"},
		{"empty string", "", "0"},
		{"malformed", "abc", "0"},
		{"mixed garbage", "12x34", "0"},
		{"negative", "-45.10", "-45.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceAmount(tt.input)
			expected, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("CoerceAmount(%q) = %s, expected %s", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestCoerceQuantity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain integer", "3", "3"},
		{"decimal quantity", "2.5", "2.5"},
		{"empty defaults to one", "", "1"},
		{"malformed defaults to one", "two", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceQuantity(tt.input)
			expected, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("CoerceQuantity(%q) = %s, expected %s", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestInvoiceTotal(t *testing.T) {
	qty := decimal.NewFromInt(3)
	unit := decimal.NewFromFloat(33.333)

	total := InvoiceTotal(qty, unit)
	expected := decimal.NewFromFloat(100.00)
	if !total.Equal(expected) {
		t.Errorf("InvoiceTotal(3, 33.333) = %s, expected 100", total.String())
	}
}

func TestInvoiceRecordValidate(t *testing.T) {
	invoice := NewInvoiceRecord("INV-001", "2024-01-15", "Consulting services", decimal.NewFromFloat(1200.00))
	if err := invoice.Validate(); err != nil {
		t.Errorf("Expected valid invoice, got error: %v", err)
	}

	negative := NewInvoiceRecord("INV-002", "", "Refund line", decimal.NewFromFloat(-10.00))
	if err := negative.Validate(); err == nil {
		t.Error("Expected error for negative invoice total")
	}
}

func TestNewInvoiceRecordTrimsFields(t *testing.T) {
	invoice := NewInvoiceRecord("  INV-001  ", "2024-01-15", "  Widgets  ", decimal.NewFromInt(100))
	if invoice.InvoiceNo != "INV-001" {
		t.Errorf("Expected trimmed invoice number, got %q", invoice.InvoiceNo)
	}
	if invoice.Details != "Widgets" {
		t.Errorf("Expected trimmed details, got %q", invoice.Details)
	}
}

func TestProposalValidate(t *testing.T) {
	payment := NewPaymentRecord(decimal.NewFromInt(100), "2024-01-20", "NEFT INV-001")
	invoice := NewInvoiceRecord("INV-001", "", "Widgets", decimal.NewFromInt(100))

	single := NewSingleProposal(payment, &Candidate{Invoice: invoice, Score: 0.9})
	if err := single.Validate(); err != nil {
		t.Errorf("Expected valid single proposal, got error: %v", err)
	}

	// Single proposal without an invoice is malformed
	broken := &Proposal{Payment: payment, MatchType: MatchSingle, Score: 0.9}
	if err := broken.Validate(); err == nil {
		t.Error("Expected error for single proposal without invoice")
	}

	// Combined proposal needs at least 2 allocations
	combined := NewCombinedProposal(payment, []Allocation{
		{Invoice: invoice, Allocated: decimal.NewFromInt(100)},
	}, 0.8)
	if err := combined.Validate(); err == nil {
		t.Error("Expected error for combined proposal with a single allocation")
	}

	// Score out of range
	outOfRange := NewSingleProposal(payment, &Candidate{Invoice: invoice, Score: 1.5})
	if err := outOfRange.Validate(); err == nil {
		t.Error("Expected error for score above 1.0")
	}

	// Candidates proposal may be empty
	candidates := NewCandidatesProposal(payment, nil)
	if err := candidates.Validate(); err != nil {
		t.Errorf("Expected valid candidates proposal, got error: %v", err)
	}

	// Nil payment
	noPayment := &Proposal{MatchType: MatchCandidates}
	if err := noPayment.Validate(); err == nil {
		t.Error("Expected error for proposal without payment")
	}
}

func TestProposalAllocatedTotal(t *testing.T) {
	payment := NewPaymentRecord(decimal.NewFromInt(300), "", "settlement")
	combined := NewCombinedProposal(payment, []Allocation{
		{Invoice: NewInvoiceRecord("A", "", "x", decimal.NewFromInt(100)), Allocated: decimal.NewFromInt(100)},
		{Invoice: NewInvoiceRecord("B", "", "y", decimal.NewFromInt(200)), Allocated: decimal.NewFromInt(200)},
	}, 0.8)

	if !combined.AllocatedTotal().Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected allocated total 300, got %s", combined.AllocatedTotal().String())
	}

	single := NewSingleProposal(payment, &Candidate{Invoice: NewInvoiceRecord("A", "", "x", decimal.NewFromInt(100)), Score: 0.9})
	if !single.AllocatedTotal().Equal(decimal.Zero) {
		t.Error("Expected zero allocated total for a single proposal")
	}
}

func TestProposalJSONShape(t *testing.T) {
	payment := NewPaymentRecord(decimal.NewFromFloat(150.50), "2024-01-20", "UPI ref")
	invoice := NewInvoiceRecord("INV-009", "2024-01-10", "Hosting", decimal.NewFromFloat(150.50))

	proposal := NewSingleProposal(payment, &Candidate{
		Invoice: invoice,
		Score:   0.912,
		Reasons: MatchReasons{InvoiceNoMatch: 0.0, AmountScore: 1.0, DetailsScore: 0.42},
	})

	data, err := json.Marshal(proposal)
	if err != nil {
		t.Fatalf("Failed to marshal proposal: %v", err)
	}

	body := string(data)
	if !strings.Contains(body, `"match_type":"single"`) {
		t.Errorf("Expected match_type in JSON, got %s", body)
	}
	if strings.Contains(body, "allocations") {
		t.Errorf("Expected allocations omitted for single proposal, got %s", body)
	}
	if strings.Contains(body, "InvoiceIndex") {
		t.Errorf("Expected candidate pool index excluded from JSON, got %s", body)
	}
}
