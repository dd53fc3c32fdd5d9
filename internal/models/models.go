// Package models defines the records flowing through a reconciliation run:
// invoices loaded from a ledger, bank payments, scored candidates, and the
// proposals the match engine emits.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceRecord represents one ledger line. Records are immutable once
// loaded and live for the duration of a single reconciliation run. Date is
// kept as free-form text; matching never interprets it.
type InvoiceRecord struct {
	InvoiceNo string          `json:"invoice_no,omitempty"`
	Date      string          `json:"date,omitempty"`
	Details   string          `json:"details"`
	Total     decimal.Decimal `json:"total"`
}

// NewInvoiceRecord creates a new InvoiceRecord instance
func NewInvoiceRecord(invoiceNo, date, details string, total decimal.Decimal) *InvoiceRecord {
	return &InvoiceRecord{
		InvoiceNo: strings.TrimSpace(invoiceNo),
		Date:      date,
		Details:   strings.TrimSpace(details),
		Total:     total,
	}
}

// Validate performs basic validation on the InvoiceRecord
func (inv *InvoiceRecord) Validate() error {
	if inv.Total.IsNegative() {
		return fmt.Errorf("invoice total cannot be negative: %s", inv.Total.String())
	}
	return nil
}

// String returns a string representation of the InvoiceRecord
func (inv *InvoiceRecord) String() string {
	return fmt.Sprintf("Invoice{No: %s, Total: %s, Details: %s}",
		inv.InvoiceNo, inv.Total.String(), inv.Details)
}

// PaymentRecord represents one bank transaction line. Each payment is
// consumed exactly once by a matching pass and yields exactly one proposal.
type PaymentRecord struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date,omitempty"`
	Reference string          `json:"reference"`
}

// NewPaymentRecord creates a new PaymentRecord instance
func NewPaymentRecord(amount decimal.Decimal, date, reference string) *PaymentRecord {
	return &PaymentRecord{
		Amount:    amount,
		Date:      date,
		Reference: reference,
	}
}

// String returns a string representation of the PaymentRecord
func (p *PaymentRecord) String() string {
	return fmt.Sprintf("Payment{Amount: %s, Ref: %s}", p.Amount.String(), p.Reference)
}

// MatchReasons is the per-criterion breakdown behind a candidate score.
type MatchReasons struct {
	InvoiceNoMatch float64 `json:"invoice_no_match"`
	AmountScore    float64 `json:"amount_score"`
	DetailsScore   float64 `json:"details_score"`
}

// Candidate is an ephemeral scoring result pairing one payment with one
// invoice. It exists only while a single payment is being evaluated.
// InvoiceIndex is the invoice's position in the run's eligible pool.
type Candidate struct {
	Invoice      *InvoiceRecord `json:"invoice"`
	InvoiceIndex int            `json:"-"`
	Score        float64        `json:"score"`
	Reasons      MatchReasons   `json:"reasons"`
}

// MatchType tags the shape of a Proposal.
type MatchType string

const (
	// MatchSingle is a one-payment-to-one-invoice proposal.
	MatchSingle MatchType = "single"
	// MatchCombined is one payment settling several invoices at once.
	MatchCombined MatchType = "combined"
	// MatchCandidates is a ranked shortlist for human adjudication; the
	// payment stays unmatched and its invoices stay eligible.
	MatchCandidates MatchType = "candidates"
)

// IsValid checks if the match type is one of the three known shapes
func (mt MatchType) IsValid() bool {
	return mt == MatchSingle || mt == MatchCombined || mt == MatchCandidates
}

// Allocation assigns part of a combined payment to one invoice.
type Allocation struct {
	Invoice   *InvoiceRecord  `json:"invoice"`
	Allocated decimal.Decimal `json:"allocated"`
}

// Proposal is the output unit of the match engine: exactly one per payment.
// The populated fields depend on MatchType:
//
//	single     -> Invoice, Score, Reasons
//	combined   -> Allocations, Score
//	candidates -> Candidates (up to 5, ranked)
type Proposal struct {
	Payment     *PaymentRecord `json:"payment"`
	MatchType   MatchType      `json:"match_type"`
	Invoice     *InvoiceRecord `json:"invoice,omitempty"`
	Score       float64        `json:"score,omitempty"`
	Reasons     *MatchReasons  `json:"reasons,omitempty"`
	Allocations []Allocation   `json:"allocations,omitempty"`
	Candidates  []*Candidate   `json:"candidates,omitempty"`
}

// NewSingleProposal builds a single-invoice proposal from an accepted candidate.
func NewSingleProposal(payment *PaymentRecord, cand *Candidate) *Proposal {
	reasons := cand.Reasons
	return &Proposal{
		Payment:   payment,
		MatchType: MatchSingle,
		Invoice:   cand.Invoice,
		Score:     cand.Score,
		Reasons:   &reasons,
	}
}

// NewCombinedProposal builds a multi-invoice proposal.
func NewCombinedProposal(payment *PaymentRecord, allocations []Allocation, score float64) *Proposal {
	return &Proposal{
		Payment:     payment,
		MatchType:   MatchCombined,
		Allocations: allocations,
		Score:       score,
	}
}

// NewCandidatesProposal builds a shortlist proposal for manual review.
func NewCandidatesProposal(payment *PaymentRecord, candidates []*Candidate) *Proposal {
	return &Proposal{
		Payment:    payment,
		MatchType:  MatchCandidates,
		Candidates: candidates,
	}
}

// Validate checks the proposal's shape against its match type
func (p *Proposal) Validate() error {
	if p.Payment == nil {
		return fmt.Errorf("proposal must reference a payment")
	}
	if !p.MatchType.IsValid() {
		return fmt.Errorf("invalid match type: %s", p.MatchType)
	}

	switch p.MatchType {
	case MatchSingle:
		if p.Invoice == nil {
			return fmt.Errorf("single proposal must reference an invoice")
		}
	case MatchCombined:
		if len(p.Allocations) < 2 {
			return fmt.Errorf("combined proposal must allocate at least 2 invoices, got %d", len(p.Allocations))
		}
	}

	if p.Score < 0.0 || p.Score > 1.0 {
		return fmt.Errorf("proposal score out of range [0,1]: %f", p.Score)
	}

	return nil
}

// AllocatedTotal returns the sum of the allocated amounts for a combined
// proposal, decimal.Zero for other shapes.
func (p *Proposal) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Allocated)
	}
	return total
}

// CoerceAmount parses a monetary amount from free-form text, degrading to
// zero on malformed input. Currency symbols and thousand separators common
// in exported ledgers are stripped first.
func CoerceAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "$₹ ")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CoerceQuantity parses a quantity, degrading to 1 on malformed or missing input.
func CoerceQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NewFromInt(1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

// InvoiceTotal computes a line total as round(qty * unitPrice, 2).
func InvoiceTotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Round(2)
}
