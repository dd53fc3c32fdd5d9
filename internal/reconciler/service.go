// Package reconciler orchestrates a reconciliation run: resolve the ledger
// and payment inputs, hand them to the match engine, and shape the result
// for callers (CLI, HTTP, report generation).
package reconciler

import (
	"context"
	"time"

	"ca-recon-service/internal/matcher"
	"ca-recon-service/internal/models"
	"ca-recon-service/internal/parsers"
	"ca-recon-service/pkg/errors"
	"ca-recon-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// StatusSuccess is the status of every completed run. Degraded inputs
// (absent files, malformed numbers, unmatchable payments) surface through
// the result shape, not through an error status.
const StatusSuccess = "success"

// Config holds configuration options for the reconciliation service
type Config struct {
	// ValidateProposals re-checks every emitted proposal's shape
	ValidateProposals bool

	// IncludeSummary attaches aggregate statistics to the result
	IncludeSummary bool
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		ValidateProposals: true,
		IncludeSummary:    true,
	}
}

// Request describes one reconciliation run. Payments resolve with the
// documented precedence: the inline list wins over PaymentsFile; both empty
// means "nothing to reconcile". An absent LedgerFile yields zero invoices.
type Request struct {
	LedgerFile   string                 `json:"ledger"`
	Payments     []parsers.PaymentInput `json:"payments,omitempty"`
	PaymentsFile string                 `json:"payments_file,omitempty"`
}

// Result is the structured outcome of a run. With payments present it
// carries proposals plus the unmatched payment list; with no payments it
// reports the loaded invoices instead (Scenario: nothing to reconcile).
type Result struct {
	Status            string                  `json:"status"`
	Proposals         []*models.Proposal      `json:"proposals,omitempty"`
	UnmatchedPayments []*models.PaymentRecord `json:"unmatched_payments,omitempty"`
	InvoicesCount     int                     `json:"invoices_count,omitempty"`
	Invoices          []*models.InvoiceRecord `json:"invoices,omitempty"`
	Summary           *Summary                `json:"summary,omitempty"`
	ProcessedAt       time.Time               `json:"processed_at"`
}

// Summary provides aggregate statistics about one run
type Summary struct {
	TotalInvoices      int             `json:"total_invoices"`
	TotalPayments      int             `json:"total_payments"`
	SingleMatches      int             `json:"single_matches"`
	CombinedMatches    int             `json:"combined_matches"`
	NeedsReview        int             `json:"needs_review"`
	InvoicesConsumed   int             `json:"invoices_consumed"`
	AmountReconciled   decimal.Decimal `json:"amount_reconciled"`
	AmountUnreconciled decimal.Decimal `json:"amount_unreconciled"`
	ProcessingDuration time.Duration   `json:"processing_duration"`
}

// ReconciliationService wires the parsers and the match engine together
type ReconciliationService struct {
	ledgerParser  *parsers.LedgerParser
	paymentParser *parsers.PaymentParser
	engine        *matcher.MatchEngine
	config        *Config
	logger        logger.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	ledgerConfig *parsers.LedgerParserConfig,
	paymentConfig *parsers.PaymentParserConfig,
	matchConfig *matcher.MatchConfig,
	config *Config,
) (*ReconciliationService, error) {

	if config == nil {
		config = DefaultConfig()
	}

	ledgerParser, err := parsers.NewLedgerParser(ledgerConfig)
	if err != nil {
		return nil, err
	}

	paymentParser, err := parsers.NewPaymentParser(paymentConfig)
	if err != nil {
		return nil, err
	}

	if matchConfig != nil {
		if err := matchConfig.Validate(); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "match_config", matchConfig, err)
		}
	}

	return &ReconciliationService{
		ledgerParser:  ledgerParser,
		paymentParser: paymentParser,
		engine:        matcher.NewMatchEngine(matchConfig),
		config:        config,
		logger:        logger.GetGlobalLogger().WithComponent("reconciliation_service"),
	}, nil
}

// Engine exposes the underlying match engine (used by tests and the CLI to
// swap the similarity function).
func (rs *ReconciliationService) Engine() *matcher.MatchEngine {
	return rs.engine
}

// ProcessReconciliation performs one complete run. Each call builds an
// independent invoice working set; concurrent calls never share
// consumption state.
func (rs *ReconciliationService) ProcessReconciliation(ctx context.Context, request *Request) (*Result, error) {
	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", nil, nil)
	}

	started := time.Now()

	invoices, ledgerStats, err := rs.ledgerParser.ParseLedgerWithContext(ctx, request.LedgerFile)
	if err != nil {
		return nil, err
	}
	if ledgerStats.HasErrors() {
		rs.logger.WithField("error_count", len(ledgerStats.Errors)).Warn("Ledger parsed with row errors")
	}

	payments, _, err := rs.paymentParser.ResolvePayments(ctx, request.Payments, request.PaymentsFile)
	if err != nil {
		return nil, err
	}

	// Nothing to reconcile: report the loaded ledger instead of proposals.
	if len(payments) == 0 {
		rs.logger.WithField("invoices", len(invoices)).Info("No payments supplied, returning invoice listing")
		return &Result{
			Status:        StatusSuccess,
			InvoicesCount: len(invoices),
			Invoices:      invoices,
			ProcessedAt:   started,
		}, nil
	}

	run := rs.engine.Run(invoices, payments)

	if rs.config.ValidateProposals {
		for _, proposal := range run.Proposals {
			if err := proposal.Validate(); err != nil {
				return nil, errors.ReconciliationError(errors.CodeProcessingError, "proposal validation", err)
			}
		}
	}

	result := &Result{
		Status:            StatusSuccess,
		Proposals:         run.Proposals,
		UnmatchedPayments: run.UnmatchedPayments,
		ProcessedAt:       started,
	}

	if rs.config.IncludeSummary {
		result.Summary = buildSummary(invoices, payments, run, time.Since(started))
	}

	return result, nil
}

func buildSummary(invoices []*models.InvoiceRecord, payments []*models.PaymentRecord, run *matcher.RunResult, elapsed time.Duration) *Summary {
	summary := &Summary{
		TotalInvoices:      len(invoices),
		TotalPayments:      len(payments),
		AmountReconciled:   decimal.Zero,
		AmountUnreconciled: decimal.Zero,
		ProcessingDuration: elapsed,
	}

	for _, proposal := range run.Proposals {
		switch proposal.MatchType {
		case models.MatchSingle:
			summary.SingleMatches++
			summary.InvoicesConsumed++
			summary.AmountReconciled = summary.AmountReconciled.Add(proposal.Payment.Amount)
		case models.MatchCombined:
			summary.CombinedMatches++
			summary.InvoicesConsumed += len(proposal.Allocations)
			summary.AmountReconciled = summary.AmountReconciled.Add(proposal.Payment.Amount)
		case models.MatchCandidates:
			summary.NeedsReview++
			summary.AmountUnreconciled = summary.AmountUnreconciled.Add(proposal.Payment.Amount)
		}
	}

	return summary
}
