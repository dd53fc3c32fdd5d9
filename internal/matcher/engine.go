package matcher

import (
	"sort"
	"strings"

	"ca-recon-service/internal/models"
	"ca-recon-service/pkg/logger"
)

// MatchEngine proposes invoice settlements for bank payments. An engine is
// stateless between runs; all per-run state lives in the invoice pool
// created inside Run, so one engine may serve concurrent runs as long as
// each run gets its own invoice slice.
type MatchEngine struct {
	config     *MatchConfig
	similarity SimilarityFunc
	logger     logger.Logger
}

// RunResult is the outcome of one reconciliation run: exactly one proposal
// per payment, in payment input order, plus the payments that ended up in
// a candidates-only proposal.
type RunResult struct {
	Proposals         []*models.Proposal      `json:"proposals"`
	UnmatchedPayments []*models.PaymentRecord `json:"unmatched_payments"`
}

// NewMatchEngine creates a match engine with the given configuration.
// A nil config selects DefaultMatchConfig; the default similarity is
// TokenSortRatio.
func NewMatchEngine(config *MatchConfig) *MatchEngine {
	if config == nil {
		config = DefaultMatchConfig()
	}

	return &MatchEngine{
		config:     config,
		similarity: TokenSortRatio,
		logger:     logger.GetGlobalLogger().WithComponent("match_engine"),
	}
}

// SetSimilarity replaces the reference/details similarity function.
func (me *MatchEngine) SetSimilarity(fn SimilarityFunc) {
	if fn != nil {
		me.similarity = fn
	}
}

// Config returns a copy of the engine configuration
func (me *MatchEngine) Config() *MatchConfig {
	return me.config.Clone()
}

// Run reconciles payments against invoices. Payments are processed
// strictly in input order: an invoice consumed by payment N is not offered
// to payment N+1. The run is deterministic; scoring ties are broken by
// invoice input order.
func (me *MatchEngine) Run(invoices []*models.InvoiceRecord, payments []*models.PaymentRecord) *RunResult {
	pool := newInvoicePool(invoices)
	result := &RunResult{
		Proposals:         make([]*models.Proposal, 0, len(payments)),
		UnmatchedPayments: make([]*models.PaymentRecord, 0),
	}

	for _, payment := range payments {
		proposal := me.matchPayment(payment, pool)
		result.Proposals = append(result.Proposals, proposal)
		if proposal.MatchType == models.MatchCandidates {
			result.UnmatchedPayments = append(result.UnmatchedPayments, payment)
		}
	}

	me.logger.WithFields(logger.Fields{
		"invoices":  len(invoices),
		"payments":  len(payments),
		"unmatched": len(result.UnmatchedPayments),
	}).Info("Reconciliation run completed")

	return result
}

// matchPayment walks the acceptance ladder for one payment and returns its
// proposal, consuming invoices from the pool on acceptance.
func (me *MatchEngine) matchPayment(payment *models.PaymentRecord, pool *invoicePool) *models.Proposal {
	candidates := me.scoreCandidates(payment, pool)

	// Step 1: auto-accept a high-confidence top candidate.
	if len(candidates) > 0 && candidates[0].Score >= me.config.AutoAcceptThreshold {
		top := candidates[0]
		pool.consume(top.InvoiceIndex)
		me.logger.WithFields(logger.Fields{
			"payment":    payment.Reference,
			"invoice_no": top.Invoice.InvoiceNo,
			"score":      top.Score,
		}).Debug("Auto-accepted single match")
		return models.NewSingleProposal(payment, top)
	}

	// Step 2: first candidate whose invoice number appears verbatim in the
	// payment reference, above the lower threshold.
	for _, cand := range candidates {
		if cand.Invoice.InvoiceNo == "" || !strings.Contains(payment.Reference, cand.Invoice.InvoiceNo) {
			continue
		}
		if cand.Score >= me.config.SubstringThreshold {
			pool.consume(cand.InvoiceIndex)
			me.logger.WithFields(logger.Fields{
				"payment":    payment.Reference,
				"invoice_no": cand.Invoice.InvoiceNo,
				"score":      cand.Score,
			}).Debug("Accepted invoice-number substring match")
			return models.NewSingleProposal(payment, cand)
		}
		break
	}

	// Step 3: bounded combination search. Exact-tolerance hits are
	// accepted unconditionally; approximate combinations must clear the
	// combination threshold.
	if combo := me.findCombination(payment.Amount, candidates); combo != nil {
		if combo.Exact || combo.Score >= me.config.CombinationThreshold {
			for _, idx := range combo.Indices {
				pool.consume(idx)
			}
			me.logger.WithFields(logger.Fields{
				"payment":  payment.Reference,
				"invoices": len(combo.Allocations),
				"score":    combo.Score,
				"exact":    combo.Exact,
			}).Debug("Accepted combined match")
			return models.NewCombinedProposal(payment, combo.Allocations, combo.Score)
		}
	}

	// Step 4: shortlist for human adjudication. Nothing is consumed; these
	// invoices stay eligible for later payments.
	shortlist := candidates
	if len(shortlist) > me.config.MaxShortlist {
		shortlist = shortlist[:me.config.MaxShortlist]
	}
	return models.NewCandidatesProposal(payment, shortlist)
}

// scoreCandidates scores every eligible invoice against the payment and
// returns candidates sorted by combined score descending. The sort is
// stable so ties keep invoice input order, which makes runs reproducible.
func (me *MatchEngine) scoreCandidates(payment *models.PaymentRecord, pool *invoicePool) []*models.Candidate {
	candidates := make([]*models.Candidate, 0, pool.eligibleCount())

	pool.eachEligible(func(index int, invoice *models.InvoiceRecord) {
		candidates = append(candidates, me.scoreCandidate(payment, invoice, index))
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// scoreCandidate computes the weighted combined score for one pairing.
func (me *MatchEngine) scoreCandidate(payment *models.PaymentRecord, invoice *models.InvoiceRecord, index int) *models.Candidate {
	invoiceNoMatch := 0.0
	if invoice.InvoiceNo != "" && strings.Contains(payment.Reference, invoice.InvoiceNo) {
		invoiceNoMatch = 1.0
	}

	amountScore := AmountScore(invoice.Total, payment.Amount)
	detailsScore := me.similarity(payment.Reference, invoice.Details)

	weights := me.config.Weights
	combined := invoiceNoMatch*weights.InvoiceNoWeight +
		amountScore*weights.AmountWeight +
		detailsScore*weights.DetailsWeight

	return &models.Candidate{
		Invoice:      invoice,
		InvoiceIndex: index,
		Score:        round3(combined),
		Reasons: models.MatchReasons{
			InvoiceNoMatch: invoiceNoMatch,
			AmountScore:    round3(amountScore),
			DetailsScore:   round3(detailsScore),
		},
	}
}
