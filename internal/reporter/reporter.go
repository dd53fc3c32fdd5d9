// Package reporter renders reconciliation run results.
//
// Supported output formats:
//   - Console: human-readable output for terminal review
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per proposal for spreadsheet review
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ca-recon-service/internal/models"
	"ca-recon-service/internal/reconciler"
	"ca-recon-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// ReportConfig controls report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeCandidates renders the review shortlists in console output
	IncludeCandidates bool `json:"include_candidates"`
}

// DefaultReportConfig returns a console report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeCandidates: true,
	}
}

// ReportGenerator renders run results into the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator for the given configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if !config.Format.IsValid() {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_format",
			config.Format,
			nil,
		).WithSuggestion("Use one of: console, json, csv")
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes the result to the output in the configured format
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, output io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		return rg.generateJSON(result, output)
	case FormatCSV:
		return rg.generateCSV(result, output)
	default:
		return rg.generateConsole(result, output)
	}
}

func (rg *ReportGenerator) generateJSON(result *reconciler.Result, output io.Writer) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "json report generation", err)
	}
	return nil
}

func (rg *ReportGenerator) generateConsole(result *reconciler.Result, output io.Writer) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")

	if len(result.Proposals) == 0 {
		fmt.Fprintf(&b, "No payments to reconcile. Invoices loaded: %d\n", result.InvoicesCount)
		_, err := output.Write([]byte(b.String()))
		return err
	}

	for i, proposal := range result.Proposals {
		fmt.Fprintf(&b, "\n[%d] Payment %s (%s)\n", i+1, proposal.Payment.Amount.String(), proposal.Payment.Reference)

		switch proposal.MatchType {
		case models.MatchSingle:
			fmt.Fprintf(&b, "    SINGLE  invoice %s  total %s  score %.3f\n",
				displayInvoiceNo(proposal.Invoice), proposal.Invoice.Total.String(), proposal.Score)
			if proposal.Reasons != nil {
				fmt.Fprintf(&b, "            inv_no %.1f  amount %.3f  details %.3f\n",
					proposal.Reasons.InvoiceNoMatch, proposal.Reasons.AmountScore, proposal.Reasons.DetailsScore)
			}
		case models.MatchCombined:
			fmt.Fprintf(&b, "    COMBINED  %d invoices  allocated %s  score %.3f\n",
				len(proposal.Allocations), proposal.AllocatedTotal().String(), proposal.Score)
			for _, alloc := range proposal.Allocations {
				fmt.Fprintf(&b, "            invoice %s  allocated %s\n",
					displayInvoiceNo(alloc.Invoice), alloc.Allocated.String())
			}
		case models.MatchCandidates:
			fmt.Fprintf(&b, "    NEEDS REVIEW  %d candidate(s)\n", len(proposal.Candidates))
			if rg.config.IncludeCandidates {
				for _, cand := range proposal.Candidates {
					fmt.Fprintf(&b, "            invoice %s  total %s  score %.3f\n",
						displayInvoiceNo(cand.Invoice), cand.Invoice.Total.String(), cand.Score)
				}
			}
		}
	}

	if result.Summary != nil {
		s := result.Summary
		b.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		fmt.Fprintf(&b, "Invoices: %d  Payments: %d\n", s.TotalInvoices, s.TotalPayments)
		fmt.Fprintf(&b, "Single: %d  Combined: %d  Needs review: %d\n",
			s.SingleMatches, s.CombinedMatches, s.NeedsReview)
		fmt.Fprintf(&b, "Amount reconciled: %s  Unreconciled: %s\n",
			s.AmountReconciled.String(), s.AmountUnreconciled.String())
	}

	_, err := output.Write([]byte(b.String()))
	return err
}

func (rg *ReportGenerator) generateCSV(result *reconciler.Result, output io.Writer) error {
	writer := csv.NewWriter(output)
	defer writer.Flush()

	header := []string{"payment_amount", "payment_reference", "match_type", "invoice_no", "allocated", "score"}
	if err := writer.Write(header); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "csv report generation", err)
	}

	for _, proposal := range result.Proposals {
		rows := proposalRows(proposal)
		for _, row := range rows {
			if err := writer.Write(row); err != nil {
				return errors.InternalError(errors.CodeUnexpectedError, "csv report generation", err)
			}
		}
	}

	return nil
}

// proposalRows flattens a proposal into CSV rows: one for a single match,
// one per allocation for a combined match, one per shortlisted candidate.
func proposalRows(proposal *models.Proposal) [][]string {
	amount := proposal.Payment.Amount.String()
	ref := proposal.Payment.Reference
	score := strconv.FormatFloat(proposal.Score, 'f', 3, 64)

	switch proposal.MatchType {
	case models.MatchSingle:
		return [][]string{{amount, ref, string(proposal.MatchType),
			proposal.Invoice.InvoiceNo, proposal.Invoice.Total.String(), score}}
	case models.MatchCombined:
		rows := make([][]string, 0, len(proposal.Allocations))
		for _, alloc := range proposal.Allocations {
			rows = append(rows, []string{amount, ref, string(proposal.MatchType),
				alloc.Invoice.InvoiceNo, alloc.Allocated.String(), score})
		}
		return rows
	default:
		if len(proposal.Candidates) == 0 {
			return [][]string{{amount, ref, string(proposal.MatchType), "", "", ""}}
		}
		rows := make([][]string, 0, len(proposal.Candidates))
		for _, cand := range proposal.Candidates {
			rows = append(rows, []string{amount, ref, string(proposal.MatchType),
				cand.Invoice.InvoiceNo, cand.Invoice.Total.String(),
				strconv.FormatFloat(cand.Score, 'f', 3, 64)})
		}
		return rows
	}
}

func displayInvoiceNo(invoice *models.InvoiceRecord) string {
	if invoice == nil || invoice.InvoiceNo == "" {
		return "(none)"
	}
	return invoice.InvoiceNo
}
