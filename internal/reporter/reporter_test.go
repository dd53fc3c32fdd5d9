package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ca-recon-service/internal/models"
	"ca-recon-service/internal/reconciler"
)

func sampleResult() *reconciler.Result {
	paymentA := models.NewPaymentRecord(decimal.NewFromInt(1000), "2024-02-01", "NEFT INV-001")
	paymentB := models.NewPaymentRecord(decimal.NewFromInt(1000), "2024-02-03", "bulk settlement")
	paymentC := models.NewPaymentRecord(decimal.NewFromInt(77), "2024-02-05", "unknown transfer")

	invA := models.NewInvoiceRecord("INV-001", "2024-01-10", "Consulting", decimal.NewFromInt(1000))
	invB := models.NewInvoiceRecord("INV-002", "2024-01-12", "Hosting", decimal.NewFromInt(600))
	invC := models.NewInvoiceRecord("INV-003", "2024-01-15", "Licenses", decimal.NewFromInt(400))

	return &reconciler.Result{
		Status: reconciler.StatusSuccess,
		Proposals: []*models.Proposal{
			models.NewSingleProposal(paymentA, &models.Candidate{
				Invoice: invA,
				Score:   0.95,
				Reasons: models.MatchReasons{InvoiceNoMatch: 1.0, AmountScore: 1.0, DetailsScore: 0.4},
			}),
			models.NewCombinedProposal(paymentB, []models.Allocation{
				{Invoice: invB, Allocated: invB.Total},
				{Invoice: invC, Allocated: invC.Total},
			}, 0.3),
			models.NewCandidatesProposal(paymentC, []*models.Candidate{
				{Invoice: invC, Score: 0.12},
			}),
		},
		UnmatchedPayments: []*models.PaymentRecord{paymentC},
		Summary: &reconciler.Summary{
			TotalInvoices:      3,
			TotalPayments:      3,
			SingleMatches:      1,
			CombinedMatches:    1,
			NeedsReview:        1,
			InvoicesConsumed:   3,
			AmountReconciled:   decimal.NewFromInt(2000),
			AmountUnreconciled: decimal.NewFromInt(77),
		},
		ProcessedAt: time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewReportGenerator(t *testing.T) {
	if _, err := NewReportGenerator(nil); err != nil {
		t.Errorf("Expected nil config to use defaults, got: %v", err)
	}

	if _, err := NewReportGenerator(&ReportConfig{Format: "xml"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestOutputFormatIsValid(t *testing.T) {
	for _, format := range []OutputFormat{FormatConsole, FormatJSON, FormatCSV} {
		if !format.IsValid() {
			t.Errorf("Expected %s to be valid", format)
		}
	}
	if OutputFormat("yaml").IsValid() {
		t.Error("Expected yaml to be invalid")
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"RECONCILIATION REPORT",
		"SINGLE",
		"COMBINED",
		"NEEDS REVIEW",
		"INV-001",
		"Single: 1  Combined: 1  Needs review: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected console output to contain %q\n%s", want, out)
		}
	}
}

func TestGenerateConsoleReportEmptyRun(t *testing.T) {
	generator, _ := NewReportGenerator(DefaultReportConfig())

	var buf bytes.Buffer
	err := generator.GenerateReport(&reconciler.Result{
		Status:        reconciler.StatusSuccess,
		InvoicesCount: 4,
	}, &buf)
	if err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}
	if !strings.Contains(buf.String(), "Invoices loaded: 4") {
		t.Errorf("Expected invoice count in empty-run output, got:\n%s", buf.String())
	}
}

func TestGenerateJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}

	var decoded reconciler.Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON output does not decode: %v", err)
	}
	if decoded.Status != reconciler.StatusSuccess {
		t.Errorf("Expected status preserved, got %q", decoded.Status)
	}
	if len(decoded.Proposals) != 3 {
		t.Errorf("Expected 3 proposals in JSON, got %d", len(decoded.Proposals))
	}
}

func TestGenerateCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatCSV})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV output does not parse: %v", err)
	}

	// Header + single + two combined allocations + one candidate row
	if len(rows) != 5 {
		t.Fatalf("Expected 5 CSV rows, got %d", len(rows))
	}
	if rows[0][0] != "payment_amount" {
		t.Errorf("Expected header row, got %v", rows[0])
	}
	if rows[1][2] != "single" || rows[1][3] != "INV-001" {
		t.Errorf("Unexpected single row: %v", rows[1])
	}
	if rows[2][2] != "combined" || rows[3][2] != "combined" {
		t.Errorf("Expected one row per combined allocation: %v / %v", rows[2], rows[3])
	}
	if rows[4][2] != "candidates" {
		t.Errorf("Expected candidates row, got %v", rows[4])
	}
}
