package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ca-recon-service/cmd/reconciler/config"
	"ca-recon-service/internal/reconciler"
	"ca-recon-service/internal/reporter"
)

// Flags for the match command
var (
	ledgerFile   string
	paymentsFile string
	outputFormat string
	outputFile   string
	profile      string

	autoAcceptThreshold  float64
	substringThreshold   float64
	combinationThreshold float64
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match bank payments against sales ledger invoices",
	Long: `Match loads a sales ledger and a list of bank payments, then proposes
a settlement for every payment: a single invoice, a combination of invoices
summing to the payment, or a shortlist of candidates for manual review.

A missing ledger or payments file is treated as an empty dataset, not an
error; only files that exist but cannot be read abort the run.

Examples:
  # Basic reconciliation to the console
  reconciler match --ledger sales.csv --payments-file bank.csv

  # JSON report written to a file
  reconciler match --ledger sales.csv --payments-file bank.csv \
    --output-format json --output-file report.json

  # Stricter acceptance thresholds
  reconciler match --ledger sales.csv --payments-file bank.csv --profile strict

  # Override a single threshold
  reconciler match --ledger sales.csv --payments-file bank.csv \
    --auto-accept-threshold 0.85`,

	PreRunE: validateMatchFlags,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	// Input flags
	matchCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to sales ledger CSV file")
	matchCmd.Flags().StringVarP(&paymentsFile, "payments-file", "p", "", "path to bank payments CSV file")

	// Output flags
	matchCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	matchCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	matchCmd.Flags().StringVar(&profile, "profile", "default", "matching profile: default, strict, relaxed")
	matchCmd.Flags().Float64Var(&autoAcceptThreshold, "auto-accept-threshold", -1, "override the single-match auto-accept threshold (0.0-1.0)")
	matchCmd.Flags().Float64Var(&substringThreshold, "substring-threshold", -1, "override the invoice-number substring threshold (0.0-1.0)")
	matchCmd.Flags().Float64Var(&combinationThreshold, "combination-threshold", -1, "override the approximate combination threshold (0.0-1.0)")

	viper.BindPFlag("ledger", matchCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("payments-file", matchCmd.Flags().Lookup("payments-file"))
	viper.BindPFlag("output-format", matchCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", matchCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("profile", matchCmd.Flags().Lookup("profile"))
}

func validateMatchFlags(cmd *cobra.Command, args []string) error {
	// Viper values allow overrides from the config file and environment
	ledgerFile = viper.GetString("ledger")
	paymentsFile = viper.GetString("payments-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	profile = viper.GetString("profile")

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	for name, value := range map[string]float64{
		"auto-accept-threshold": autoAcceptThreshold,
		"substring-threshold":   substringThreshold,
		"combination-threshold": combinationThreshold,
	} {
		if value > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0", name)
		}
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Payments file: %s\n", paymentsFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	matchConfig, err := config.CreateMatchConfig(profile, config.MatchOverrides{
		AutoAcceptThreshold:  autoAcceptThreshold,
		SubstringThreshold:   substringThreshold,
		CombinationThreshold: combinationThreshold,
	})
	if err != nil {
		return err
	}

	service, err := reconciler.NewReconciliationService(
		config.CreateLedgerParserConfig(),
		config.CreatePaymentParserConfig(),
		matchConfig,
		config.CreateReconcilerConfig(),
	)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	result, err := service.ProcessReconciliation(ctx, &reconciler.Request{
		LedgerFile:   ledgerFile,
		PaymentsFile: paymentsFile,
	})
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat))
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") && result.Summary != nil {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d invoices and %d payments.\n",
			result.Summary.TotalInvoices, result.Summary.TotalPayments)
		fmt.Fprintf(os.Stderr, "Found %d single matches, %d combined matches, %d needing review.\n",
			result.Summary.SingleMatches, result.Summary.CombinedMatches, result.Summary.NeedsReview)
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Summary.ProcessingDuration)
	}

	return nil
}
