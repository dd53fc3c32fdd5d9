// Package config builds the component configurations used by the CLI
// commands, applying profile selection and flag overrides on top of the
// library defaults.
package config

import (
	"fmt"

	"ca-recon-service/internal/matcher"
	"ca-recon-service/internal/parsers"
	"ca-recon-service/internal/reconciler"
	"ca-recon-service/internal/reporter"
)

// CreateLedgerParserConfig creates the default sales ledger parser configuration
func CreateLedgerParserConfig() *parsers.LedgerParserConfig {
	return parsers.DefaultLedgerParserConfig()
}

// CreatePaymentParserConfig creates the default payment parser configuration
func CreatePaymentParserConfig() *parsers.PaymentParserConfig {
	return parsers.DefaultPaymentParserConfig()
}

// MatchOverrides carries the CLI threshold overrides. Negative values mean
// "keep the profile value".
type MatchOverrides struct {
	AutoAcceptThreshold  float64
	SubstringThreshold   float64
	CombinationThreshold float64
}

// CreateMatchConfig builds a match configuration from a named profile plus
// any flag overrides
func CreateMatchConfig(profile string, overrides MatchOverrides) (*matcher.MatchConfig, error) {
	var config *matcher.MatchConfig

	switch profile {
	case "", "default":
		config = matcher.DefaultMatchConfig()
	case "strict":
		config = matcher.StrictMatchConfig()
	case "relaxed":
		config = matcher.RelaxedMatchConfig()
	default:
		return nil, fmt.Errorf("unknown matching profile '%s'. Valid profiles: default, strict, relaxed", profile)
	}

	if overrides.AutoAcceptThreshold >= 0 {
		config.AutoAcceptThreshold = overrides.AutoAcceptThreshold
	}
	if overrides.SubstringThreshold >= 0 {
		config.SubstringThreshold = overrides.SubstringThreshold
	}
	if overrides.CombinationThreshold >= 0 {
		config.CombinationThreshold = overrides.CombinationThreshold
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateReconcilerConfig creates a reconciliation service configuration
func CreateReconcilerConfig() *reconciler.Config {
	config := reconciler.DefaultConfig()
	config.ValidateProposals = true
	config.IncludeSummary = true
	return config
}

// CreateReportConfig creates a report configuration for the given output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
	default:
		config.Format = reporter.FormatConsole
		config.IncludeCandidates = true
	}

	return config
}
