package parsers

import (
	"context"
	"io"

	"ca-recon-service/internal/models"
	"ca-recon-service/pkg/errors"
	"ca-recon-service/pkg/logger"
)

// PaymentInput is one in-memory payment record as submitted by a caller
// (for example the HTTP command router). Field fallbacks mirror the CSV
// header aliases: Amt backs Amount, Details backs Reference.
type PaymentInput struct {
	Amount    string `json:"amount"`
	Amt       string `json:"amt,omitempty"`
	Date      string `json:"date,omitempty"`
	Reference string `json:"reference,omitempty"`
	Details   string `json:"details,omitempty"`
}

// PaymentParser reads bank payment lists from CSV files or in-memory records.
type PaymentParser struct {
	*BaseParser
	config *PaymentParserConfig
	logger logger.Logger
}

// NewPaymentParser creates a new PaymentParser with the given configuration
func NewPaymentParser(config *PaymentParserConfig) (*PaymentParser, error) {
	if config == nil {
		config = DefaultPaymentParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"payment_parser_config",
			config,
			err,
		).WithSuggestion("Check the payment parser column aliases")
	}

	parseConfig := DefaultParseConfig()
	parseConfig.HasHeader = config.HasHeader

	return &PaymentParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("payment_parser"),
	}, nil
}

// ResolvePayments resolves the payment source with the documented
// precedence: an explicit in-memory list wins, else the payments file,
// else an empty list (the "nothing to reconcile" state).
func (pp *PaymentParser) ResolvePayments(ctx context.Context, inline []PaymentInput, filePath string) ([]*models.PaymentRecord, *ParseStats, error) {
	if len(inline) > 0 {
		return pp.BuildPayments(inline), NewParseStats(), nil
	}
	return pp.ParsePaymentsWithContext(ctx, filePath)
}

// BuildPayments converts in-memory payment inputs into payment records.
// Malformed amounts degrade to zero.
func (pp *PaymentParser) BuildPayments(inputs []PaymentInput) []*models.PaymentRecord {
	payments := make([]*models.PaymentRecord, 0, len(inputs))
	for _, in := range inputs {
		amount := in.Amount
		if amount == "" {
			amount = in.Amt
		}
		reference := in.Reference
		if reference == "" {
			reference = in.Details
		}
		payments = append(payments, models.NewPaymentRecord(models.CoerceAmount(amount), in.Date, reference))
	}
	return payments
}

// ParsePayments parses a payments CSV. A missing file yields an empty slice.
func (pp *PaymentParser) ParsePayments(filePath string) ([]*models.PaymentRecord, *ParseStats, error) {
	return pp.ParsePaymentsWithContext(context.Background(), filePath)
}

// ParsePaymentsWithContext parses payments with cancellation support
func (pp *PaymentParser) ParsePaymentsWithContext(ctx context.Context, filePath string) ([]*models.PaymentRecord, *ParseStats, error) {
	stats := NewParseStats()
	payments := make([]*models.PaymentRecord, 0)

	file, reader, err := pp.OpenOptional(filePath)
	if err != nil {
		return nil, stats, err
	}
	if file == nil {
		return payments, stats, nil
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	if err := pp.ReadHeaders(reader, parseCtx); err != nil {
		if err == io.EOF {
			return payments, stats, nil
		}
		return payments, stats, errors.ParseError(
			errors.CodeInvalidFormat, filePath, parseCtx.LineNumber, "headers", "", err,
		).WithSuggestion("Check that the payments list is a valid CSV file")
	}

	for {
		record, err := pp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if recErr, ok := errors.AsReconcilerError(err); ok && recErr.Category == errors.CategoryInternal {
				return payments, stats, err // cancelled
			}

			pp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Skipping malformed payment row")
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "failed to read payment row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		payments = append(payments, models.NewPaymentRecord(
			models.CoerceAmount(pp.FieldValue(record, parseCtx, pp.config.AmountColumns...)),
			pp.FieldValue(record, parseCtx, pp.config.DateColumns...),
			pp.FieldValue(record, parseCtx, pp.config.ReferenceColumns...),
		))
	}

	stats.TotalLines = parseCtx.LineNumber

	pp.logger.WithFields(logger.Fields{
		"file_path":   filePath,
		"payments":    len(payments),
		"error_count": len(stats.Errors),
	}).Info("Payment parsing completed")

	return payments, stats, nil
}
