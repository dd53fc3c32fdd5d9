package parsers

import (
	"context"
	"io"

	"ca-recon-service/internal/models"
	"ca-recon-service/pkg/errors"
	"ca-recon-service/pkg/logger"
)

// LedgerParser reads invoice ledgers exported as CSV.
type LedgerParser struct {
	*BaseParser
	config *LedgerParserConfig
	logger logger.Logger
}

// NewLedgerParser creates a new LedgerParser with the given configuration
func NewLedgerParser(config *LedgerParserConfig) (*LedgerParser, error) {
	if config == nil {
		config = DefaultLedgerParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"ledger_parser_config",
			config,
			err,
		).WithSuggestion("Check the ledger parser column aliases")
	}

	parseConfig := DefaultParseConfig()
	parseConfig.HasHeader = config.HasHeader

	return &LedgerParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("ledger_parser"),
	}, nil
}

// ParseLedger parses a ledger CSV into invoice records. A missing file
// yields an empty slice; downstream matching tolerates zero invoices.
func (lp *LedgerParser) ParseLedger(filePath string) ([]*models.InvoiceRecord, *ParseStats, error) {
	return lp.ParseLedgerWithContext(context.Background(), filePath)
}

// ParseLedgerWithContext parses a ledger with cancellation support
func (lp *LedgerParser) ParseLedgerWithContext(ctx context.Context, filePath string) ([]*models.InvoiceRecord, *ParseStats, error) {
	stats := NewParseStats()
	invoices := make([]*models.InvoiceRecord, 0)

	file, reader, err := lp.OpenOptional(filePath)
	if err != nil {
		return nil, stats, err
	}
	if file == nil {
		lp.logger.WithField("file_path", filePath).Info("Ledger file absent, continuing with empty invoice list")
		return invoices, stats, nil
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	if err := lp.ReadHeaders(reader, parseCtx); err != nil {
		if err == io.EOF {
			return invoices, stats, nil
		}
		return invoices, stats, errors.ParseError(
			errors.CodeInvalidFormat, filePath, parseCtx.LineNumber, "headers", "", err,
		).WithSuggestion("Check that the ledger is a valid CSV file")
	}

	for {
		record, err := lp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			if recErr, ok := errors.AsReconcilerError(err); ok && recErr.Category == errors.CategoryInternal {
				return invoices, stats, err // cancelled
			}

			lp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Skipping malformed ledger row")
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "failed to read ledger row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++
		invoices = append(invoices, lp.invoiceFromRecord(record, parseCtx))
	}

	stats.TotalLines = parseCtx.LineNumber

	lp.logger.WithFields(logger.Fields{
		"file_path":   filePath,
		"total_lines": stats.TotalLines,
		"invoices":    len(invoices),
		"error_count": len(stats.Errors),
	}).Info("Ledger parsing completed")

	return invoices, stats, nil
}

// invoiceFromRecord builds an InvoiceRecord from a CSV row. Numeric fields
// degrade to defaults (qty 1, unit price 0) rather than failing the row.
func (lp *LedgerParser) invoiceFromRecord(record []string, parseCtx *ParseContext) *models.InvoiceRecord {
	qty := models.CoerceQuantity(lp.FieldValue(record, parseCtx, lp.config.QtyColumns...))
	unit := models.CoerceAmount(lp.FieldValue(record, parseCtx, lp.config.UnitPriceColumns...))

	return models.NewInvoiceRecord(
		lp.FieldValue(record, parseCtx, lp.config.InvoiceNoColumns...),
		lp.FieldValue(record, parseCtx, lp.config.DateColumns...),
		lp.FieldValue(record, parseCtx, lp.config.DetailsColumns...),
		models.InvoiceTotal(qty, unit),
	)
}
