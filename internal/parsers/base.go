// Package parsers loads tabular reconciliation inputs.
//
// Two concrete parsers sit on a shared base:
//   - LedgerParser: invoice ledgers exported as CSV
//   - PaymentParser: bank payment lists, either CSV files or in-memory records
//
// Real-world exports are messy, so both parsers accept alternate header
// spellings and coerce malformed numeric fields to safe defaults instead of
// failing the run. A source file that simply does not exist yields an empty
// dataset; only genuine I/O failure on an existing file is an error.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"ca-recon-service/pkg/errors"
	"ca-recon-service/pkg/logger"
)

// ParseError represents an error that occurred during CSV parsing
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds configuration for CSV parsing
type ParseConfig struct {
	HasHeader     bool
	Delimiter     rune
	SkipEmptyRows bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:     true,
		Delimiter:     ',',
		SkipEmptyRows: true,
	}
}

// BaseParser provides common CSV parsing functionality
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// ParseContext holds state during a parsing operation
type ParseContext struct {
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a new parsing context
func NewParseContext(ctx context.Context) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled checks if the parsing context has been cancelled
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// ColumnIndex returns the index of the first header matching any of the
// given aliases (case-insensitive), or -1 if none is present. Alias order
// is the fallback order: the first alias that resolves wins.
func (pc *ParseContext) ColumnIndex(aliases ...string) int {
	for _, alias := range aliases {
		lower := strings.ToLower(alias)
		if index, exists := pc.HeaderMap[lower]; exists {
			return index
		}
	}
	return -1
}

// OpenOptional opens a CSV source that is allowed to be absent. A missing
// file returns (nil, nil, nil); callers treat that as an empty dataset. Any
// other open failure is a fatal file error.
func (bp *BaseParser) OpenOptional(filePath string) (*os.File, *csv.Reader, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, nil, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			bp.logger.WithField("file_path", filePath).Debug("Source file absent, treating as empty dataset")
			return nil, nil, nil
		}

		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open source file")
		return nil, nil, errors.FileError(errors.CodeFileUnreadable, filePath, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// ReadHeaders reads the header row and builds the header lookup map
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext) error {
	if !bp.config.HasHeader {
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		// An empty file has nothing to reconcile; not a fault.
		bp.logger.WithError(err).Debug("No header row, treating file as empty")
		return err
	}

	parseCtx.LineNumber++
	parseCtx.Headers = make([]string, len(headers))
	for i, header := range headers {
		cleaned := strings.TrimSpace(header)
		parseCtx.Headers[i] = cleaned
		parseCtx.HeaderMap[strings.ToLower(cleaned)] = i
	}

	return nil
}

// ReadRecord reads the next non-empty CSV record
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		if parseCtx.IsCancelled() {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "csv_parsing",
				fmt.Errorf("parsing cancelled by context"))
		}

		record, err := reader.Read()
		if err != nil {
			return nil, err
		}

		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// FieldValue returns the trimmed value for the first resolvable alias, or
// "" when no alias column exists or the record is short.
func (bp *BaseParser) FieldValue(record []string, parseCtx *ParseContext, aliases ...string) string {
	index := parseCtx.ColumnIndex(aliases...)
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	Errors        []*ParseError
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{Errors: make([]*ParseError, 0)}
}

// AddError adds an error to the parsing statistics
func (ps *ParseStats) AddError(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
}

// HasErrors returns true if there were any parsing errors
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records, %d errors",
		ps.TotalLines, ps.RecordsParsed, len(ps.Errors))
}
