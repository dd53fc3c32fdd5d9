package parsers

import "fmt"

// LedgerParserConfig controls how invoice ledgers are read. Column fields
// list accepted header spellings in fallback order; exports from different
// accounting packages disagree on these names.
type LedgerParserConfig struct {
	HasHeader bool `json:"has_header"`

	InvoiceNoColumns []string `json:"invoice_no_columns"`
	DateColumns      []string `json:"date_columns"`
	DetailsColumns   []string `json:"details_columns"`
	QtyColumns       []string `json:"qty_columns"`
	UnitPriceColumns []string `json:"unit_price_columns"`
}

// DefaultLedgerParserConfig returns the header aliases seen in CA ledger exports
func DefaultLedgerParserConfig() *LedgerParserConfig {
	return &LedgerParserConfig{
		HasHeader:        true,
		InvoiceNoColumns: []string{"invoice_no", "inv_no"},
		DateColumns:      []string{"invoice_date", "date"},
		DetailsColumns:   []string{"details", "item_name"},
		QtyColumns:       []string{"qty"},
		UnitPriceColumns: []string{"unit_price", "invoice_value"},
	}
}

// Validate checks if the ledger parser configuration is usable
func (c *LedgerParserConfig) Validate() error {
	if len(c.InvoiceNoColumns) == 0 {
		return fmt.Errorf("at least one invoice number column alias is required")
	}
	if len(c.DetailsColumns) == 0 {
		return fmt.Errorf("at least one details column alias is required")
	}
	if len(c.UnitPriceColumns) == 0 {
		return fmt.Errorf("at least one unit price column alias is required")
	}
	return nil
}

// PaymentParserConfig controls how payment lists are read.
type PaymentParserConfig struct {
	HasHeader bool `json:"has_header"`

	AmountColumns    []string `json:"amount_columns"`
	DateColumns      []string `json:"date_columns"`
	ReferenceColumns []string `json:"reference_columns"`
}

// DefaultPaymentParserConfig returns the header aliases seen in bank exports
func DefaultPaymentParserConfig() *PaymentParserConfig {
	return &PaymentParserConfig{
		HasHeader:        true,
		AmountColumns:    []string{"amount", "amt"},
		DateColumns:      []string{"date"},
		ReferenceColumns: []string{"reference", "details"},
	}
}

// Validate checks if the payment parser configuration is usable
func (c *PaymentParserConfig) Validate() error {
	if len(c.AmountColumns) == 0 {
		return fmt.Errorf("at least one amount column alias is required")
	}
	if len(c.ReferenceColumns) == 0 {
		return fmt.Errorf("at least one reference column alias is required")
	}
	return nil
}
