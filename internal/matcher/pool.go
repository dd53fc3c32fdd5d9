package matcher

import "ca-recon-service/internal/models"

// invoicePool is the working set of one reconciliation run: the loaded
// invoices plus a consumption flag per index. An invoice accepted into a
// single or combined proposal is consumed and never offered to a later
// payment in the same run. Pools are never shared across runs.
type invoicePool struct {
	invoices []*models.InvoiceRecord
	consumed []bool
	eligible int
}

func newInvoicePool(invoices []*models.InvoiceRecord) *invoicePool {
	return &invoicePool{
		invoices: invoices,
		consumed: make([]bool, len(invoices)),
		eligible: len(invoices),
	}
}

// eachEligible visits every unconsumed invoice in input order.
func (p *invoicePool) eachEligible(visit func(index int, invoice *models.InvoiceRecord)) {
	for i, inv := range p.invoices {
		if !p.consumed[i] {
			visit(i, inv)
		}
	}
}

// consume removes an invoice from the eligible set. Consuming twice is a
// programming error upstream and is ignored here.
func (p *invoicePool) consume(index int) {
	if index < 0 || index >= len(p.consumed) || p.consumed[index] {
		return
	}
	p.consumed[index] = true
	p.eligible--
}

func (p *invoicePool) eligibleCount() int {
	return p.eligible
}
