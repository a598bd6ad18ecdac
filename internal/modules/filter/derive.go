package filter

import (
	"context"

	"github.com/hqdash/runtime/pkg/dataset"
)

// DeriveCostsModule adds COSTS = REVENUES - PROFIT to every row.
//
// Rows keep their order. A row missing either input keeps COSTS missing.
type DeriveCostsModule struct{}

// NewDeriveCosts creates the COSTS derivation module.
func NewDeriveCosts() *DeriveCostsModule {
	return &DeriveCostsModule{}
}

// Process implements Module.
func (m *DeriveCostsModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table.Map(DeriveCosts), nil
}

// DeriveCosts returns c with COSTS computed from REVENUES and PROFIT.
func DeriveCosts(c dataset.Company) dataset.Company {
	revenues, okR := c.Number(dataset.ColRevenues)
	profit, okP := c.Number(dataset.ColProfit)
	if !okR || !okP {
		c.Missing = c.Missing.With(dataset.ColCosts)
		return c
	}
	c.Costs = revenues.Sub(profit)
	c.Missing = c.Missing.Without(dataset.ColCosts)
	return c
}
