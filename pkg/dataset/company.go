package dataset

import (
	"github.com/shopspring/decimal"
)

// Company is one row of the headquarters dataset.
//
// Missing records which columns were blank or unparsable in the source. A column in
// Missing holds its zero value and must not be read as data.
type Company struct {
	Rank      int             `json:"rank"`
	Name      string          `json:"name"`
	State     string          `json:"state"`
	County    string          `json:"county"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Employees int64           `json:"employees"`
	Revenues  decimal.Decimal `json:"revenues"`
	Profit    decimal.Decimal `json:"profit"`
	Costs     decimal.Decimal `json:"costs"`
	Missing   ColumnSet       `json:"-"`
}

// Complete reports whether every column holds a value.
func (c Company) Complete() bool {
	return c.Missing.Empty()
}

// Text returns the value of a string column.
// ok is false for numeric columns and for missing values.
func (c Company) Text(col Column) (string, bool) {
	if c.Missing.Has(col) {
		return "", false
	}
	switch col {
	case ColName:
		return c.Name, true
	case ColState:
		return c.State, true
	case ColCounty:
		return c.County, true
	default:
		return "", false
	}
}

// Number returns the value of a numeric column as an exact decimal.
// ok is false for string columns and for missing values.
func (c Company) Number(col Column) (decimal.Decimal, bool) {
	if c.Missing.Has(col) {
		return decimal.Zero, false
	}
	switch col {
	case ColRank:
		return decimal.NewFromInt(int64(c.Rank)), true
	case ColLatitude:
		return decimal.NewFromFloat(c.Latitude), true
	case ColLongitude:
		return decimal.NewFromFloat(c.Longitude), true
	case ColEmployees:
		return decimal.NewFromInt(c.Employees), true
	case ColRevenues:
		return c.Revenues, true
	case ColProfit:
		return c.Profit, true
	case ColCosts:
		return c.Costs, true
	default:
		return decimal.Zero, false
	}
}

// Fields returns the record as a map keyed by column name, suitable as an expression
// environment. Currency columns are float64, counts are int, missing columns are nil.
func (c Company) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		string(ColRank):      c.Rank,
		string(ColName):      c.Name,
		string(ColState):     c.State,
		string(ColCounty):    c.County,
		string(ColLatitude):  c.Latitude,
		string(ColLongitude): c.Longitude,
		string(ColEmployees): int(c.Employees),
		string(ColRevenues):  c.Revenues.InexactFloat64(),
		string(ColProfit):    c.Profit.InexactFloat64(),
		string(ColCosts):     c.Costs.InexactFloat64(),
	}
	for _, col := range c.Missing.Columns() {
		fields[string(col)] = nil
	}
	return fields
}
