package repository

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// amountList stores preset donation amounts as a postgres numeric array.
// Other dialects fall back to the text form of the same array literal.
type amountList []float64

func (a amountList) Value() (driver.Value, error) {
	return pq.Float64Array(a).Value()
}

func (a *amountList) Scan(src any) error {
	return (*pq.Float64Array)(a).Scan(src)
}

func (amountList) GormDataType() string {
	return "amount_list"
}

func (amountList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(12,2)[]"
	}
	return "text"
}

func toAmountList(in []decimal.Decimal) amountList {
	if len(in) == 0 {
		return amountList{}
	}
	out := make(amountList, len(in))
	for i, v := range in {
		out[i] = v.InexactFloat64()
	}
	return out
}

func fromAmountList(in amountList) []decimal.Decimal {
	out := make([]decimal.Decimal, len(in))
	for i, v := range in {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
