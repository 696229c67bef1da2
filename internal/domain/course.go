package domain

import "github.com/shopspring/decimal"

// Course is owned by the catalog; checkout only reads it.
type Course struct {
	ID           int64
	Title        string
	Description  string
	InstructorID int64
	Price        decimal.Decimal
	IsApproved   bool
}

func (c *Course) IsFree() bool {
	return !c.Price.IsPositive()
}
