package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceOrderAggregate is the grouped form of every source row sharing an
// order id. Order-level fields come from the first row seen for the order;
// later rows only contribute line items.
type ServiceOrderAggregate struct {
	OrderID         string
	DateStart       time.Time
	DateEnd         time.Time
	SupervisorName  string
	ZoneName        string
	SectorName      string
	Comuna          string
	SectorArea      decimal.Decimal
	PabellonTotal   int
	PabellonCleaned int
	Ticket          string
	Status          Status
	Observation     string
	Lines           []LineItem
}

// LineItem is one pabellon/machine/operator/damage combination of an order.
type LineItem struct {
	// Row is the zero-based position of the originating row in the extraction.
	Row             int
	PabellonNumber  int
	MachineSourceID int64
	MachineNumber   int
	OperatorName    string
	OdometerStart   decimal.Decimal
	OdometerEnd     decimal.Decimal
	FuelLiters      decimal.Decimal
	Damage          *Damage
}

// Damage is the optional damage record attached to a line item.
type Damage struct {
	Type        string
	Description string
	Quantity    int
	Observation string
}

// MalformedRow is a source row that could not be placed in an aggregate.
type MalformedRow struct {
	Row     int    `json:"row"`
	OrderID string `json:"order_id,omitempty"`
	Reason  string `json:"reason"`
}
