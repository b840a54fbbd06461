package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/osmigrate/internal/model"
)

// RoleSupervisor marks people who supervise service orders.
const RoleSupervisor = "supervisor"

// Person is a row of the people table.
type Person struct {
	ID      int64
	Name    string
	NameKey string
	Email   string
	Role    string
}

// Zone is a row of the zones table.
type Zone struct {
	ID      int64
	Name    string
	NameKey string
	Type    string
}

// Sector is a row of the sectors table. ZoneID is zero when the sector has
// no zone link.
type Sector struct {
	ID            int64
	Name          string
	NameKey       string
	ZoneID        int64
	Comuna        string
	Area          decimal.Decimal
	PabellonCount int
}

// Machine is a row of the machines table.
type Machine struct {
	ID     int64
	Number int
	Plate  string
	Brand  string
	Model  string
}

// Operator is a row of the operators table.
type Operator struct {
	ID        int64
	FirstName string
	LastName  string
}

// ServiceOrder is the persisted parent record of a migrated aggregate.
type ServiceOrder struct {
	ID              int64
	SourceOrderID   string
	DateStart       time.Time
	DateEnd         time.Time
	SupervisorID    int64
	ZoneID          int64
	SectorID        int64
	Area            decimal.Decimal
	PabellonTotal   int
	PabellonCleaned int
	Ticket          string
	Status          model.Status
	Observation     string
	RunID           string
}

// ServiceOrderLine is one persisted line item of a service order.
type ServiceOrderLine struct {
	ID             int64
	ServiceOrderID int64
	SourceRow      int
	PabellonNumber int
	MachineID      int64
	OperatorID     int64
	OdometerStart  decimal.Decimal
	OdometerEnd    decimal.Decimal
	FuelLiters     decimal.Decimal
	Damage         *model.Damage
}

// Counts holds row counts per table.
type Counts struct {
	People            int `json:"people"`
	Zones             int `json:"zones"`
	Sectors           int `json:"sectors"`
	Machines          int `json:"machines"`
	Operators         int `json:"operators"`
	ServiceOrders     int `json:"service_orders"`
	ServiceOrderLines int `json:"service_order_lines"`
}
