package model

// EntityKind names one of the five entity kinds resolved by natural key.
type EntityKind string

const (
	KindSupervisor EntityKind = "supervisor"
	KindZone       EntityKind = "zone"
	KindSector     EntityKind = "sector"
	KindMachine    EntityKind = "machine"
	KindOperator   EntityKind = "operator"
)

// EntityKinds lists every kind in resolution order. Reports iterate this
// slice so their output is stable.
var EntityKinds = []EntityKind{
	KindSupervisor,
	KindZone,
	KindSector,
	KindMachine,
	KindOperator,
}
