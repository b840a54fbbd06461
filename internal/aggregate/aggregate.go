// Package aggregate groups flat source rows into service order aggregates.
//
// Grouping is a single pass over the rows in extraction order. The first
// valid row seen for an order id fixes the order-level fields; every valid
// row contributes exactly one line item. Rows that cannot be placed are
// returned as MalformedRow values, never dropped silently.
package aggregate

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/normalize"
)

// Malformed row reasons.
const (
	ReasonMissingOrderID   = "missing order id"
	ReasonMissingStartDate = "missing start date"
	ReasonBadStartDate     = "unparseable start date"
)

// dateLayouts are tried in order when parsing source dates. They cover the
// text forms produced by the postgres, mysql and sqlite3 drivers.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02-01-2006",
}

// Group builds one aggregate per distinct order id. Output order is the
// first-seen order of order ids.
func Group(rows []model.SourceRow) ([]model.ServiceOrderAggregate, []model.MalformedRow) {
	var (
		aggs      []model.ServiceOrderAggregate
		malformed []model.MalformedRow
		index     = make(map[string]int)
	)

	for i, row := range rows {
		orderID := strings.TrimSpace(model.Text(row.OrderID))
		if orderID == "" {
			malformed = append(malformed, model.MalformedRow{Row: i, Reason: ReasonMissingOrderID})
			continue
		}

		pos, seen := index[orderID]
		if !seen {
			agg, reason := newAggregate(orderID, row)
			if reason != "" {
				malformed = append(malformed, model.MalformedRow{Row: i, OrderID: orderID, Reason: reason})
				continue
			}
			aggs = append(aggs, agg)
			pos = len(aggs) - 1
			index[orderID] = pos
		} else if _, reason := parseStart(row); reason != "" {
			malformed = append(malformed, model.MalformedRow{Row: i, OrderID: orderID, Reason: reason})
			continue
		}

		aggs[pos].Lines = append(aggs[pos].Lines, lineItem(i, row))
	}

	return aggs, malformed
}

// newAggregate captures the order-level fields of the first row of an order.
func newAggregate(orderID string, row model.SourceRow) (model.ServiceOrderAggregate, string) {
	start, reason := parseStart(row)
	if reason != "" {
		return model.ServiceOrderAggregate{}, reason
	}
	end, ok := parseDate(model.Text(row.DateEnd))
	if !ok {
		end = start
	}

	return model.ServiceOrderAggregate{
		OrderID:         orderID,
		DateStart:       start,
		DateEnd:         end,
		SupervisorName:  normalize.Name(model.Text(row.SupervisorName)),
		ZoneName:        normalize.Name(model.Text(row.ZoneName)),
		SectorName:      normalize.Name(model.Text(row.SectorName)),
		Comuna:          strings.TrimSpace(model.Text(row.Comuna)),
		SectorArea:      parseDecimal(row.SectorArea),
		PabellonTotal:   parseInt(row.SectorPabellones),
		PabellonCleaned: parseInt(row.PabellonesCleaned),
		Ticket:          strings.TrimSpace(model.Text(row.Ticket)),
		Status:          normalize.MapStatus(model.Text(row.Status)),
		Observation:     strings.TrimSpace(model.Text(row.Observation)),
	}, ""
}

func lineItem(i int, row model.SourceRow) model.LineItem {
	item := model.LineItem{
		Row:             i,
		PabellonNumber:  parseInt(row.PabellonNumber),
		MachineSourceID: int64(parseInt(row.MachineID)),
		MachineNumber:   parseInt(row.MachineNumber),
		OperatorName:    strings.TrimSpace(model.Text(row.OperatorName)),
		OdometerStart:   parseDecimal(row.OdometerStart),
		OdometerEnd:     parseDecimal(row.OdometerEnd),
		FuelLiters:      parseDecimal(row.FuelLiters),
	}

	damageType := strings.TrimSpace(model.Text(row.DamageType))
	damageDesc := strings.TrimSpace(model.Text(row.DamageDescription))
	if damageType != "" || damageDesc != "" {
		item.Damage = &model.Damage{
			Type:        damageType,
			Description: damageDesc,
			Quantity:    parseInt(row.DamageQuantity),
			Observation: strings.TrimSpace(model.Text(row.DamageObservation)),
		}
	}
	return item
}

func parseStart(row model.SourceRow) (time.Time, string) {
	raw := strings.TrimSpace(model.Text(row.DateStart))
	if raw == "" {
		return time.Time{}, ReasonMissingStartDate
	}
	t, ok := parseDate(raw)
	if !ok {
		return time.Time{}, ReasonBadStartDate
	}
	return t, ""
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseInt reads an integer column. Decimal text is truncated; anything
// else, including NULL, is zero.
func parseInt(ns sql.NullString) int {
	raw := strings.TrimSpace(model.Text(ns))
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return int(d.IntPart())
	}
	return 0
}

// parseDecimal reads a numeric column, accepting a comma decimal separator.
// Non-numeric or NULL values are zero.
func parseDecimal(ns sql.NullString) decimal.Decimal {
	raw := strings.TrimSpace(model.Text(ns))
	if raw == "" {
		return decimal.Zero
	}
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
