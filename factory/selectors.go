package factory

// DueOrders returns the open orders that are due in week or earlier.
func DueOrders(orders []CustomerOrder, week int) []CustomerOrder {
	var out []CustomerOrder
	for _, o := range orders {
		if (o.Status == OrderPending || o.Status == OrderPartial) && o.DueWeek <= week {
			out = append(out, o)
		}
	}
	return out
}

// ArrivingPurchaseOrders returns the purchase orders expected exactly in week.
func ArrivingPurchaseOrders(pos []PurchaseOrder, week int) []PurchaseOrder {
	var out []PurchaseOrder
	for _, po := range pos {
		if (po.Status == PurchasePending || po.Status == PurchaseDelayed) && po.EstimatedWeek == week {
			out = append(out, po)
		}
	}
	return out
}

// ActiveEvents filters events to those applying in week.
func ActiveEvents(events []GameEvent, week int) []GameEvent {
	var out []GameEvent
	for _, ev := range events {
		if EventActive(ev, week) {
			out = append(out, ev)
		}
	}
	return out
}

// PurchaseOrdersFromDecision turns the order lines of a Purchasing decision
// placed in week into pending purchase orders. Lines with no quantity are
// skipped and a zero lead time still arrives next week.
func PurchaseOrdersFromDecision(week int, d *PurchasingDecision) []PurchaseOrder {
	if d == nil {
		return nil
	}
	var out []PurchaseOrder
	for _, line := range d.Orders {
		if line.Quantity <= 0 {
			continue
		}
		out = append(out, PurchaseOrder{
			RequestedWeek: week,
			EstimatedWeek: week + max(line.LeadTime, 1),
			Quantity:      line.Quantity,
			TotalCost:     float64(line.Quantity) * line.CostPerUnit,
			Status:        PurchasePending,
		})
	}
	return out
}

// ApplyLogisticsDelays splits the purchase orders expected this week into
// those that arrive and those pushed back by an active logistics event. An
// order that was already delayed once arrives regardless.
func ApplyLogisticsDelays(pos []PurchaseOrder, events []GameEvent) (arriving, delayed []PurchaseOrder) {
	delay := 0
	for _, ev := range events {
		if ev.Type != EventLogistics {
			continue
		}
		if n, ok := ev.Effects.Value(EffectPurchaseDelayWeeks); ok && int(n) > delay {
			delay = int(n)
		}
	}
	for _, po := range pos {
		if delay <= 0 || po.Status == PurchaseDelayed {
			arriving = append(arriving, po)
			continue
		}
		po.Status = PurchaseDelayed
		po.EstimatedWeek += delay
		delayed = append(delayed, po)
	}
	return arriving, delayed
}
