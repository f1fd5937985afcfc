package factory

import (
	"math/rand"
)

// GenerateWeeklyDemand creates the customer orders placed in week. Quantities
// are scaled by the demand multipliers of the events active that week. The
// returned orders carry no ID; the store assigns one.
func GenerateWeeklyDemand(rng *rand.Rand, week int, basePrice float64, events []GameEvent) []CustomerOrder {
	multiplier := 1.0
	for _, ev := range ActiveEvents(events, week) {
		if m, ok := ev.Effects.Value(EffectDemandMultiplier); ok {
			multiplier *= m
		}
	}

	n := randomInt(rng, 2, 5)
	orders := make([]CustomerOrder, 0, n)
	for i := 0; i < n; i++ {
		quantity := randomInt(rng, DemandBaseMin, DemandBaseMax)
		if multiplier != 1 {
			quantity = max(1, roundHalfUp(float64(quantity)*multiplier))
		}
		orders = append(orders, CustomerOrder{
			CreatedWeek: week,
			DueWeek:     week + randomInt(rng, 0, 2),
			Quantity:    quantity,
			UnitPrice:   basePrice,
			Status:      OrderPending,
		})
	}
	return orders
}

// GenerateRandomEvents rolls at most one disruption starting in week.
func GenerateRandomEvents(rng *rand.Rand, week int) []GameEvent {
	roll := rng.Float64()
	var ev GameEvent
	switch {
	case roll < 0.15:
		ev = GameEvent{
			Type:        EventOperational,
			Description: "Key machine failure, production capacity drops.",
			Effects:     Effects{EffectProductionCapacityMultiplier: 0.7, EffectDurationWeeks: 1},
		}
	case roll < 0.25:
		ev = GameEvent{
			Type:        EventDemand,
			Description: "Sudden fashion trend for one jean model, demand rises.",
			Effects:     Effects{EffectDemandMultiplier: 1.3, EffectDurationWeeks: 1},
		}
	case roll < 0.32:
		ev = GameEvent{
			Type:        EventLogistics,
			Description: "Carrier strike, raw material deliveries slip one week.",
			Effects:     Effects{EffectPurchaseDelayWeeks: 1, EffectDurationWeeks: 1},
		}
	default:
		return nil
	}
	ev.StartWeek = week
	ev.EndWeek = week + durationWeeks(ev.Effects) - 1
	return []GameEvent{ev}
}

// EventActive reports whether ev applies in week. When EndWeek is unset the
// durationWeeks effect (default 1) decides the span.
func EventActive(ev GameEvent, week int) bool {
	end := ev.EndWeek
	if end == 0 {
		end = ev.StartWeek + durationWeeks(ev.Effects) - 1
	}
	return week >= ev.StartWeek && week <= end
}

func durationWeeks(e Effects) int {
	if d, ok := e.Value(EffectDurationWeeks); ok && d >= 1 {
		return int(d)
	}
	return 1
}

func randomInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}
