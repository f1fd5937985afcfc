package factory

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestGenerateWeeklyDemandRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for week := 1; week <= 50; week++ {
		orders := GenerateWeeklyDemand(rng, week, DemandBasePrice, nil)
		if len(orders) < 2 || len(orders) > 5 {
			t.Fatalf("week %d: %d orders, want 2..5", week, len(orders))
		}
		for _, o := range orders {
			if o.Quantity < DemandBaseMin || o.Quantity > DemandBaseMax {
				t.Fatalf("week %d: quantity %d out of range", week, o.Quantity)
			}
			if o.DueWeek < week || o.DueWeek > week+2 {
				t.Fatalf("week %d: dueWeek %d out of range", week, o.DueWeek)
			}
			if o.CreatedWeek != week || o.UnitPrice != DemandBasePrice || o.Status != OrderPending || o.DeliveredQuantity != 0 {
				t.Fatalf("week %d: unexpected order %+v", week, o)
			}
		}
	}
}

func TestGenerateWeeklyDemandDeterministic(t *testing.T) {
	a := GenerateWeeklyDemand(rand.New(rand.NewSource(42)), 3, 20, nil)
	b := GenerateWeeklyDemand(rand.New(rand.NewSource(42)), 3, 20, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced %v and %v", a, b)
	}
}

func TestGenerateWeeklyDemandMultiplier(t *testing.T) {
	trend := []GameEvent{{Type: EventDemand, StartWeek: 3, EndWeek: 3, Effects: Effects{EffectDemandMultiplier: 1.3}}}
	base := GenerateWeeklyDemand(rand.New(rand.NewSource(7)), 3, 20, nil)
	boosted := GenerateWeeklyDemand(rand.New(rand.NewSource(7)), 3, 20, trend)
	if len(base) != len(boosted) {
		t.Fatalf("order count changed: %d vs %d", len(base), len(boosted))
	}
	for i := range base {
		if want := roundHalfUp(float64(base[i].Quantity) * 1.3); boosted[i].Quantity != want {
			t.Fatalf("order %d quantity = %d, want %d", i, boosted[i].Quantity, want)
		}
	}

	// an event outside the week has no effect
	later := GenerateWeeklyDemand(rand.New(rand.NewSource(7)), 4, 20, trend)
	again := GenerateWeeklyDemand(rand.New(rand.NewSource(7)), 4, 20, nil)
	if !reflect.DeepEqual(later, again) {
		t.Fatalf("inactive event changed demand")
	}
}

func TestGenerateRandomEvents(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[EventType]int{}
	none := 0
	for i := 0; i < 2000; i++ {
		events := GenerateRandomEvents(rng, 5)
		if len(events) == 0 {
			none++
			continue
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want at most 1", len(events))
		}
		ev := events[0]
		if ev.StartWeek != 5 || ev.EndWeek != 5 || ev.Description == "" {
			t.Fatalf("unexpected event %+v", ev)
		}
		seen[ev.Type]++
		switch ev.Type {
		case EventOperational:
			if ev.Effects[EffectProductionCapacityMultiplier] != 0.7 {
				t.Fatalf("operational effects = %v", ev.Effects)
			}
		case EventDemand:
			if ev.Effects[EffectDemandMultiplier] != 1.3 {
				t.Fatalf("demand effects = %v", ev.Effects)
			}
		case EventLogistics:
			if ev.Effects[EffectPurchaseDelayWeeks] != 1 {
				t.Fatalf("logistics effects = %v", ev.Effects)
			}
		default:
			t.Fatalf("unexpected type %s", ev.Type)
		}
	}
	if none == 0 || seen[EventOperational] == 0 || seen[EventDemand] == 0 || seen[EventLogistics] == 0 {
		t.Fatalf("distribution looks wrong: none=%d seen=%v", none, seen)
	}
	if seen[EventOperational] < seen[EventLogistics] {
		t.Fatalf("operational events should be the most frequent: %v", seen)
	}
}

func TestEventActive(t *testing.T) {
	tests := []struct {
		ev   GameEvent
		week int
		want bool
	}{
		{GameEvent{StartWeek: 2, EndWeek: 4}, 1, false},
		{GameEvent{StartWeek: 2, EndWeek: 4}, 2, true},
		{GameEvent{StartWeek: 2, EndWeek: 4}, 4, true},
		{GameEvent{StartWeek: 2, EndWeek: 4}, 5, false},
		{GameEvent{StartWeek: 2}, 2, true},
		{GameEvent{StartWeek: 2}, 3, false},
		{GameEvent{StartWeek: 2, Effects: Effects{EffectDurationWeeks: 3}}, 4, true},
		{GameEvent{StartWeek: 2, Effects: Effects{EffectDurationWeeks: 3}}, 5, false},
	}
	for i, tc := range tests {
		if got := EventActive(tc.ev, tc.week); got != tc.want {
			t.Fatalf("case %d: EventActive = %v, want %v", i, got, tc.want)
		}
	}
}
