package factory

import "testing"

func TestDueOrders(t *testing.T) {
	orders := []CustomerOrder{
		{ID: 1, DueWeek: 2, Status: OrderPending},
		{ID: 2, DueWeek: 3, Status: OrderPartial},
		{ID: 3, DueWeek: 4, Status: OrderPending},
		{ID: 4, DueWeek: 1, Status: OrderFulfilled},
		{ID: 5, DueWeek: 1, Status: OrderPartial},
	}
	got := ids(DueOrders(orders, 3))
	want := []int64{1, 2, 5}
	if len(got) != len(want) {
		t.Fatalf("DueOrders = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DueOrders = %v, want %v", got, want)
		}
	}
}

func TestArrivingPurchaseOrders(t *testing.T) {
	pos := []PurchaseOrder{
		{ID: 1, EstimatedWeek: 3, Status: PurchasePending},
		{ID: 2, EstimatedWeek: 3, Status: PurchaseDelayed},
		{ID: 3, EstimatedWeek: 3, Status: PurchaseReceived},
		{ID: 4, EstimatedWeek: 2, Status: PurchasePending},
	}
	got := ArrivingPurchaseOrders(pos, 3)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("ArrivingPurchaseOrders = %+v", got)
	}
}

func TestPurchaseOrdersFromDecision(t *testing.T) {
	d := &PurchasingDecision{Orders: []PurchaseLine{
		{Quantity: 40, LeadTime: 2, CostPerUnit: 5},
		{Quantity: 0, LeadTime: 1, CostPerUnit: 5},
		{Quantity: 10, LeadTime: 0, CostPerUnit: 4.5},
	}}
	got := PurchaseOrdersFromDecision(3, d)
	if len(got) != 2 {
		t.Fatalf("got %d purchase orders, want 2", len(got))
	}
	if got[0].EstimatedWeek != 5 || got[0].TotalCost != 200 || got[0].RequestedWeek != 3 || got[0].Status != PurchasePending {
		t.Fatalf("first order = %+v", got[0])
	}
	if got[1].EstimatedWeek != 4 || got[1].TotalCost != 45 {
		t.Fatalf("zero lead time order = %+v", got[1])
	}
	if PurchaseOrdersFromDecision(3, nil) != nil {
		t.Fatalf("nil decision should create nothing")
	}
}

func TestApplyLogisticsDelays(t *testing.T) {
	pos := []PurchaseOrder{
		{ID: 1, EstimatedWeek: 3, Status: PurchasePending, Quantity: 10},
		{ID: 2, EstimatedWeek: 3, Status: PurchaseDelayed, Quantity: 20},
	}

	arriving, delayed := ApplyLogisticsDelays(pos, nil)
	if len(arriving) != 2 || len(delayed) != 0 {
		t.Fatalf("no event: arriving=%d delayed=%d", len(arriving), len(delayed))
	}

	strike := []GameEvent{{Type: EventLogistics, Effects: Effects{EffectPurchaseDelayWeeks: 2}}}
	arriving, delayed = ApplyLogisticsDelays(pos, strike)
	if len(arriving) != 1 || arriving[0].ID != 2 {
		t.Fatalf("arriving = %+v, want only the already delayed order", arriving)
	}
	if len(delayed) != 1 || delayed[0].ID != 1 || delayed[0].EstimatedWeek != 5 || delayed[0].Status != PurchaseDelayed {
		t.Fatalf("delayed = %+v", delayed)
	}
	if pos[0].Status != PurchasePending {
		t.Fatalf("ApplyLogisticsDelays mutated its input")
	}

	other := []GameEvent{{Type: EventOperational, Effects: Effects{EffectPurchaseDelayWeeks: 2}}}
	if _, delayed := ApplyLogisticsDelays(pos, other); len(delayed) != 0 {
		t.Fatalf("non-logistics event delayed orders")
	}
}

func TestFillDefaults(t *testing.T) {
	q := &QualityDecision{InspectionLevel: InspectionHigh}
	got := FillDefaults(DecisionsByRole{Quality: q})
	if got.Quality != q {
		t.Fatalf("submitted decision replaced")
	}
	if len(got.Missing()) != 0 {
		t.Fatalf("still missing %v", got.Missing())
	}
	if p := got.Purchasing; len(p.Orders) != 1 || p.Orders[0].Quantity != 80 || p.Orders[0].LeadTime != 1 || p.Orders[0].CostPerUnit != 5 {
		t.Fatalf("purchasing default = %+v", p)
	}
	if p := got.Production; p.PlannedProduction != 80 || p.ExtraHours {
		t.Fatalf("production default = %+v", p)
	}
	if f := got.FinanceLogistics; len(f.Loans) != 0 || len(f.ShippingPriorities) != 0 {
		t.Fatalf("finance default = %+v", f)
	}
	if got := FillDefaults(DecisionsByRole{}); got.Quality.InspectionLevel != InspectionMedium {
		t.Fatalf("quality default = %+v", got.Quality)
	}
}
