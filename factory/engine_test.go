package factory

import (
	"math"
	"reflect"
	"testing"
)

const eps = 1e-6

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func baselineContext() RoundContext {
	return RoundContext{
		GameID:    "ABC123",
		Week:      1,
		Inventory: Inventory{RawMaterial: 100},
		CustomerOrdersDue: []CustomerOrder{
			{ID: 1, CreatedWeek: 1, DueWeek: 1, Quantity: 40, UnitPrice: 20, Status: OrderPending},
		},
		FinancialStatePrev: FinancialState{Week: 0, Cash: 10000},
		Decisions: DecisionsByRole{
			Production: &ProductionDecision{PlannedProduction: 50},
			Quality:    &QualityDecision{InspectionLevel: InspectionMedium},
		},
	}
}

func TestProcessRoundBaseline(t *testing.T) {
	res := ProcessRound(baselineContext())

	if res.NewInventory.RawMaterial != 50 {
		t.Fatalf("rawMaterial = %d, want 50", res.NewInventory.RawMaterial)
	}
	if got := res.Production.FinishedGoodsProduced; got < 47 || got > 49 {
		t.Fatalf("finished goods produced = %d, want 47..49", got)
	}
	if res.NewInventory.FinishedGoods != res.Production.FinishedGoodsProduced-40 {
		t.Fatalf("finishedGoods = %d, want produced-40", res.NewInventory.FinishedGoods)
	}
	if len(res.UpdatedCustomerOrders) != 1 {
		t.Fatalf("orders = %d, want 1", len(res.UpdatedCustomerOrders))
	}
	o := res.UpdatedCustomerOrders[0]
	if o.DeliveredQuantity != 40 || o.Status != OrderFulfilled {
		t.Fatalf("order = %+v, want delivered 40 fulfilled", o)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"income", res.Income, 800},
		{"rawMaterial", res.Costs.RawMaterial, 250},
		{"labor", res.Costs.Labor, 100},
		{"quality", res.Costs.Quality, 15},
		{"logistics", res.Costs.Logistics, 10},
		{"interests", res.Costs.Interests, 0},
		{"penalties", res.Costs.Penalties, 0},
		{"weeklyProfit", res.NewFinancialState.WeeklyProfit, 425},
		{"cash", res.NewFinancialState.Cash, 10425},
		{"accumulatedProfit", res.NewFinancialState.AccumulatedProfit, 425},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestProcessRoundLateOrderPenalty(t *testing.T) {
	ctx := baselineContext()
	ctx.Week = 3
	ctx.Inventory = Inventory{}
	ctx.CustomerOrdersDue = []CustomerOrder{
		{ID: 7, CreatedWeek: 1, DueWeek: 2, Quantity: 30, UnitPrice: 20, DeliveredQuantity: 10, Status: OrderPartial},
	}

	res := ProcessRound(ctx)

	o := res.UpdatedCustomerOrders[0]
	if o.Status == OrderFulfilled {
		t.Fatalf("late order reached fulfilled with %d of %d", o.DeliveredQuantity, o.Quantity)
	}
	if o.DeliveredQuantity != 10 {
		t.Fatalf("delivered = %d, want 10 (no stock)", o.DeliveredQuantity)
	}
	if want := 20 * PenaltyPerLateUnit; !near(res.Costs.Penalties, want) {
		t.Fatalf("penalties = %v, want %v", res.Costs.Penalties, want)
	}
}

func TestProcessRoundShippingPriorities(t *testing.T) {
	ctx := baselineContext()
	ctx.Week = 2
	ctx.Inventory = Inventory{FinishedGoods: 30}
	ctx.Decisions.Production = &ProductionDecision{PlannedProduction: 0}
	ctx.CustomerOrdersDue = []CustomerOrder{
		{ID: 1, DueWeek: 1, Quantity: 25, UnitPrice: 20, Status: OrderPending},
		{ID: 2, DueWeek: 2, Quantity: 25, UnitPrice: 20, Status: OrderPending},
	}
	ctx.Decisions.FinanceLogistics = &FinanceLogisticsDecision{ShippingPriorities: []int64{2}}

	res := ProcessRound(ctx)

	if res.UpdatedCustomerOrders[0].ID != 2 {
		t.Fatalf("first served = %d, want 2", res.UpdatedCustomerOrders[0].ID)
	}
	if got := res.UpdatedCustomerOrders[0]; got.DeliveredQuantity != 25 || got.Status != OrderFulfilled {
		t.Fatalf("prioritized order = %+v", got)
	}
	if got := res.UpdatedCustomerOrders[1]; got.DeliveredQuantity != 5 || got.Status != OrderPartial {
		t.Fatalf("remaining order = %+v", got)
	}
	if res.NewInventory.FinishedGoods != 0 {
		t.Fatalf("finishedGoods = %d, want 0", res.NewInventory.FinishedGoods)
	}
}

func TestProcessRoundZeroDeliveryIsPartial(t *testing.T) {
	ctx := baselineContext()
	ctx.Inventory = Inventory{}
	ctx.Decisions.Production = &ProductionDecision{PlannedProduction: 0}

	res := ProcessRound(ctx)

	o := res.UpdatedCustomerOrders[0]
	if o.Status != OrderPartial || o.DeliveredQuantity != 0 {
		t.Fatalf("order = %+v, want partial with 0 delivered", o)
	}
	if res.Costs.Logistics != 0 {
		t.Fatalf("logistics = %v, want 0 with nothing shipped", res.Costs.Logistics)
	}
}

func TestProcessRoundArrivingPurchaseOrders(t *testing.T) {
	ctx := baselineContext()
	ctx.Inventory = Inventory{RawMaterial: 10}
	ctx.PurchaseOrdersArriving = []PurchaseOrder{{ID: 1, Quantity: 60, EstimatedWeek: 1, Status: PurchasePending}}

	res := ProcessRound(ctx)

	if res.Production.RawMaterialAvailable != 70 {
		t.Fatalf("available = %d, want 70", res.Production.RawMaterialAvailable)
	}
	if res.Production.RawMaterialUsed != 50 || res.NewInventory.RawMaterial != 20 {
		t.Fatalf("used = %d raw = %d, want 50 and 20", res.Production.RawMaterialUsed, res.NewInventory.RawMaterial)
	}
}

func TestProcessRoundInsufficientRawMaterial(t *testing.T) {
	ctx := baselineContext()
	ctx.Inventory = Inventory{RawMaterial: 20}

	res := ProcessRound(ctx)

	if res.Production.RawMaterialUsed != 20 || res.NewInventory.RawMaterial != 0 {
		t.Fatalf("used = %d raw = %d, want 20 and 0", res.Production.RawMaterialUsed, res.NewInventory.RawMaterial)
	}
	// labor is charged on the plan, not on what the line could make
	if !near(res.Costs.Labor, 100) {
		t.Fatalf("labor = %v, want 100", res.Costs.Labor)
	}
}

func TestProcessRoundLoansAndInterest(t *testing.T) {
	ctx := baselineContext()
	ctx.FinancialStatePrev = FinancialState{Week: 1, Cash: 500, TotalDebt: 1000, AccumulatedProfit: -200}
	ctx.Decisions.FinanceLogistics = &FinanceLogisticsDecision{
		Loans:          []Loan{{Amount: 2000, TermWeeks: 4, InterestRate: 0.05}},
		CashAllocation: CashPayDebt,
	}

	res := ProcessRound(ctx)

	if !near(res.Costs.Interests, 1000*BaseInterestRatePerWeek*PayDebtInterestFactor) {
		t.Fatalf("interests = %v", res.Costs.Interests)
	}
	if !near(res.NewLoans, 2000) || !near(res.NewFinancialState.TotalDebt, 3000) {
		t.Fatalf("newLoans = %v debt = %v", res.NewLoans, res.NewFinancialState.TotalDebt)
	}
	if res.NewFinancialState.InterestsPaid != res.Costs.Interests {
		t.Fatalf("interestsPaid = %v, want %v", res.NewFinancialState.InterestsPaid, res.Costs.Interests)
	}
	if want := -200 + res.NewFinancialState.WeeklyProfit; res.NewFinancialState.AccumulatedProfit != want {
		t.Fatalf("accumulatedProfit = %v, want %v", res.NewFinancialState.AccumulatedProfit, want)
	}
}

func TestProcessRoundIdentities(t *testing.T) {
	ctxs := []RoundContext{baselineContext()}

	c := baselineContext()
	c.Week = 4
	c.Inventory = Inventory{RawMaterial: 35, FinishedGoods: 12}
	c.FinancialStatePrev = FinancialState{Week: 3, Cash: 4200, TotalDebt: 800, AccumulatedProfit: 90}
	c.CustomerOrdersDue = []CustomerOrder{
		{ID: 3, DueWeek: 2, Quantity: 50, UnitPrice: 20, DeliveredQuantity: 5, Status: OrderPartial},
		{ID: 4, DueWeek: 4, Quantity: 30, UnitPrice: 22, Status: OrderPending},
		{ID: 5, DueWeek: 3, Quantity: 10, UnitPrice: 18, Status: OrderPending},
	}
	c.PurchaseOrdersArriving = []PurchaseOrder{{ID: 9, Quantity: 45, Status: PurchaseDelayed}}
	c.EventsActive = []GameEvent{{Type: EventOperational, StartWeek: 4, EndWeek: 4, Effects: Effects{
		EffectProductionCapacityMultiplier: 0.7,
		EffectDefectRateIncrease:           0.03,
	}}}
	c.Decisions = DecisionsByRole{
		Purchasing: &PurchasingDecision{
			Orders:           []PurchaseLine{{Quantity: 40, LeadTime: 2, CostPerUnit: 4.5}},
			MinigameStrategy: StrategyNegotiatePrice,
			ProcurementMode:  ProcurementSpot,
		},
		Production:       &ProductionDecision{PlannedProduction: 90, ExtraHours: true, MinigameStrategy: StrategyMaxPace, ShiftPlan: ShiftDouble},
		Quality:          &QualityDecision{InspectionLevel: InspectionLow, MinigameStrategy: StrategyExpressAudit, ReworkPolicy: ReworkPartial},
		FinanceLogistics: &FinanceLogisticsDecision{ShippingPriorities: []int64{4}, MinigameStrategy: StrategyPrioritizeDelinquent},
	}
	ctxs = append(ctxs, c)

	for i, ctx := range ctxs {
		res := ProcessRound(ctx)

		available := ctx.Inventory.RawMaterial
		for _, po := range ctx.PurchaseOrdersArriving {
			available += po.Quantity
		}
		if res.NewInventory.RawMaterial != available-res.Production.RawMaterialUsed {
			t.Fatalf("case %d: raw conservation broken: %+v", i, res.Production)
		}

		before, after, shipped := 0, 0, 0
		for _, o := range ctx.CustomerOrdersDue {
			before += o.DeliveredQuantity
		}
		for _, o := range res.UpdatedCustomerOrders {
			after += o.DeliveredQuantity
			if o.DeliveredQuantity > o.Quantity {
				t.Fatalf("case %d: order %d over-delivered", i, o.ID)
			}
		}
		shipped = after - before
		if shipped < 0 {
			t.Fatalf("case %d: delivered quantity decreased", i)
		}
		if want := ctx.Inventory.FinishedGoods + res.Production.FinishedGoodsProduced - shipped; res.NewInventory.FinishedGoods != want {
			t.Fatalf("case %d: finishedGoods = %d, want %d", i, res.NewInventory.FinishedGoods, want)
		}

		fs := res.NewFinancialState
		if fs.WeeklyProfit != res.Income-res.Costs.Total() {
			t.Fatalf("case %d: profit identity broken", i)
		}
		if fs.Cash != ctx.FinancialStatePrev.Cash+res.Income-res.TotalCosts+res.NewLoans {
			t.Fatalf("case %d: cash identity broken", i)
		}
		if res.Production.DefectRate < 0 || res.Production.DefectRate > MaxDefectRate {
			t.Fatalf("case %d: defect rate %v out of bounds", i, res.Production.DefectRate)
		}
	}
}

func TestProcessRoundDeterministic(t *testing.T) {
	ctx := baselineContext()
	ctx.EventsActive = []GameEvent{{Type: EventOperational, Effects: Effects{EffectProductionCapacityMultiplier: 0.7}}}
	first := ProcessRound(ctx)
	for i := 0; i < 5; i++ {
		if got := ProcessRound(ctx); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	if ctx.CustomerOrdersDue[0].DeliveredQuantity != 0 {
		t.Fatalf("ProcessRound mutated its input")
	}
}

func TestSettle(t *testing.T) {
	prev := FinancialState{Cash: 100, TotalDebt: 50, AccumulatedProfit: 10}
	got := Settle(prev, 300, Costs{RawMaterial: 100, Labor: 50, Interests: 0.5}, 25)
	want := SettledFinancials{
		Cash:              100 + 300 - 150.5 + 25,
		TotalDebt:         75,
		InterestsPaid:     0.5,
		WeeklyProfit:      149.5,
		AccumulatedProfit: 159.5,
	}
	if got != want {
		t.Fatalf("Settle = %+v, want %+v", got, want)
	}
}
