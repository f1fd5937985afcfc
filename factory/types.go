// Package factory implements the weekly settlement of the Denim Factory
// simulation: production, order fulfillment, costs and financial settlement,
// plus the decision union submitted by the four roles and the generators the
// game loop uses to create demand and disruptions.
//
// Nothing in this package performs I/O or keeps state between calls.
package factory

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPartial   OrderStatus = "partial"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderLate      OrderStatus = "late"
)

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseReceived PurchaseStatus = "received"
	PurchaseDelayed  PurchaseStatus = "delayed"
)

type EventType string

const (
	EventOperational EventType = "operational"
	EventDemand      EventType = "demand"
	EventFinancial   EventType = "financial"
	EventLogistics   EventType = "logistics"
)

// Known effect keys. Effects is a free-form bag, so events may carry others.
const (
	EffectProductionCapacityMultiplier = "productionCapacityMultiplier"
	EffectDefectRateIncrease           = "defectRateIncrease"
	EffectDemandMultiplier             = "demandMultiplier"
	EffectPurchaseDelayWeeks           = "purchaseDelayWeeks"
	EffectDurationWeeks                = "durationWeeks"
)

type Inventory struct {
	RawMaterial   int `json:"rawMaterial"`
	FinishedGoods int `json:"finishedGoods"`
}

type CustomerOrder struct {
	ID                int64       `json:"id"`
	CreatedWeek       int         `json:"createdWeek"`
	DueWeek           int         `json:"dueWeek"`
	Quantity          int         `json:"quantity"`
	UnitPrice         float64     `json:"unitPrice"`
	DeliveredQuantity int         `json:"deliveredQuantity"`
	Status            OrderStatus `json:"status"`
}

// Remaining returns the units still owed to the customer.
func (o CustomerOrder) Remaining() int {
	return o.Quantity - o.DeliveredQuantity
}

// Overdue reports whether the order is past due in week and still owes units.
func (o CustomerOrder) Overdue(week int) bool {
	return o.DueWeek < week && o.DeliveredQuantity < o.Quantity
}

type PurchaseOrder struct {
	ID            int64          `json:"id"`
	RequestedWeek int            `json:"requestedWeek"`
	EstimatedWeek int            `json:"estimatedWeek"`
	Quantity      int            `json:"quantity"`
	TotalCost     float64        `json:"totalCost"`
	Status        PurchaseStatus `json:"status"`
}

type FinancialState struct {
	Week              int     `json:"week"`
	Cash              float64 `json:"cash"`
	TotalDebt         float64 `json:"totalDebt"`
	InterestsPaid     float64 `json:"interestsPaid"`
	WeeklyProfit      float64 `json:"weeklyProfit"`
	AccumulatedProfit float64 `json:"accumulatedProfit"`
}

// Effects holds the numeric modifiers of an event keyed by effect name.
type Effects map[string]float64

// Value returns the modifier stored under key and whether it is set to a
// non-zero value.
func (e Effects) Value(key string) (float64, bool) {
	v, ok := e[key]
	if !ok || v == 0 {
		return 0, false
	}
	return v, true
}

type GameEvent struct {
	ID          int64     `json:"id"`
	Type        EventType `json:"type"`
	Description string    `json:"description"`
	StartWeek   int       `json:"startWeek"`
	EndWeek     int       `json:"endWeek"`
	Effects     Effects   `json:"effects"`
}

// RoundContext is everything the engine needs to settle one week. Callers
// build it fresh for every invocation.
type RoundContext struct {
	GameID                 string          `json:"gameId"`
	Week                   int             `json:"week"`
	Inventory              Inventory       `json:"inventory"`
	CustomerOrdersDue      []CustomerOrder `json:"customerOrdersDue"`
	PurchaseOrdersArriving []PurchaseOrder `json:"purchaseOrdersArriving"`
	FinancialStatePrev     FinancialState  `json:"financialStatePrev"`
	EventsActive           []GameEvent     `json:"eventsActive"`
	Decisions              DecisionsByRole `json:"decisions"`
}

type Costs struct {
	RawMaterial float64 `json:"rawMaterial"`
	Labor       float64 `json:"labor"`
	Quality     float64 `json:"quality"`
	Logistics   float64 `json:"logistics"`
	Interests   float64 `json:"interests"`
	Penalties   float64 `json:"penalties"`
}

// Total sums the six cost components.
func (c Costs) Total() float64 {
	return c.RawMaterial + c.Labor + c.Quality + c.Logistics + c.Interests + c.Penalties
}

// Production explains how raw material became finished goods this week.
type Production struct {
	Capacity              int     `json:"capacity"`
	RawMaterialAvailable  int     `json:"rawMaterialAvailable"`
	RawMaterialUsed       int     `json:"rawMaterialUsed"`
	GrossProduction       int     `json:"grossProduction"`
	DefectRate            float64 `json:"defectRate"`
	GoodUnits             int     `json:"goodUnits"`
	DefectiveUnits        int     `json:"defectiveUnits"`
	RecoveredUnits        int     `json:"recoveredUnits"`
	FinishedGoodsProduced int     `json:"finishedGoodsProduced"`
}

type SettledFinancials struct {
	Cash              float64 `json:"cash"`
	TotalDebt         float64 `json:"totalDebt"`
	InterestsPaid     float64 `json:"interestsPaid"`
	WeeklyProfit      float64 `json:"weeklyProfit"`
	AccumulatedProfit float64 `json:"accumulatedProfit"`
}

type RoundResult struct {
	NewInventory          Inventory         `json:"newInventory"`
	UpdatedCustomerOrders []CustomerOrder   `json:"updatedCustomerOrders"`
	NewFinancialState     SettledFinancials `json:"newFinancialState"`
	Income                float64           `json:"income"`
	Costs                 Costs             `json:"costs"`
	TotalCosts            float64           `json:"totalCosts"`
	NewLoans              float64           `json:"newLoans"`
	Production            Production        `json:"production"`
}

// FinancialStateFor turns the settled figures into the ledger entry of week.
func (r RoundResult) FinancialStateFor(week int) FinancialState {
	return FinancialState{
		Week:              week,
		Cash:              r.NewFinancialState.Cash,
		TotalDebt:         r.NewFinancialState.TotalDebt,
		InterestsPaid:     r.NewFinancialState.InterestsPaid,
		WeeklyProfit:      r.NewFinancialState.WeeklyProfit,
		AccumulatedProfit: r.NewFinancialState.AccumulatedProfit,
	}
}
