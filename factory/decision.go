package factory

import "encoding/json"

type Role string

const (
	RolePurchasing       Role = "PURCHASING"
	RoleProduction       Role = "PRODUCTION"
	RoleQuality          Role = "QUALITY"
	RoleFinanceLogistics Role = "FINANCE_LOGISTICS"
)

// Roles lists the four seats of a game in display order.
var Roles = []Role{RolePurchasing, RoleProduction, RoleQuality, RoleFinanceLogistics}

// ParseRole accepts the wire name of a role.
func ParseRole(raw string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

type InspectionLevel string

const (
	InspectionHigh   InspectionLevel = "ALTO"
	InspectionMedium InspectionLevel = "MEDIO"
	InspectionLow    InspectionLevel = "BAJO"
)

type PurchasingStrategy string

const (
	StrategyNegotiatePrice   PurchasingStrategy = "NEGOTIATE_PRICE"
	StrategyUrgentDelivery   PurchasingStrategy = "URGENT_DELIVERY"
	StrategyReliableSupplier PurchasingStrategy = "RELIABLE_SUPPLIER"
)

type ProcurementMode string

const (
	ProcurementSpot     ProcurementMode = "SPOT"
	ProcurementContract ProcurementMode = "CONTRACT"
)

type ProductionStrategy string

const (
	StrategyLineBalance           ProductionStrategy = "LINE_BALANCE"
	StrategyMaxPace               ProductionStrategy = "MAX_PACE"
	StrategyPreventiveMaintenance ProductionStrategy = "PREVENTIVE_MAINTENANCE"
)

type ShiftPlan string

const (
	ShiftNormal ShiftPlan = "NORMAL"
	ShiftDouble ShiftPlan = "DOUBLE_SHIFT"
)

type QualityStrategy string

const (
	StrategySmartSampling   QualityStrategy = "SMART_SAMPLING"
	StrategyFullCalibration QualityStrategy = "FULL_CALIBRATION"
	StrategyExpressAudit    QualityStrategy = "EXPRESS_AUDIT"
)

type ReworkPolicy string

const (
	ReworkNone    ReworkPolicy = "NONE"
	ReworkPartial ReworkPolicy = "PARTIAL_REWORK"
)

type LogisticsStrategy string

const (
	StrategyConsolidateLoad      LogisticsStrategy = "CONSOLIDATE_LOAD"
	StrategyExpressShipping      LogisticsStrategy = "EXPRESS_SHIPPING"
	StrategyPrioritizeDelinquent LogisticsStrategy = "PRIORITIZE_DELINQUENT"
)

type CashAllocation string

const (
	CashOperations CashAllocation = "OPERATIONS"
	CashPayDebt    CashAllocation = "PAY_DEBT"
)

// Decision is one role's input for a week. The concrete type is always one
// of PurchasingDecision, ProductionDecision, QualityDecision or
// FinanceLogisticsDecision.
type Decision interface {
	Role() Role
	isDecision()
}

type PurchaseLine struct {
	Quantity    int     `json:"quantity"`
	LeadTime    int     `json:"leadTime"`
	CostPerUnit float64 `json:"costPerUnit"`
}

type PurchasingDecision struct {
	Orders           []PurchaseLine     `json:"orders"`
	MinigameStrategy PurchasingStrategy `json:"minigameStrategy,omitempty"`
	ProcurementMode  ProcurementMode    `json:"procurementMode,omitempty"`
}

type ProductionDecision struct {
	PlannedProduction int                `json:"plannedProduction"`
	ExtraHours        bool               `json:"extraHours"`
	MinigameStrategy  ProductionStrategy `json:"minigameStrategy,omitempty"`
	ShiftPlan         ShiftPlan          `json:"shiftPlan,omitempty"`
}

type QualityDecision struct {
	InspectionLevel  InspectionLevel `json:"inspectionLevel"`
	MinigameStrategy QualityStrategy `json:"minigameStrategy,omitempty"`
	ReworkPolicy     ReworkPolicy    `json:"reworkPolicy,omitempty"`
}

type Loan struct {
	Amount       float64 `json:"amount"`
	TermWeeks    int     `json:"termWeeks"`
	InterestRate float64 `json:"interestRate"`
}

type FinanceLogisticsDecision struct {
	Loans              []Loan            `json:"loans,omitempty"`
	ShippingPriorities []int64           `json:"shippingPriorities"`
	MinigameStrategy   LogisticsStrategy `json:"minigameStrategy,omitempty"`
	CashAllocation     CashAllocation    `json:"cashAllocation,omitempty"`
}

func (PurchasingDecision) Role() Role       { return RolePurchasing }
func (ProductionDecision) Role() Role       { return RoleProduction }
func (QualityDecision) Role() Role          { return RoleQuality }
func (FinanceLogisticsDecision) Role() Role { return RoleFinanceLogistics }

func (PurchasingDecision) isDecision()       {}
func (ProductionDecision) isDecision()       {}
func (QualityDecision) isDecision()          {}
func (FinanceLogisticsDecision) isDecision() {}

// The wire form of every decision carries its role under "type".

func (d PurchasingDecision) MarshalJSON() ([]byte, error) {
	type plain PurchasingDecision
	return json.Marshal(struct {
		Type Role `json:"type"`
		plain
	}{d.Role(), plain(d)})
}

func (d ProductionDecision) MarshalJSON() ([]byte, error) {
	type plain ProductionDecision
	return json.Marshal(struct {
		Type Role `json:"type"`
		plain
	}{d.Role(), plain(d)})
}

func (d QualityDecision) MarshalJSON() ([]byte, error) {
	type plain QualityDecision
	return json.Marshal(struct {
		Type Role `json:"type"`
		plain
	}{d.Role(), plain(d)})
}

func (d FinanceLogisticsDecision) MarshalJSON() ([]byte, error) {
	type plain FinanceLogisticsDecision
	return json.Marshal(struct {
		Type Role `json:"type"`
		plain
	}{d.Role(), plain(d)})
}

// DecisionsByRole groups the decisions of one week. A nil field means the
// role has not decided.
type DecisionsByRole struct {
	Purchasing       *PurchasingDecision       `json:"purchasing,omitempty"`
	Production       *ProductionDecision       `json:"production,omitempty"`
	Quality          *QualityDecision          `json:"quality,omitempty"`
	FinanceLogistics *FinanceLogisticsDecision `json:"financeLogistics,omitempty"`
}

// Set stores d in the slot of its role, replacing any earlier decision.
func (d *DecisionsByRole) Set(dec Decision) {
	switch v := dec.(type) {
	case PurchasingDecision:
		d.Purchasing = &v
	case *PurchasingDecision:
		d.Purchasing = v
	case ProductionDecision:
		d.Production = &v
	case *ProductionDecision:
		d.Production = v
	case QualityDecision:
		d.Quality = &v
	case *QualityDecision:
		d.Quality = v
	case FinanceLogisticsDecision:
		d.FinanceLogistics = &v
	case *FinanceLogisticsDecision:
		d.FinanceLogistics = v
	}
}

// Empty reports whether no role has decided.
func (d DecisionsByRole) Empty() bool {
	return d.Purchasing == nil && d.Production == nil && d.Quality == nil && d.FinanceLogistics == nil
}

// Missing lists the roles without a decision, in Roles order.
func (d DecisionsByRole) Missing() []Role {
	var out []Role
	if d.Purchasing == nil {
		out = append(out, RolePurchasing)
	}
	if d.Production == nil {
		out = append(out, RoleProduction)
	}
	if d.Quality == nil {
		out = append(out, RoleQuality)
	}
	if d.FinanceLogistics == nil {
		out = append(out, RoleFinanceLogistics)
	}
	return out
}
