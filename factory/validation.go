package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var (
	ErrInvalidDecision = errors.New("invalid decision")
	ErrRoleMismatch    = errors.New("decision type does not match role")
)

// ValidationError describes why a submitted decision was rejected.
type ValidationError struct {
	Field  string
	Reason string
	err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.err == nil {
		return ErrInvalidDecision
	}
	return e.err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var inspectionLevels = enumSet(InspectionHigh, InspectionMedium, InspectionLow)
var purchasingStrategies = enumSet(StrategyNegotiatePrice, StrategyUrgentDelivery, StrategyReliableSupplier)
var procurementModes = enumSet(ProcurementSpot, ProcurementContract)
var productionStrategies = enumSet(StrategyLineBalance, StrategyMaxPace, StrategyPreventiveMaintenance)
var shiftPlans = enumSet(ShiftNormal, ShiftDouble)
var qualityStrategies = enumSet(StrategySmartSampling, StrategyFullCalibration, StrategyExpressAudit)
var reworkPolicies = enumSet(ReworkNone, ReworkPartial)
var logisticsStrategies = enumSet(StrategyConsolidateLoad, StrategyExpressShipping, StrategyPrioritizeDelinquent)
var cashAllocations = enumSet(CashOperations, CashPayDebt)

func enumSet[T ~string](values ...T) map[T]bool {
	m := make(map[T]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// checkOptional accepts the zero value as "not chosen".
func checkOptional[T ~string](field string, v T, allowed map[T]bool) error {
	if v == "" || allowed[v] {
		return nil
	}
	return invalid(field, "unknown value %q", v)
}

func checkNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, "must be >= 0")
	}
	return nil
}

func errDecisionRequired() error {
	return invalid("", "decision is required")
}

// Validate checks ranges and enum values of a decision built in code or
// decoded from the wire.
func Validate(d Decision) error {
	switch v := d.(type) {
	case PurchasingDecision:
		return validatePurchasing(v)
	case *PurchasingDecision:
		if v == nil {
			return errDecisionRequired()
		}
		return validatePurchasing(*v)
	case ProductionDecision:
		return validateProduction(v)
	case *ProductionDecision:
		if v == nil {
			return errDecisionRequired()
		}
		return validateProduction(*v)
	case QualityDecision:
		return validateQuality(v)
	case *QualityDecision:
		if v == nil {
			return errDecisionRequired()
		}
		return validateQuality(*v)
	case FinanceLogisticsDecision:
		return validateFinanceLogistics(v)
	case *FinanceLogisticsDecision:
		if v == nil {
			return errDecisionRequired()
		}
		return validateFinanceLogistics(*v)
	case nil:
		return errDecisionRequired()
	default:
		return invalid("type", "unsupported decision %T", d)
	}
}

func validatePurchasing(d PurchasingDecision) error {
	for i, o := range d.Orders {
		if o.Quantity < 0 || o.Quantity > MaxUnitsPerDecision {
			return invalid(fmt.Sprintf("orders[%d].quantity", i), "must be between 0 and %d", MaxUnitsPerDecision)
		}
		if o.LeadTime < 0 || o.LeadTime > MaxPurchaseLeadTimeWeeks {
			return invalid(fmt.Sprintf("orders[%d].leadTime", i), "must be between 0 and %d", MaxPurchaseLeadTimeWeeks)
		}
		if err := checkNonNegative(fmt.Sprintf("orders[%d].costPerUnit", i), o.CostPerUnit); err != nil {
			return err
		}
	}
	if err := checkOptional("minigameStrategy", d.MinigameStrategy, purchasingStrategies); err != nil {
		return err
	}
	return checkOptional("procurementMode", d.ProcurementMode, procurementModes)
}

func validateProduction(d ProductionDecision) error {
	if d.PlannedProduction < 0 || d.PlannedProduction > MaxUnitsPerDecision {
		return invalid("plannedProduction", "must be between 0 and %d", MaxUnitsPerDecision)
	}
	if err := checkOptional("minigameStrategy", d.MinigameStrategy, productionStrategies); err != nil {
		return err
	}
	return checkOptional("shiftPlan", d.ShiftPlan, shiftPlans)
}

func validateQuality(d QualityDecision) error {
	if !inspectionLevels[d.InspectionLevel] {
		return invalid("inspectionLevel", "must be one of ALTO, MEDIO, BAJO")
	}
	if err := checkOptional("minigameStrategy", d.MinigameStrategy, qualityStrategies); err != nil {
		return err
	}
	return checkOptional("reworkPolicy", d.ReworkPolicy, reworkPolicies)
}

func validateFinanceLogistics(d FinanceLogisticsDecision) error {
	for i, l := range d.Loans {
		if err := checkNonNegative(fmt.Sprintf("loans[%d].amount", i), l.Amount); err != nil {
			return err
		}
		if l.TermWeeks < 1 {
			return invalid(fmt.Sprintf("loans[%d].termWeeks", i), "must be >= 1")
		}
		if math.IsNaN(l.InterestRate) || l.InterestRate < 0 || l.InterestRate > 1 {
			return invalid(fmt.Sprintf("loans[%d].interestRate", i), "must be between 0 and 1")
		}
	}
	if len(d.ShippingPriorities) > MaxShippingPriorityLength {
		return invalid("shippingPriorities", "at most %d entries", MaxShippingPriorityLength)
	}
	if err := checkOptional("minigameStrategy", d.MinigameStrategy, logisticsStrategies); err != nil {
		return err
	}
	return checkOptional("cashAllocation", d.CashAllocation, cashAllocations)
}

// Wire shapes. Pointers mark fields that must be present.

// wholeNumber decodes any JSON number without a fractional part, so 50 and
// 50.0 are the same unit count.
type wholeNumber int

const maxWholeNumber = 1 << 53

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil || f != math.Trunc(f) || math.Abs(f) > maxWholeNumber {
		return &json.UnmarshalTypeError{Value: "number", Type: reflect.TypeOf(0)}
	}
	*n = wholeNumber(f)
	return nil
}

type purchaseLineWire struct {
	Quantity    *wholeNumber `json:"quantity"`
	LeadTime    *wholeNumber `json:"leadTime"`
	CostPerUnit *float64     `json:"costPerUnit"`
}

type purchasingWire struct {
	Type             string             `json:"type"`
	Orders           []purchaseLineWire `json:"orders"`
	MinigameStrategy PurchasingStrategy `json:"minigameStrategy"`
	ProcurementMode  ProcurementMode    `json:"procurementMode"`
}

type productionWire struct {
	Type              string             `json:"type"`
	PlannedProduction *wholeNumber       `json:"plannedProduction"`
	ExtraHours        *bool              `json:"extraHours"`
	MinigameStrategy  ProductionStrategy `json:"minigameStrategy"`
	ShiftPlan         ShiftPlan          `json:"shiftPlan"`
}

type qualityWire struct {
	Type             string          `json:"type"`
	InspectionLevel  *string         `json:"inspectionLevel"`
	MinigameStrategy QualityStrategy `json:"minigameStrategy"`
	ReworkPolicy     ReworkPolicy    `json:"reworkPolicy"`
}

type loanWire struct {
	Amount       *float64     `json:"amount"`
	TermWeeks    *wholeNumber `json:"termWeeks"`
	InterestRate *float64     `json:"interestRate"`
}

type financeLogisticsWire struct {
	Type               string            `json:"type"`
	Loans              []loanWire        `json:"loans"`
	ShippingPriorities []int64           `json:"shippingPriorities"`
	MinigameStrategy   LogisticsStrategy `json:"minigameStrategy"`
	CashAllocation     CashAllocation    `json:"cashAllocation"`
}

// DecodeDecision parses the wire form of a decision, using its "type" tag to
// pick the variant. Unknown fields are rejected.
func DecodeDecision(data []byte) (Decision, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, decodeError(err)
	}
	role, ok := ParseRole(envelope.Type)
	if !ok {
		return nil, invalid("type", "unknown decision type %q", envelope.Type)
	}

	var (
		d   Decision
		err error
	)
	switch role {
	case RolePurchasing:
		d, err = decodePurchasing(data)
	case RoleProduction:
		d, err = decodeProduction(data)
	case RoleQuality:
		d, err = decodeQuality(data)
	case RoleFinanceLogistics:
		d, err = decodeFinanceLogistics(data)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// ValidateForRole decodes data and checks that its type tag matches role.
func ValidateForRole(role Role, data []byte) (Decision, error) {
	if _, ok := ParseRole(string(role)); !ok {
		return nil, invalid("role", "unknown role %q", role)
	}
	d, err := DecodeDecision(data)
	if err != nil {
		return nil, err
	}
	if d.Role() != role {
		return nil, &ValidationError{
			Field:  "type",
			Reason: fmt.Sprintf("decision type %s is not allowed for role %s", d.Role(), role),
			err:    ErrRoleMismatch,
		}
	}
	return d, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return invalid(typeErr.Field, "expected %s", typeErr.Type)
	}
	return invalid("", "malformed decision: %v", err)
}

func decodePurchasing(data []byte) (Decision, error) {
	var w purchasingWire
	if err := strictUnmarshal(data, &w); err != nil {
		return nil, err
	}
	d := PurchasingDecision{
		Orders:           make([]PurchaseLine, 0, len(w.Orders)),
		MinigameStrategy: w.MinigameStrategy,
		ProcurementMode:  w.ProcurementMode,
	}
	for i, o := range w.Orders {
		if o.Quantity == nil || o.LeadTime == nil || o.CostPerUnit == nil {
			return nil, invalid(fmt.Sprintf("orders[%d]", i), "quantity, leadTime and costPerUnit are required")
		}
		d.Orders = append(d.Orders, PurchaseLine{Quantity: int(*o.Quantity), LeadTime: int(*o.LeadTime), CostPerUnit: *o.CostPerUnit})
	}
	return d, nil
}

func decodeProduction(data []byte) (Decision, error) {
	var w productionWire
	if err := strictUnmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.PlannedProduction == nil {
		return nil, invalid("plannedProduction", "is required")
	}
	if w.ExtraHours == nil {
		return nil, invalid("extraHours", "is required")
	}
	return ProductionDecision{
		PlannedProduction: int(*w.PlannedProduction),
		ExtraHours:        *w.ExtraHours,
		MinigameStrategy:  w.MinigameStrategy,
		ShiftPlan:         w.ShiftPlan,
	}, nil
}

func decodeQuality(data []byte) (Decision, error) {
	var w qualityWire
	if err := strictUnmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.InspectionLevel == nil {
		return nil, invalid("inspectionLevel", "is required")
	}
	return QualityDecision{
		InspectionLevel:  InspectionLevel(*w.InspectionLevel),
		MinigameStrategy: w.MinigameStrategy,
		ReworkPolicy:     w.ReworkPolicy,
	}, nil
}

func decodeFinanceLogistics(data []byte) (Decision, error) {
	var w financeLogisticsWire
	if err := strictUnmarshal(data, &w); err != nil {
		return nil, err
	}
	d := FinanceLogisticsDecision{
		ShippingPriorities: w.ShippingPriorities,
		MinigameStrategy:   w.MinigameStrategy,
		CashAllocation:     w.CashAllocation,
	}
	if d.ShippingPriorities == nil {
		d.ShippingPriorities = []int64{}
	}
	if w.Loans != nil {
		d.Loans = make([]Loan, 0, len(w.Loans))
		for i, l := range w.Loans {
			if l.Amount == nil || l.TermWeeks == nil || l.InterestRate == nil {
				return nil, invalid(fmt.Sprintf("loans[%d]", i), "amount, termWeeks and interestRate are required")
			}
			d.Loans = append(d.Loans, Loan{Amount: *l.Amount, TermWeeks: int(*l.TermWeeks), InterestRate: *l.InterestRate})
		}
	}
	return d, nil
}
