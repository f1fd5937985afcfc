package factory

// RawMaterialCost prices the raw material consumed this week.
func RawMaterialCost(rawUsed int, d *PurchasingDecision) float64 {
	unitCost := BaseRawMaterialCostPerUnit
	multiplier := 1.0
	if d != nil {
		if len(d.Orders) > 0 {
			unitCost = d.Orders[0].CostPerUnit
		}
		multiplier = factor(rawCostByPurchasingStrategy, d.MinigameStrategy)
		multiplier *= factor(rawCostByProcurementMode, d.ProcurementMode)
	}
	return float64(rawUsed) * unitCost * multiplier
}

// LaborCost is charged on planned production, not on what was actually made.
func LaborCost(d *ProductionDecision) float64 {
	if d == nil {
		return 0
	}
	unitCost := BaseLaborCostPerUnit
	if d.ExtraHours {
		unitCost *= ExtraHoursLaborFactor
	}
	unitCost *= factor(laborByProductionStrategy, d.MinigameStrategy)
	unitCost *= factor(laborByShiftPlan, d.ShiftPlan)
	return float64(d.PlannedProduction) * unitCost
}

// QualityCost covers inspecting gross production plus any rework.
func QualityCost(d *QualityDecision, grossProduction, recoveredUnits int) float64 {
	if d == nil {
		return float64(grossProduction) * baseQualityCostPerUnit[InspectionMedium]
	}
	costPerUnit, ok := baseQualityCostPerUnit[d.InspectionLevel]
	if !ok {
		costPerUnit = baseQualityCostPerUnit[InspectionMedium]
	}
	costPerUnit *= factor(qualityCostByStrategy, d.MinigameStrategy)

	rework := 0.0
	if d.ReworkPolicy == ReworkPartial {
		rework = float64(recoveredUnits) * ReworkCostPerUnit
	}
	return float64(grossProduction)*costPerUnit + rework
}

// LogisticsCost charges one shipment per order that received units this round.
func LogisticsCost(ordersShipped int, d *FinanceLogisticsDecision) float64 {
	multiplier := 1.0
	if d != nil {
		multiplier = factor(logisticsByStrategy, d.MinigameStrategy)
		multiplier *= factor(logisticsByCashAllocation, d.CashAllocation)
	}
	return float64(ordersShipped) * BaseLogisticsCostPerOrder * multiplier
}

// InterestCost accrues on last week's debt only; loans taken this week start
// accruing next week.
func InterestCost(prev FinancialState, d *FinanceLogisticsDecision) float64 {
	interest := prev.TotalDebt * BaseInterestRatePerWeek
	if d != nil && d.CashAllocation == CashPayDebt {
		interest *= PayDebtInterestFactor
	}
	return interest
}

// PenaltyCost charges every unit still owed on orders that are past due.
func PenaltyCost(orders []CustomerOrder, week int, d *FinanceLogisticsDecision) float64 {
	penalties := 0.0
	for _, o := range orders {
		if o.Overdue(week) {
			penalties += float64(o.Remaining()) * PenaltyPerLateUnit
		}
	}
	if d != nil {
		penalties *= factor(penaltyByStrategy, d.MinigameStrategy)
		penalties *= factor(penaltyByCashAllocation, d.CashAllocation)
	}
	return penalties
}
