package factory

import "math"

// roundHalfUp rounds to the nearest integer with halves going up, the rule
// every unit count in the simulation uses.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Capacity is the number of units the line can process this week before raw
// material limits apply.
func Capacity(d *ProductionDecision, events []GameEvent) int {
	if d == nil {
		return 0
	}
	capacity := d.PlannedProduction
	for _, ev := range events {
		if ev.Type != EventOperational {
			continue
		}
		if m, ok := ev.Effects.Value(EffectProductionCapacityMultiplier); ok {
			capacity = roundHalfUp(float64(capacity) * m)
		}
	}
	if d.ExtraHours {
		capacity = roundHalfUp(float64(capacity) * ExtraHoursCapacityFactor)
	}
	capacity = scaleRounded(capacity, capacityByProductionStrategy, d.MinigameStrategy)
	capacity = scaleRounded(capacity, capacityByShiftPlan, d.ShiftPlan)
	return max(0, capacity)
}

// DefectRate is the share of gross production that fails inspection, always
// within [0, MaxDefectRate].
func DefectRate(decisions DecisionsByRole, events []GameEvent) float64 {
	level := DefaultInspectionLevel
	var qualityStrategy QualityStrategy
	if q := decisions.Quality; q != nil {
		level = q.InspectionLevel
		qualityStrategy = q.MinigameStrategy
	}
	rate, ok := baseDefectRate[level]
	if !ok {
		rate = baseDefectRate[InspectionMedium]
	}

	for _, ev := range events {
		if ev.Type != EventOperational {
			continue
		}
		if inc, ok := ev.Effects.Value(EffectDefectRateIncrease); ok {
			rate += inc
		}
	}

	rate += delta(defectDeltaByQualityStrategy, qualityStrategy)
	if p := decisions.Production; p != nil {
		rate += delta(defectDeltaByProductionStrategy, p.MinigameStrategy)
	}
	if c := decisions.Purchasing; c != nil {
		rate += delta(defectDeltaByProcurementMode, c.ProcurementMode)
	}

	return math.Min(math.Max(rate, 0), MaxDefectRate)
}

// resolveProduction turns available raw material into finished goods and
// returns the inventory after production.
func resolveProduction(ctx RoundContext) (Production, Inventory) {
	inv := ctx.Inventory
	for _, po := range ctx.PurchaseOrdersArriving {
		inv.RawMaterial += po.Quantity
	}

	p := Production{
		Capacity:             Capacity(ctx.Decisions.Production, ctx.EventsActive),
		RawMaterialAvailable: inv.RawMaterial,
	}
	p.RawMaterialUsed = min(inv.RawMaterial, p.Capacity)
	inv.RawMaterial -= p.RawMaterialUsed

	p.GrossProduction = p.RawMaterialUsed
	p.DefectRate = DefectRate(ctx.Decisions, ctx.EventsActive)
	p.GoodUnits = roundHalfUp(float64(p.GrossProduction) * (1 - p.DefectRate))
	p.DefectiveUnits = p.GrossProduction - p.GoodUnits
	if q := ctx.Decisions.Quality; q != nil && q.ReworkPolicy == ReworkPartial {
		p.RecoveredUnits = roundHalfUp(float64(p.DefectiveUnits) * ReworkRecoveryShare)
	}
	p.FinishedGoodsProduced = p.GoodUnits + p.RecoveredUnits
	inv.FinishedGoods += p.FinishedGoodsProduced

	return p, inv
}
