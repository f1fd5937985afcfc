package factory

// Lookup tables for the optional strategy and exclusive-action enums. A value
// missing from a table leaves the formula untouched.

var capacityByProductionStrategy = map[ProductionStrategy]float64{
	StrategyLineBalance:           1.10,
	StrategyMaxPace:               1.20,
	StrategyPreventiveMaintenance: 0.90,
}

var capacityByShiftPlan = map[ShiftPlan]float64{
	ShiftDouble: 1.15,
}

var defectDeltaByQualityStrategy = map[QualityStrategy]float64{
	StrategySmartSampling:   -0.01,
	StrategyFullCalibration: -0.02,
	StrategyExpressAudit:    0.01,
}

var defectDeltaByProductionStrategy = map[ProductionStrategy]float64{
	StrategyMaxPace:               0.02,
	StrategyPreventiveMaintenance: -0.01,
}

var defectDeltaByProcurementMode = map[ProcurementMode]float64{
	ProcurementSpot:     0.01,
	ProcurementContract: -0.005,
}

var rawCostByPurchasingStrategy = map[PurchasingStrategy]float64{
	StrategyNegotiatePrice: 0.92,
	StrategyUrgentDelivery: 1.08,
}

var rawCostByProcurementMode = map[ProcurementMode]float64{
	ProcurementSpot:     0.94,
	ProcurementContract: 1.04,
}

var laborByProductionStrategy = map[ProductionStrategy]float64{
	StrategyMaxPace:               1.15,
	StrategyPreventiveMaintenance: 0.95,
}

var laborByShiftPlan = map[ShiftPlan]float64{
	ShiftDouble: 1.2,
}

var qualityCostByStrategy = map[QualityStrategy]float64{
	StrategySmartSampling:   0.95,
	StrategyFullCalibration: 1.10,
	StrategyExpressAudit:    0.90,
}

var logisticsByStrategy = map[LogisticsStrategy]float64{
	StrategyConsolidateLoad: 0.85,
	StrategyExpressShipping: 1.20,
}

var logisticsByCashAllocation = map[CashAllocation]float64{
	CashPayDebt: 1.05,
}

var penaltyByStrategy = map[LogisticsStrategy]float64{
	StrategyExpressShipping:      0.85,
	StrategyPrioritizeDelinquent: 0.70,
}

var penaltyByCashAllocation = map[CashAllocation]float64{
	CashOperations: 0.90,
}

// factor returns the multiplier for key, or 1 when the table has none.
func factor[K comparable](table map[K]float64, key K) float64 {
	if m, ok := table[key]; ok {
		return m
	}
	return 1
}

// delta returns the additive adjustment for key, or 0.
func delta[K comparable](table map[K]float64, key K) float64 {
	return table[key]
}

// scaleRounded multiplies units by the multiplier for key and rounds, leaving
// units untouched when the table has no entry.
func scaleRounded[K comparable](units int, table map[K]float64, key K) int {
	m, ok := table[key]
	if !ok {
		return units
	}
	return roundHalfUp(float64(units) * m)
}
