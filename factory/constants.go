package factory

// Economic and operating parameters of the simulated factory.
const (
	InitialCash          = 10_000.0
	InitialRawMaterial   = 100
	InitialFinishedGoods = 50

	BaseRawMaterialCostPerUnit = 5.0
	BaseLaborCostPerUnit       = 2.0
	ExtraHoursLaborFactor      = 1.5
	ExtraHoursCapacityFactor   = 1.2
	BaseLogisticsCostPerOrder  = 10.0
	BaseInterestRatePerWeek    = 0.01
	PenaltyPerLateUnit         = 1.5
	ReworkCostPerUnit          = 0.4
	ReworkRecoveryShare        = 0.5
	PayDebtInterestFactor      = 0.8

	MaxDefectRate = 0.5

	DemandBaseMin   = 30
	DemandBaseMax   = 80
	DemandBasePrice = 20.0
	MaxWeeks        = 52
)

// Fallback decision values used when a role did not submit.
const (
	DefaultPurchaseQuantity   = 80
	DefaultPurchaseLeadTime   = 1
	DefaultPlannedProduction  = 80
	DefaultInspectionLevel    = InspectionMedium
	MaxPurchaseLeadTimeWeeks  = 10
	MaxShippingPriorityLength = 1000
	MaxUnitsPerDecision       = 1_000_000
)

var baseDefectRate = map[InspectionLevel]float64{
	InspectionHigh:   0.02,
	InspectionMedium: 0.05,
	InspectionLow:    0.10,
}

var baseQualityCostPerUnit = map[InspectionLevel]float64{
	InspectionHigh:   0.5,
	InspectionMedium: 0.3,
	InspectionLow:    0.1,
}
