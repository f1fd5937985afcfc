package factory

// DefaultDecision is the fallback used for a role that did not submit.
func DefaultDecision(role Role) Decision {
	switch role {
	case RolePurchasing:
		return PurchasingDecision{
			Orders: []PurchaseLine{{
				Quantity:    DefaultPurchaseQuantity,
				LeadTime:    DefaultPurchaseLeadTime,
				CostPerUnit: BaseRawMaterialCostPerUnit,
			}},
		}
	case RoleProduction:
		return ProductionDecision{PlannedProduction: DefaultPlannedProduction}
	case RoleQuality:
		return QualityDecision{InspectionLevel: DefaultInspectionLevel}
	case RoleFinanceLogistics:
		return FinanceLogisticsDecision{Loans: []Loan{}, ShippingPriorities: []int64{}}
	}
	return nil
}

// FillDefaults returns d with every missing role replaced by its fallback.
func FillDefaults(d DecisionsByRole) DecisionsByRole {
	for _, role := range d.Missing() {
		d.Set(DefaultDecision(role))
	}
	return d
}
