package factory

// NewLoansAmount sums the principal of every loan requested this week.
func NewLoansAmount(d *FinanceLogisticsDecision) float64 {
	if d == nil {
		return 0
	}
	total := 0.0
	for _, l := range d.Loans {
		total += l.Amount
	}
	return total
}

// Settle combines income, costs and new financing with the prior ledger entry.
// Debt is never amortized.
func Settle(prev FinancialState, income float64, costs Costs, newLoans float64) SettledFinancials {
	totalCosts := costs.Total()
	weeklyProfit := income - totalCosts
	return SettledFinancials{
		Cash:              prev.Cash + income - totalCosts + newLoans,
		TotalDebt:         prev.TotalDebt + newLoans,
		InterestsPaid:     costs.Interests,
		WeeklyProfit:      weeklyProfit,
		AccumulatedProfit: prev.AccumulatedProfit + weeklyProfit,
	}
}

// ProcessRound settles one week. It is deterministic and does not modify ctx;
// missing decisions must be filled by the caller beforehand.
func ProcessRound(ctx RoundContext) RoundResult {
	production, inv := resolveProduction(ctx)

	var priorities []int64
	if fl := ctx.Decisions.FinanceLogistics; fl != nil {
		priorities = fl.ShippingPriorities
	}
	shipped := fulfillOrders(PrioritizeOrders(ctx.CustomerOrdersDue, priorities), inv.FinishedGoods)
	inv.FinishedGoods = shipped.finishedGoods

	costs := Costs{
		RawMaterial: RawMaterialCost(production.RawMaterialUsed, ctx.Decisions.Purchasing),
		Labor:       LaborCost(ctx.Decisions.Production),
		Quality:     QualityCost(ctx.Decisions.Quality, production.GrossProduction, production.RecoveredUnits),
		Logistics:   LogisticsCost(shipped.ordersShipped, ctx.Decisions.FinanceLogistics),
		Interests:   InterestCost(ctx.FinancialStatePrev, ctx.Decisions.FinanceLogistics),
		Penalties:   PenaltyCost(shipped.orders, ctx.Week, ctx.Decisions.FinanceLogistics),
	}
	newLoans := NewLoansAmount(ctx.Decisions.FinanceLogistics)

	return RoundResult{
		NewInventory:          inv,
		UpdatedCustomerOrders: shipped.orders,
		NewFinancialState:     Settle(ctx.FinancialStatePrev, shipped.income, costs, newLoans),
		Income:                shipped.income,
		Costs:                 costs,
		TotalCosts:            costs.Total(),
		NewLoans:              newLoans,
		Production:            production,
	}
}
