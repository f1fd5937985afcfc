package main

import (
	"context"
	"fmt"

	"denim-factory/factory"
)

// ProcessRound settles the current week of a game.
func (s *Store) ProcessRound(ctx context.Context, code string) (RoundSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processRoundLocked(ctx, code)
}

func (s *Store) processRoundLocked(ctx context.Context, code string) (RoundSummary, error) {
	var summary RoundSummary
	g, err := s.updateGameLocked(ctx, code, func(g *Game) error {
		var err error
		summary, err = s.settleWeek(g)
		return err
	})
	if err != nil {
		return RoundSummary{}, err
	}
	s.logger.Info("round processed",
		"game", g.Code,
		"week", summary.Week,
		"income", summary.Result.Income,
		"weekly_profit", summary.Result.NewFinancialState.WeeklyProfit,
		"status", g.Status,
	)
	return summary, nil
}

// roundInput is what the engine is fed for one week plus the purchase orders
// a logistics event pushed back.
type roundInput struct {
	ctx     factory.RoundContext
	delayed []factory.PurchaseOrder
}

// assembleRound gathers the week's inputs from the game. It fails when the
// prior week's inventory or ledger entry is missing or no role has decided.
func assembleRound(g *Game, week int) (roundInput, error) {
	decisions, err := g.decisionsByRole(week)
	if err != nil {
		return roundInput{}, err
	}
	if decisions.Empty() {
		return roundInput{}, failedPrecondition(fmt.Sprintf("no decisions submitted for week %d", week))
	}
	inv, ok := g.inventoryAt(week - 1)
	if !ok {
		return roundInput{}, failedPrecondition(fmt.Sprintf("no inventory recorded for week %d", week-1))
	}
	prev, ok := g.financialsAt(week - 1)
	if !ok {
		return roundInput{}, failedPrecondition(fmt.Sprintf("no financial state recorded for week %d", week-1))
	}

	events := factory.ActiveEvents(g.Events, week)
	arriving, delayed := factory.ApplyLogisticsDelays(factory.ArrivingPurchaseOrders(g.PurchaseOrders, week), events)

	return roundInput{
		ctx: factory.RoundContext{
			GameID:                 g.Code,
			Week:                   week,
			Inventory:              inv,
			CustomerOrdersDue:      factory.DueOrders(g.Orders, week),
			PurchaseOrdersArriving: arriving,
			FinancialStatePrev:     prev,
			EventsActive:           events,
			Decisions:              factory.FillDefaults(decisions),
		},
		delayed: delayed,
	}, nil
}

// settleWeek runs the engine for the current week and applies its result to
// g, then advances the game or finishes it.
func (s *Store) settleWeek(g *Game) (RoundSummary, error) {
	if g.Status != statusConfiguring && g.Status != statusInProgress {
		return RoundSummary{}, failedPrecondition("game is finished")
	}
	week := g.CurrentWeek
	in, err := assembleRound(g, week)
	if err != nil {
		return RoundSummary{}, err
	}
	res := factory.ProcessRound(in.ctx)

	g.Inventory = append(g.Inventory, InventoryState{Week: week, Inventory: res.NewInventory})
	g.Financials = append(g.Financials, res.FinancialStateFor(week))
	g.replaceOrders(res.UpdatedCustomerOrders)
	g.receivePurchaseOrders(in.ctx.PurchaseOrdersArriving)
	g.replacePurchaseOrders(in.delayed)
	g.addPurchaseOrders(factory.PurchaseOrdersFromDecision(week, in.ctx.Decisions.Purchasing))

	summary := RoundSummary{Week: week, Result: res, ProcessedAt: s.now()}
	g.Rounds = append(g.Rounds, summary)

	if week >= g.TotalWeeks {
		g.Status = statusFinished
		g.FinishedAt = s.now()
		return summary, nil
	}
	g.Status = statusInProgress
	g.CurrentWeek = week + 1
	if s.settings.RandomEvents {
		for _, ev := range factory.GenerateRandomEvents(s.rng, g.CurrentWeek) {
			g.addEvent(ev)
		}
	}
	g.addOrders(factory.GenerateWeeklyDemand(s.rng, g.CurrentWeek, s.settings.DemandPrice, g.Events))
	return summary, nil
}

// decisionsByRole decodes the stored decisions of week.
func (g *Game) decisionsByRole(week int) (factory.DecisionsByRole, error) {
	var out factory.DecisionsByRole
	for _, d := range g.decisionsForWeek(week) {
		dec, err := factory.ValidateForRole(d.Role, d.Data)
		if err != nil {
			return factory.DecisionsByRole{}, internalError(fmt.Sprintf("stored decision of player %s is unreadable", d.PlayerID), err)
		}
		out.Set(dec)
	}
	return out, nil
}

func (g *Game) replaceOrders(updated []factory.CustomerOrder) {
	byID := make(map[int64]factory.CustomerOrder, len(updated))
	for _, o := range updated {
		byID[o.ID] = o
	}
	for i, o := range g.Orders {
		if u, ok := byID[o.ID]; ok {
			g.Orders[i] = u
		}
	}
}

func (g *Game) receivePurchaseOrders(arrived []factory.PurchaseOrder) {
	for _, a := range arrived {
		for i := range g.PurchaseOrders {
			if g.PurchaseOrders[i].ID == a.ID {
				g.PurchaseOrders[i].Status = factory.PurchaseReceived
			}
		}
	}
}

func (g *Game) replacePurchaseOrders(updated []factory.PurchaseOrder) {
	for _, u := range updated {
		for i := range g.PurchaseOrders {
			if g.PurchaseOrders[i].ID == u.ID {
				g.PurchaseOrders[i] = u
			}
		}
	}
}
