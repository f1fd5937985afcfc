package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"denim-factory/factory"
)

func submitProduction(t *testing.T, s *Store, code, playerID string) {
	t.Helper()
	submit(t, s, code, playerID, factory.RoleProduction)
}

func processRound(t *testing.T, s *Store, code string) RoundSummary {
	t.Helper()
	summary, err := s.ProcessRound(context.Background(), code)
	if err != nil {
		t.Fatalf("ProcessRound: %v", err)
	}
	return summary
}

func TestRoundProcessedWhenAllPlayersDecide(t *testing.T) {
	s := newTestStore()
	code, ids := seatGame(t, s, 12, true)

	var res SubmitResult
	for _, role := range factory.Roles {
		res = submit(t, s, code, ids[role], role)
	}
	if !res.AllPlayersDecided || !res.RoundProcessed || res.ProcessError != "" {
		t.Fatalf("last submit = %+v, want the round processed", res)
	}

	g := s.Games[code]
	if g.CurrentWeek != 2 || g.Status != statusInProgress {
		t.Fatalf("game at week %d status %s, want week 2 in_progress", g.CurrentWeek, g.Status)
	}
	if len(g.Rounds) != 1 || g.Rounds[0].Week != 1 {
		t.Fatalf("rounds = %+v", g.Rounds)
	}
	r := g.Rounds[0].Result
	if r.Production.RawMaterialUsed != 50 || r.Production.GoodUnits != 48 {
		t.Fatalf("production = %+v, want 50 used and 48 good", r.Production)
	}

	inv, ok := g.inventoryAt(1)
	if !ok || inv != r.NewInventory || inv.RawMaterial != 50 {
		t.Fatalf("week 1 inventory = %+v ok=%v, result %+v", inv, ok, r.NewInventory)
	}
	fs, ok := g.financialsAt(1)
	if !ok {
		t.Fatalf("week 1 ledger missing")
	}
	if want := factory.InitialCash + r.Income - r.TotalCosts + r.NewLoans; math.Abs(fs.Cash-want) > 1e-6 {
		t.Fatalf("cash = %v, want %v", fs.Cash, want)
	}
	if math.Abs(fs.AccumulatedProfit-fs.WeeklyProfit) > 1e-6 {
		t.Fatalf("accumulated profit %v differs from first weekly profit %v", fs.AccumulatedProfit, fs.WeeklyProfit)
	}

	if len(g.PurchaseOrders) != 1 {
		t.Fatalf("purchase orders = %+v", g.PurchaseOrders)
	}
	po := g.PurchaseOrders[0]
	if po.ID != 1 || po.Quantity != 60 || po.RequestedWeek != 1 || po.EstimatedWeek != 2 || po.TotalCost != 300 || po.Status != factory.PurchasePending {
		t.Fatalf("purchase order = %+v", po)
	}

	week2 := 0
	for _, o := range g.Orders {
		if o.CreatedWeek == 2 {
			week2++
		}
	}
	if week2 < 2 || week2 > 5 {
		t.Fatalf("week 2 demand = %d orders, want 2..5", week2)
	}
	for _, o := range g.Orders {
		if o.CreatedWeek == 1 && o.DueWeek == 1 && o.Status == factory.OrderPending {
			t.Fatalf("order %d due in week 1 was not settled: %+v", o.ID, o)
		}
	}
}

func TestProcessRoundWithoutDecisions(t *testing.T) {
	s := newTestStore()
	code, _ := seatGame(t, s, 12, true)
	before := s.Games[code]

	_, err := s.ProcessRound(context.Background(), code)
	if !errors.Is(err, errFailedPrecondition) {
		t.Fatalf("err = %v, want failed precondition", err)
	}
	if s.Games[code] != before {
		t.Fatalf("failed round replaced the stored game")
	}
	if len(before.Inventory) != 1 || len(before.Rounds) != 0 || before.CurrentWeek != 1 {
		t.Fatalf("failed round changed the game: %+v", before.summary())
	}
	if _, err := s.ProcessRound(context.Background(), "NOPE00"); !errors.Is(err, errNotFound) {
		t.Fatalf("unknown game err = %v", err)
	}
}

func TestMissingRolesPlayDefaults(t *testing.T) {
	s := newTestStore()
	code, ids := seatGame(t, s, 12, true)

	submitProduction(t, s, code, ids[factory.RoleProduction])
	processRound(t, s, code)

	g := s.Games[code]
	if len(g.PurchaseOrders) != 1 {
		t.Fatalf("purchase orders = %+v", g.PurchaseOrders)
	}
	po := g.PurchaseOrders[0]
	if po.Quantity != factory.DefaultPurchaseQuantity || po.EstimatedWeek != 2 || po.TotalCost != 400 {
		t.Fatalf("default purchase order = %+v", po)
	}

	submitProduction(t, s, code, ids[factory.RoleProduction])
	summary := processRound(t, s, code)
	if summary.Week != 2 {
		t.Fatalf("summary week = %d, want 2", summary.Week)
	}

	g = s.Games[code]
	if g.PurchaseOrders[0].Status != factory.PurchaseReceived {
		t.Fatalf("first purchase order = %+v, want received", g.PurchaseOrders[0])
	}
	if got := summary.Result.Production.RawMaterialAvailable; got != 130 {
		t.Fatalf("raw available in week 2 = %d, want 130", got)
	}
	if inv, _ := g.inventoryAt(2); inv.RawMaterial != 80 {
		t.Fatalf("week 2 raw material = %d, want 80", inv.RawMaterial)
	}
	if len(g.PurchaseOrders) != 2 || g.PurchaseOrders[1].ID != 2 || g.PurchaseOrders[1].EstimatedWeek != 3 {
		t.Fatalf("purchase orders after week 2 = %+v", g.PurchaseOrders)
	}
}

func TestLogisticsEventDelaysArrivals(t *testing.T) {
	s := newTestStore()
	code, ids := seatGame(t, s, 12, true)
	two := 2
	_, err := s.CreateEvent(context.Background(), code, EventInput{
		Type:        factory.EventLogistics,
		Description: "port strike",
		StartWeek:   &two,
		EndWeek:     &two,
		Effects:     factory.Effects{factory.EffectPurchaseDelayWeeks: 1},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	for week := 1; week <= 3; week++ {
		submitProduction(t, s, code, ids[factory.RoleProduction])
		summary := processRound(t, s, code)
		g := s.Games[code]
		switch week {
		case 2:
			po := g.PurchaseOrders[0]
			if po.Status != factory.PurchaseDelayed || po.EstimatedWeek != 3 {
				t.Fatalf("week 2 purchase order = %+v, want delayed to week 3", po)
			}
			if got := summary.Result.Production.RawMaterialAvailable; got != 50 {
				t.Fatalf("week 2 raw available = %d, want 50", got)
			}
		case 3:
			for _, po := range g.PurchaseOrders[:2] {
				if po.Status != factory.PurchaseReceived {
					t.Fatalf("week 3 purchase order = %+v, want received", po)
				}
			}
			if got := summary.Result.Production.RawMaterialAvailable; got != 160 {
				t.Fatalf("week 3 raw available = %d, want 160", got)
			}
		}
	}
}

func TestLastWeekFinishesGame(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	code, ids := seatGame(t, s, 1, true)
	ordersBefore := len(s.Games[code].Orders)

	for _, role := range factory.Roles {
		submit(t, s, code, ids[role], role)
	}
	g := s.Games[code]
	if g.Status != statusFinished || g.FinishedAt.IsZero() {
		t.Fatalf("game = %+v, want finished", g.summary())
	}
	if g.CurrentWeek != 1 {
		t.Fatalf("current week = %d, want it to stay at 1", g.CurrentWeek)
	}
	if len(g.Orders) != ordersBefore {
		t.Fatalf("finished game generated more demand")
	}

	data := json.RawMessage(testDecisionData[factory.RoleQuality])
	if _, err := s.SubmitDecision(ctx, code, ids[factory.RoleQuality], "QUALITY", data); !errors.Is(err, errFailedPrecondition) {
		t.Fatalf("submit after finish err = %v", err)
	}
	if _, err := s.ProcessRound(ctx, code); !errors.Is(err, errFailedPrecondition) {
		t.Fatalf("process after finish err = %v", err)
	}
	if _, _, err := s.JoinGame(ctx, code, "late", "QUALITY"); !errors.Is(err, errFailedPrecondition) {
		t.Fatalf("join after finish err = %v", err)
	}
	rounds, _ := s.ListRounds(code)
	if len(rounds) != 1 {
		t.Fatalf("rounds = %d, want 1", len(rounds))
	}
}

func TestRandomEventsFollowSeed(t *testing.T) {
	play := func() []factory.GameEvent {
		s := newTestStore()
		s.settings.RandomEvents = true
		code, ids := seatGame(t, s, 30, true)
		for week := 1; week <= 25; week++ {
			submitProduction(t, s, code, ids[factory.RoleProduction])
			processRound(t, s, code)
		}
		return s.Games[code].Events
	}
	a, b := play(), play()
	if len(a) == 0 {
		t.Fatalf("25 weeks produced no random event")
	}
	if len(a) != len(b) {
		t.Fatalf("same seed produced %d and %d events", len(a), len(b))
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].StartWeek != b[i].StartWeek || a[i].EndWeek != a[i].StartWeek {
			t.Fatalf("event %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
