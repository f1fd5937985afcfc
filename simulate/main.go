// Command simulate plays a single-seat Denim Factory game in the terminal.
// Every role uses the same standing orders each week, so it is handy for
// checking how the economy behaves over a run.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"denim-factory/factory"
)

type plant struct {
	Week       int
	TotalWeeks int
	Inventory  factory.Inventory
	Ledger     factory.FinancialState

	Orders         []factory.CustomerOrder
	PurchaseOrders []factory.PurchaseOrder
	Events         []factory.GameEvent

	decisions    factory.DecisionsByRole
	price        float64
	randomEvents bool
	nextOrderID  int64
	nextPOID     int64
	nextEventID  int64
	rng          *rand.Rand
}

func main() {
	seedFlag := flag.Int64("seed", 0, "seed for rng")
	weeks := flag.Int("weeks", 12, "number of weeks to play")
	events := flag.Bool("events", true, "roll random events every week")
	plan := flag.Int("plan", factory.DefaultPlannedProduction, "planned production per week")
	buy := flag.Int("buy", factory.DefaultPurchaseQuantity, "raw material bought per week")
	price := flag.Float64("price", factory.DemandBasePrice, "base unit price of customer orders")
	inspection := flag.String("inspection", string(factory.DefaultInspectionLevel), "inspection level: ALTO, MEDIO or BAJO")
	auto := flag.Bool("auto", false, "play every week without waiting for commands")
	flag.Parse()

	if *weeks < 1 || *weeks > factory.MaxWeeks {
		fmt.Fprintf(os.Stderr, "weeks must be between 1 and %d\n", factory.MaxWeeks)
		os.Exit(2)
	}

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	standing := []factory.Decision{
		factory.PurchasingDecision{Orders: []factory.PurchaseLine{{
			Quantity:    *buy,
			LeadTime:    factory.DefaultPurchaseLeadTime,
			CostPerUnit: factory.BaseRawMaterialCostPerUnit,
		}}},
		factory.ProductionDecision{PlannedProduction: *plan},
		factory.QualityDecision{InspectionLevel: factory.InspectionLevel(*inspection)},
		factory.FinanceLogisticsDecision{ShippingPriorities: []int64{}},
	}
	var decisions factory.DecisionsByRole
	for _, d := range standing {
		if err := factory.Validate(d); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", d.Role(), err)
			os.Exit(2)
		}
		decisions.Set(d)
	}

	p := newPlant(rand.New(rand.NewSource(seed)), *weeks, *price, *events, decisions)

	if *auto {
		for !p.finished() {
			renderWeek(p.Advance())
		}
		renderStatus(p)
		return
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "advance":
			if p.finished() {
				fmt.Println("The season is over.")
				continue
			}
			renderWeek(p.Advance())
		case "status":
			renderStatus(p)
		case "quit":
			return
		default:
			fmt.Println("Unknown command. Available: advance, status, quit")
		}
	}
}

func newPlant(rng *rand.Rand, weeks int, price float64, randomEvents bool, decisions factory.DecisionsByRole) *plant {
	p := &plant{
		Week:         1,
		TotalWeeks:   weeks,
		Inventory:    factory.Inventory{RawMaterial: factory.InitialRawMaterial, FinishedGoods: factory.InitialFinishedGoods},
		Ledger:       factory.FinancialState{Cash: factory.InitialCash},
		decisions:    decisions,
		price:        price,
		randomEvents: randomEvents,
		rng:          rng,
	}
	p.addOrders(factory.GenerateWeeklyDemand(rng, 1, price, nil))
	return p
}

func (p *plant) finished() bool {
	return p.Week > p.TotalWeeks
}

type weekReport struct {
	Week      int
	Result    factory.RoundResult
	Delayed   int
	Arrived   int
	Events    []factory.GameEvent
	NewDemand int
}

// Advance settles the current week and rolls the plant into the next one.
func (p *plant) Advance() weekReport {
	week := p.Week
	events := factory.ActiveEvents(p.Events, week)
	arriving, delayed := factory.ApplyLogisticsDelays(factory.ArrivingPurchaseOrders(p.PurchaseOrders, week), events)

	res := factory.ProcessRound(factory.RoundContext{
		GameID:                 "simulate",
		Week:                   week,
		Inventory:              p.Inventory,
		CustomerOrdersDue:      factory.DueOrders(p.Orders, week),
		PurchaseOrdersArriving: arriving,
		FinancialStatePrev:     p.Ledger,
		EventsActive:           events,
		Decisions:              p.decisions,
	})

	p.Inventory = res.NewInventory
	p.Ledger = res.FinancialStateFor(week)
	p.mergeOrders(res.UpdatedCustomerOrders)
	p.mergePurchaseOrders(arriving, delayed)
	p.addPurchaseOrders(factory.PurchaseOrdersFromDecision(week, p.decisions.Purchasing))

	report := weekReport{Week: week, Result: res, Delayed: len(delayed), Arrived: len(arriving), Events: events}

	p.Week++
	if p.finished() {
		return report
	}
	if p.randomEvents {
		for _, ev := range factory.GenerateRandomEvents(p.rng, p.Week) {
			p.nextEventID++
			ev.ID = p.nextEventID
			p.Events = append(p.Events, ev)
		}
	}
	demand := factory.GenerateWeeklyDemand(p.rng, p.Week, p.price, p.Events)
	p.addOrders(demand)
	report.NewDemand = len(demand)
	return report
}

func (p *plant) addOrders(orders []factory.CustomerOrder) {
	for _, o := range orders {
		p.nextOrderID++
		o.ID = p.nextOrderID
		p.Orders = append(p.Orders, o)
	}
}

func (p *plant) addPurchaseOrders(pos []factory.PurchaseOrder) {
	for _, po := range pos {
		p.nextPOID++
		po.ID = p.nextPOID
		p.PurchaseOrders = append(p.PurchaseOrders, po)
	}
}

func (p *plant) mergeOrders(updated []factory.CustomerOrder) {
	byID := make(map[int64]factory.CustomerOrder, len(updated))
	for _, o := range updated {
		byID[o.ID] = o
	}
	for i, o := range p.Orders {
		if u, ok := byID[o.ID]; ok {
			p.Orders[i] = u
		}
	}
}

func (p *plant) mergePurchaseOrders(arrived, delayed []factory.PurchaseOrder) {
	status := map[int64]factory.PurchaseOrder{}
	for _, po := range arrived {
		po.Status = factory.PurchaseReceived
		status[po.ID] = po
	}
	for _, po := range delayed {
		status[po.ID] = po
	}
	for i, po := range p.PurchaseOrders {
		if u, ok := status[po.ID]; ok {
			p.PurchaseOrders[i] = u
		}
	}
}

func (p *plant) openOrders() (open, late int) {
	for _, o := range p.Orders {
		if o.Status != factory.OrderPending && o.Status != factory.OrderPartial {
			continue
		}
		open++
		if o.Overdue(p.Week) {
			late++
		}
	}
	return open, late
}

func renderWeek(r weekReport) {
	res := r.Result
	fmt.Printf("Week %d\n", r.Week)
	for _, ev := range r.Events {
		fmt.Printf("  event: %s (%s)\n", ev.Description, ev.Type)
	}
	fmt.Printf("  produced %d of %d capacity, defect rate %.1f%%\n",
		res.Production.FinishedGoodsProduced, res.Production.Capacity, res.Production.DefectRate*100)
	fmt.Printf("  purchase orders: %d arrived, %d delayed\n", r.Arrived, r.Delayed)
	fmt.Printf("  income %.2f, costs %.2f, profit %.2f\n", res.Income, res.TotalCosts, res.NewFinancialState.WeeklyProfit)
	if r.NewDemand > 0 {
		fmt.Printf("  %d new customer orders\n", r.NewDemand)
	}
}

func renderStatus(p *plant) {
	if p.finished() {
		fmt.Printf("Season over after %d weeks\n", p.TotalWeeks)
	} else {
		fmt.Printf("Week %d of %d\n", p.Week, p.TotalWeeks)
	}
	fmt.Printf("Raw material: %d, finished goods: %d\n", p.Inventory.RawMaterial, p.Inventory.FinishedGoods)
	fmt.Printf("Cash: %.2f, debt: %.2f, accumulated profit: %.2f\n", p.Ledger.Cash, p.Ledger.TotalDebt, p.Ledger.AccumulatedProfit)
	open, late := p.openOrders()
	fmt.Printf("Open orders: %d (%d late)\n", open, late)
}
