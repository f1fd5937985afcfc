package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"denim-factory/factory"
)

type GameStatus string

const (
	statusConfiguring GameStatus = "configuring"
	statusInProgress  GameStatus = "in_progress"
	statusFinished    GameStatus = "finished"
)

const (
	playersPerGame = 4
	gameCodeBytes  = 3
	maxListedGames = 20
)

type Player struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Role     factory.Role `json:"role"`
	JoinedAt time.Time    `json:"joinedAt"`
}

type InventoryState struct {
	Week int `json:"week"`
	factory.Inventory
}

// Decision is one player's submission for a week. Data holds the validated
// decision in its wire form, including the type tag.
type Decision struct {
	PlayerID    string          `json:"playerId"`
	Week        int             `json:"week"`
	Role        factory.Role    `json:"type"`
	Data        json.RawMessage `json:"data"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

type RoundSummary struct {
	Week        int                 `json:"week"`
	Result      factory.RoundResult `json:"result"`
	ProcessedAt time.Time           `json:"processedAt"`
}

type Game struct {
	Code        string     `json:"code"`
	Status      GameStatus `json:"status"`
	CurrentWeek int        `json:"currentWeek"`
	TotalWeeks  int        `json:"totalWeeks"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FinishedAt  time.Time  `json:"finishedAt"`

	NextOrderID         int64 `json:"nextOrderId"`
	NextPurchaseOrderID int64 `json:"nextPurchaseOrderId"`
	NextEventID         int64 `json:"nextEventId"`

	Players        []Player                 `json:"players,omitempty"`
	Inventory      []InventoryState         `json:"inventory,omitempty"`
	Financials     []factory.FinancialState `json:"financials,omitempty"`
	Orders         []factory.CustomerOrder  `json:"orders,omitempty"`
	PurchaseOrders []factory.PurchaseOrder  `json:"purchaseOrders,omitempty"`
	Events         []factory.GameEvent      `json:"events,omitempty"`
	Decisions      []Decision               `json:"decisions,omitempty"`
	Rounds         []RoundSummary           `json:"rounds,omitempty"`
}

// gameSettings are the tunables every new game and round reads.
type gameSettings struct {
	DefaultWeeks int
	DemandPrice  float64
	RandomEvents bool
}

type Store struct {
	mu sync.Mutex

	Games map[string]*Game

	settings gameSettings
	repo     *SQLRepository
	logger   *slog.Logger
	rng      *mathrand.Rand
	now      func() time.Time
}

func newStore(settings gameSettings, seed int64, logger *slog.Logger) *Store {
	if seed == 0 {
		seed = randomSeed()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		Games:    map[string]*Game{},
		settings: settings,
		logger:   logger,
		rng:      mathrand.New(mathrand.NewSource(seed)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Close releases the repository, if any.
func (s *Store) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

func cloneGame(g *Game) (*Game, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("clone game %s: %w", g.Code, err)
	}
	var out Game
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone game %s: %w", g.Code, err)
	}
	return &out, nil
}

// updateGameLocked runs fn on a copy of the game and, if fn succeeds, persists
// the copy and swaps it in. On any error the stored game is left untouched.
func (s *Store) updateGameLocked(ctx context.Context, code string, fn func(g *Game) error) (*Game, error) {
	current, ok := s.Games[normalizeCode(code)]
	if !ok {
		return nil, notFound("game not found")
	}
	work, err := cloneGame(current)
	if err != nil {
		return nil, internalError("copy game state", err)
	}
	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = s.now()
	if err := s.commitLocked(ctx, work); err != nil {
		return nil, err
	}
	return work, nil
}

func (s *Store) commitLocked(ctx context.Context, g *Game) error {
	if s.repo != nil {
		if err := s.repo.SaveGame(ctx, g); err != nil {
			return internalError("persist game", err)
		}
	}
	s.Games[g.Code] = g
	return nil
}

func (s *Store) gameLocked(code string) (*Game, error) {
	g, ok := s.Games[normalizeCode(code)]
	if !ok {
		return nil, notFound("game not found")
	}
	return g, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Store) newGameCodeLocked() (string, error) {
	b := make([]byte, gameCodeBytes)
	for range 16 {
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		code := strings.ToUpper(hex.EncodeToString(b))
		if _, taken := s.Games[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free game code after 16 attempts")
}

// CreateGame starts a game in configuring state with the opening inventory,
// the opening ledger entry and the first week of demand.
func (s *Store) CreateGame(ctx context.Context, totalWeeks *int) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	weeks := s.settings.DefaultWeeks
	if totalWeeks != nil {
		weeks = *totalWeeks
	}
	if weeks < 1 || weeks > factory.MaxWeeks {
		return nil, invalidArgument(fmt.Sprintf("totalWeeks must be between 1 and %d", factory.MaxWeeks))
	}

	code, err := s.newGameCodeLocked()
	if err != nil {
		return nil, internalError("generate game code", err)
	}
	now := s.now()
	g := &Game{
		Code:        code,
		Status:      statusConfiguring,
		CurrentWeek: 1,
		TotalWeeks:  weeks,
		CreatedAt:   now,
		UpdatedAt:   now,
		Inventory: []InventoryState{{
			Week:      0,
			Inventory: factory.Inventory{RawMaterial: factory.InitialRawMaterial, FinishedGoods: factory.InitialFinishedGoods},
		}},
		Financials: []factory.FinancialState{{Week: 0, Cash: factory.InitialCash}},
	}
	g.addOrders(factory.GenerateWeeklyDemand(s.rng, 1, s.settings.DemandPrice, g.Events))

	if err := s.commitLocked(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("game created", "game", g.Code, "total_weeks", g.TotalWeeks)
	return g, nil
}

type GameSummary struct {
	Code        string     `json:"code"`
	Status      GameStatus `json:"status"`
	CurrentWeek int        `json:"currentWeek"`
	TotalWeeks  int        `json:"totalWeeks"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (g *Game) summary() GameSummary {
	return GameSummary{
		Code:        g.Code,
		Status:      g.Status,
		CurrentWeek: g.CurrentWeek,
		TotalWeeks:  g.TotalWeeks,
		CreatedAt:   g.CreatedAt,
	}
}

// ListGames returns the most recently created games first.
func (s *Store) ListGames() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	games := make([]*Game, 0, len(s.Games))
	for _, g := range s.Games {
		games = append(games, g)
	}
	slices.SortFunc(games, func(a, b *Game) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	if len(games) > maxListedGames {
		games = games[:maxListedGames]
	}
	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, g.summary())
	}
	return out
}

// JoinGame seats a new player in a free role.
func (s *Store) JoinGame(ctx context.Context, code, name, role string) (*Game, Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Player{}, invalidArgument("name is required")
	}
	r, ok := factory.ParseRole(role)
	if !ok {
		return nil, Player{}, invalidArgument("invalid role")
	}

	var p Player
	g, err := s.updateGameLocked(ctx, code, func(g *Game) error {
		if g.Status != statusConfiguring && g.Status != statusInProgress {
			return failedPrecondition("game does not accept new players")
		}
		if len(g.Players) >= playersPerGame {
			return failedPrecondition(fmt.Sprintf("game already has %d players", playersPerGame))
		}
		if _, taken := g.playerByRole(r); taken {
			return failedPrecondition("role already taken in this game")
		}
		p = Player{ID: uuid.NewString(), Name: name, Role: r, JoinedAt: s.now()}
		g.Players = append(g.Players, p)
		return nil
	})
	if err != nil {
		return nil, Player{}, err
	}
	s.logger.Info("player joined", "game", g.Code, "player", p.ID, "role", p.Role)
	return g, p, nil
}

// StartGame moves a full game from configuring to in progress.
func (s *Store) StartGame(ctx context.Context, code string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateGameLocked(ctx, code, func(g *Game) error {
		if g.Status != statusConfiguring {
			return failedPrecondition("game was already started or finished")
		}
		if len(g.Players) < playersPerGame {
			return failedPrecondition(fmt.Sprintf("%d players are required to start", playersPerGame))
		}
		g.Status = statusInProgress
		return nil
	})
}

type SubmitResult struct {
	AllPlayersDecided bool   `json:"allPlayersDecided"`
	RoundProcessed    bool   `json:"roundProcessed"`
	ProcessError      string `json:"processError,omitempty"`
}

// SubmitDecision records, or replaces, a player's decision for the current
// week. Once every seat has decided the round is processed right away; a
// failure there is reported in the result, not as an error.
func (s *Store) SubmitDecision(ctx context.Context, code, playerID, decisionType string, data json.RawMessage) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(playerID) == "" || strings.TrimSpace(decisionType) == "" {
		return SubmitResult{}, invalidArgument("playerId and type are required")
	}

	g, err := s.updateGameLocked(ctx, code, func(g *Game) error {
		if g.Status != statusInProgress {
			return failedPrecondition("game is not in progress")
		}
		p, ok := g.player(playerID)
		if !ok {
			return invalidArgument("player does not belong to this game")
		}
		payload, err := withTypeTag(decisionType, data)
		if err != nil {
			return err
		}
		d, err := factory.ValidateForRole(p.Role, payload)
		if err != nil {
			return err
		}
		canonical, err := json.Marshal(d)
		if err != nil {
			return internalError("encode decision", err)
		}
		g.upsertDecision(Decision{
			PlayerID:    p.ID,
			Week:        g.CurrentWeek,
			Role:        p.Role,
			Data:        canonical,
			SubmittedAt: s.now(),
		})
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	res := SubmitResult{AllPlayersDecided: g.allDecided(g.CurrentWeek)}
	if !res.AllPlayersDecided {
		return res, nil
	}
	if _, err := s.processRoundLocked(ctx, g.Code); err != nil {
		ae := asAppError(err)
		s.logger.Warn("automatic round processing failed", "game", g.Code, "week", g.CurrentWeek, "error", err)
		res.ProcessError = ae.Message
		return res, nil
	}
	res.RoundProcessed = true
	return res, nil
}

// withTypeTag merges the declared decision type into the data object.
func withTypeTag(decisionType string, data json.RawMessage) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, invalidArgument("data must be a JSON object")
		}
	}
	tag, err := json.Marshal(decisionType)
	if err != nil {
		return nil, invalidArgument("invalid type")
	}
	fields["type"] = tag
	return json.Marshal(fields)
}

type PlayerSubmission struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Role      factory.Role `json:"role"`
	Submitted bool         `json:"submitted"`
}

type DecisionsView struct {
	GameStatus        GameStatus         `json:"gameStatus"`
	CurrentWeek       int                `json:"currentWeek"`
	Week              int                `json:"week"`
	PlayersCount      int                `json:"playersCount"`
	SubmittedCount    int                `json:"submittedCount"`
	AllPlayersDecided bool               `json:"allPlayersDecided"`
	Players           []PlayerSubmission `json:"players"`
	Decisions         []Decision         `json:"decisions"`
}

// ListDecisions reports who has decided in week, which defaults to the
// current week when zero.
func (s *Store) ListDecisions(code string, week int) (DecisionsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.gameLocked(code)
	if err != nil {
		return DecisionsView{}, err
	}
	if week == 0 {
		week = g.CurrentWeek
	}
	if week < 1 {
		return DecisionsView{}, invalidArgument("invalid week")
	}

	decisions := g.decisionsForWeek(week)
	submitted := map[string]bool{}
	for _, d := range decisions {
		submitted[d.PlayerID] = true
	}
	view := DecisionsView{
		GameStatus:        g.Status,
		CurrentWeek:       g.CurrentWeek,
		Week:              week,
		PlayersCount:      len(g.Players),
		SubmittedCount:    len(submitted),
		AllPlayersDecided: g.allDecided(week),
		Players:           make([]PlayerSubmission, 0, len(g.Players)),
		Decisions:         decisions,
	}
	for _, p := range g.Players {
		view.Players = append(view.Players, PlayerSubmission{ID: p.ID, Name: p.Name, Role: p.Role, Submitted: submitted[p.ID]})
	}
	return view, nil
}

type OrderView struct {
	factory.CustomerOrder
	Late bool `json:"late"`
}

type GameStateView struct {
	Game           GameSummary             `json:"game"`
	Players        []Player                `json:"players"`
	Inventory      *InventoryState         `json:"inventory"`
	FinancialState *factory.FinancialState `json:"financialState"`
	OpenOrders     []OrderView             `json:"openOrders"`
	PurchaseOrders []factory.PurchaseOrder `json:"purchaseOrders"`
	ActiveEvents   []factory.GameEvent     `json:"activeEvents"`
	LastRound      *RoundSummary           `json:"lastRound,omitempty"`
}

// GameState is the board view: latest stock and ledger, open orders with a
// late flag, inbound purchase orders and the events active this week.
func (s *Store) GameState(code string) (GameStateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.gameLocked(code)
	if err != nil {
		return GameStateView{}, err
	}
	view := GameStateView{
		Game:           g.summary(),
		Players:        slices.Clone(g.Players),
		OpenOrders:     []OrderView{},
		PurchaseOrders: []factory.PurchaseOrder{},
		ActiveEvents:   factory.ActiveEvents(g.Events, g.CurrentWeek),
	}
	if view.Players == nil {
		view.Players = []Player{}
	}
	if view.ActiveEvents == nil {
		view.ActiveEvents = []factory.GameEvent{}
	}
	if n := len(g.Inventory); n > 0 {
		inv := g.Inventory[n-1]
		view.Inventory = &inv
	}
	if n := len(g.Financials); n > 0 {
		fs := g.Financials[n-1]
		view.FinancialState = &fs
	}
	if n := len(g.Rounds); n > 0 {
		r := g.Rounds[n-1]
		view.LastRound = &r
	}

	for _, o := range g.Orders {
		if o.Status != factory.OrderPending && o.Status != factory.OrderPartial {
			continue
		}
		view.OpenOrders = append(view.OpenOrders, OrderView{CustomerOrder: o, Late: o.Overdue(g.CurrentWeek)})
	}
	slices.SortStableFunc(view.OpenOrders, func(a, b OrderView) int { return a.DueWeek - b.DueWeek })

	for _, po := range g.PurchaseOrders {
		if po.Status == factory.PurchasePending || po.Status == factory.PurchaseDelayed {
			view.PurchaseOrders = append(view.PurchaseOrders, po)
		}
	}
	return view, nil
}

type EventInput struct {
	Type        factory.EventType `json:"type"`
	Description string            `json:"description"`
	StartWeek   *int              `json:"startWeek"`
	EndWeek     *int              `json:"endWeek"`
	Effects     factory.Effects   `json:"effects"`
}

var eventTypes = []factory.EventType{factory.EventOperational, factory.EventDemand, factory.EventFinancial, factory.EventLogistics}

// CreateEvent schedules a manual disruption.
func (s *Store) CreateEvent(ctx context.Context, code string, in EventInput) (factory.GameEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(eventTypes, in.Type) {
		return factory.GameEvent{}, invalidArgument("type must be one of operational, demand, financial, logistics")
	}
	if strings.TrimSpace(in.Description) == "" {
		return factory.GameEvent{}, invalidArgument("description is required")
	}
	if in.StartWeek == nil || in.EndWeek == nil {
		return factory.GameEvent{}, invalidArgument("startWeek and endWeek are required")
	}
	if *in.StartWeek < 1 || *in.EndWeek < *in.StartWeek {
		return factory.GameEvent{}, invalidArgument("weeks must satisfy 1 <= startWeek <= endWeek")
	}
	effects := in.Effects
	if effects == nil {
		effects = factory.Effects{}
	}

	var created factory.GameEvent
	_, err := s.updateGameLocked(ctx, code, func(g *Game) error {
		created = g.addEvent(factory.GameEvent{
			Type:        in.Type,
			Description: strings.TrimSpace(in.Description),
			StartWeek:   *in.StartWeek,
			EndWeek:     *in.EndWeek,
			Effects:     effects,
		})
		return nil
	})
	if err != nil {
		return factory.GameEvent{}, err
	}
	return created, nil
}

// ListEvents returns every event of the game by start week.
func (s *Store) ListEvents(code string) ([]factory.GameEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.gameLocked(code)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(g.Events)
	if out == nil {
		out = []factory.GameEvent{}
	}
	slices.SortStableFunc(out, func(a, b factory.GameEvent) int { return a.StartWeek - b.StartWeek })
	return out, nil
}

// ListRounds returns the stored round summaries in week order.
func (s *Store) ListRounds(code string) ([]RoundSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.gameLocked(code)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(g.Rounds)
	if out == nil {
		out = []RoundSummary{}
	}
	return out, nil
}

func (g *Game) player(id string) (Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (g *Game) playerByRole(r factory.Role) (Player, bool) {
	for _, p := range g.Players {
		if p.Role == r {
			return p, true
		}
	}
	return Player{}, false
}

func (g *Game) upsertDecision(d Decision) {
	for i, existing := range g.Decisions {
		if existing.PlayerID == d.PlayerID && existing.Week == d.Week {
			g.Decisions[i] = d
			return
		}
	}
	g.Decisions = append(g.Decisions, d)
}

func (g *Game) decisionsForWeek(week int) []Decision {
	out := []Decision{}
	for _, d := range g.Decisions {
		if d.Week == week {
			out = append(out, d)
		}
	}
	return out
}

func (g *Game) allDecided(week int) bool {
	if len(g.Players) != playersPerGame {
		return false
	}
	for _, p := range g.Players {
		found := false
		for _, d := range g.Decisions {
			if d.Week == week && d.PlayerID == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (g *Game) addOrders(orders []factory.CustomerOrder) {
	for _, o := range orders {
		g.NextOrderID++
		o.ID = g.NextOrderID
		g.Orders = append(g.Orders, o)
	}
}

func (g *Game) addPurchaseOrders(pos []factory.PurchaseOrder) {
	for _, po := range pos {
		g.NextPurchaseOrderID++
		po.ID = g.NextPurchaseOrderID
		g.PurchaseOrders = append(g.PurchaseOrders, po)
	}
}

func (g *Game) addEvent(ev factory.GameEvent) factory.GameEvent {
	g.NextEventID++
	ev.ID = g.NextEventID
	g.Events = append(g.Events, ev)
	return ev
}

func (g *Game) inventoryAt(week int) (factory.Inventory, bool) {
	for _, inv := range g.Inventory {
		if inv.Week == week {
			return inv.Inventory, true
		}
	}
	return factory.Inventory{}, false
}

func (g *Game) financialsAt(week int) (factory.FinancialState, bool) {
	for _, fs := range g.Financials {
		if fs.Week == week {
			return fs, true
		}
	}
	return factory.FinancialState{}, false
}
