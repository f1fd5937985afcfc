package main

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type DBDialect string

const (
	dialectSQLite   DBDialect = "sqlite"
	dialectPostgres DBDialect = "postgres"
	dialectMemory   DBDialect = "memory"
)

type SQLRepository struct {
	dialect DBDialect
	db      *sql.DB
}

// gameTables lists every per-game table, children first so deletes never
// trip a foreign key.
var gameTables = []string{
	"round_results", "decisions", "game_events", "purchase_orders", "customer_orders",
	"financial_states", "inventory_states", "players", "games",
}

func newConfiguredStore(cfg Config, logger *slog.Logger) (*Store, error) {
	store := newStore(gameSettings{
		DefaultWeeks: cfg.DefaultWeeks,
		DemandPrice:  cfg.DemandPrice,
		RandomEvents: cfg.RandomEvents,
	}, cfg.RNGSeed, logger)
	repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return store, nil
	}
	store.repo = repo
	if err := repo.LoadInto(context.Background(), store); err != nil {
		_ = repo.Close()
		return nil, err
	}
	logger.Info("state loaded", "games", len(store.Games))
	return store, nil
}

// openRepository returns nil for the memory dialect.
func openRepository(cfg Config, logger *slog.Logger) (*SQLRepository, error) {
	dialectRaw := strings.TrimSpace(strings.ToLower(cfg.DBDialect))
	if dialectRaw == "" {
		dialectRaw = string(dialectSQLite)
	}
	dialect := DBDialect(dialectRaw)

	var driverName string
	var dsn string
	switch dialect {
	case dialectMemory:
		return nil, nil
	case dialectSQLite:
		driverName = "sqlite"
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = filepath.Join("tmp", "denim_factory.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case dialectPostgres:
		driverName = "pgx"
		dsn = strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			dsn = strings.TrimSpace(cfg.DatabaseURL)
		}
		if dsn == "" {
			return nil, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", dialectRaw)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == dialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	repo := &SQLRepository{dialect: dialect, db: db}
	if err := repo.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", "dialect", dialect)
	return repo, nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) bind(pos int) string {
	if r.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (r *SQLRepository) insertQuery(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = r.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func (r *SQLRepository) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	pattern := fmt.Sprintf("migrations/%s/*.sql", r.dialect)
	files, err := fs.Glob(migrationFS, pattern)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := r.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// SaveGame replaces every row of one game inside a single transaction.
func (r *SQLRepository) SaveGame(ctx context.Context, g *Game) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	if err := r.deleteGameRows(ctx, tx, g.Code); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := r.saveGameWithTx(ctx, tx, g); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// DeleteGame removes a game and everything that belongs to it.
func (r *SQLRepository) DeleteGame(ctx context.Context, code string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	if err := r.deleteGameRows(ctx, tx, code); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func (r *SQLRepository) deleteGameRows(ctx context.Context, tx *sql.Tx, code string) error {
	for _, tbl := range gameTables {
		col := "game_code"
		if tbl == "games" {
			col = "code"
		}
		q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", tbl, col, r.bind(1))
		if _, err := tx.ExecContext(ctx, q, code); err != nil {
			return fmt.Errorf("clear %s: %w", tbl, err)
		}
	}
	return nil
}

func (r *SQLRepository) saveGameWithTx(ctx context.Context, tx *sql.Tx, g *Game) error {
	now := time.Now().UTC()

	header := *g
	header.Players = nil
	header.Inventory = nil
	header.Financials = nil
	header.Orders = nil
	header.PurchaseOrders = nil
	header.Events = nil
	header.Decisions = nil
	header.Rounds = nil
	if err := r.insertJSONRow(ctx, tx, "games",
		[]string{"code", "status", "current_week", "total_weeks", "payload", "created_at", "updated_at", "finished_at"},
		[]any{g.Code, string(g.Status), g.CurrentWeek, g.TotalWeeks, asJSON(header), g.CreatedAt, now, nullableTime(g.FinishedAt)},
	); err != nil {
		return err
	}

	for _, p := range g.Players {
		if err := r.insertJSONRow(ctx, tx, "players",
			[]string{"id", "game_code", "role", "payload", "joined_at"},
			[]any{p.ID, g.Code, string(p.Role), asJSON(p), p.JoinedAt},
		); err != nil {
			return err
		}
	}
	for _, inv := range g.Inventory {
		if err := r.insertJSONRow(ctx, tx, "inventory_states",
			[]string{"game_code", "week", "payload"},
			[]any{g.Code, inv.Week, asJSON(inv)},
		); err != nil {
			return err
		}
	}
	for _, st := range g.Financials {
		if err := r.insertJSONRow(ctx, tx, "financial_states",
			[]string{"game_code", "week", "payload"},
			[]any{g.Code, st.Week, asJSON(st)},
		); err != nil {
			return err
		}
	}
	for _, o := range g.Orders {
		if err := r.insertJSONRow(ctx, tx, "customer_orders",
			[]string{"game_code", "id", "due_week", "status", "payload"},
			[]any{g.Code, o.ID, o.DueWeek, string(o.Status), asJSON(o)},
		); err != nil {
			return err
		}
	}
	for _, po := range g.PurchaseOrders {
		if err := r.insertJSONRow(ctx, tx, "purchase_orders",
			[]string{"game_code", "id", "estimated_week", "status", "payload"},
			[]any{g.Code, po.ID, po.EstimatedWeek, string(po.Status), asJSON(po)},
		); err != nil {
			return err
		}
	}
	for _, ev := range g.Events {
		if err := r.insertJSONRow(ctx, tx, "game_events",
			[]string{"game_code", "id", "start_week", "end_week", "payload"},
			[]any{g.Code, ev.ID, ev.StartWeek, ev.EndWeek, asJSON(ev)},
		); err != nil {
			return err
		}
	}
	for _, d := range g.Decisions {
		if err := r.insertJSONRow(ctx, tx, "decisions",
			[]string{"game_code", "player_id", "week", "payload", "submitted_at"},
			[]any{g.Code, d.PlayerID, d.Week, asJSON(d), d.SubmittedAt},
		); err != nil {
			return err
		}
	}
	for _, round := range g.Rounds {
		if err := r.insertJSONRow(ctx, tx, "round_results",
			[]string{"game_code", "week", "payload", "processed_at"},
			[]any{g.Code, round.Week, asJSON(round), round.ProcessedAt},
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) insertJSONRow(ctx context.Context, tx *sql.Tx, table string, cols []string, vals []any) error {
	q := r.insertQuery(table, cols)
	if _, err := tx.ExecContext(ctx, q, vals...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func asJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// LoadInto hydrates store with every persisted game.
func (r *SQLRepository) LoadInto(ctx context.Context, store *Store) error {
	games := map[string]*Game{}
	err := loadGameRows(ctx, r.db, "SELECT code, payload FROM games ORDER BY created_at", func(code, payload string) error {
		var g Game
		if err := json.Unmarshal([]byte(payload), &g); err != nil {
			return fmt.Errorf("decode game %s: %w", code, err)
		}
		games[code] = &g
		return nil
	})
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}

	children := []struct {
		table string
		order string
		apply func(g *Game, payload string) error
	}{
		{"players", "joined_at, id", func(g *Game, payload string) error {
			return appendJSON(&g.Players, payload)
		}},
		{"inventory_states", "week", func(g *Game, payload string) error {
			return appendJSON(&g.Inventory, payload)
		}},
		{"financial_states", "week", func(g *Game, payload string) error {
			return appendJSON(&g.Financials, payload)
		}},
		{"customer_orders", "id", func(g *Game, payload string) error {
			return appendJSON(&g.Orders, payload)
		}},
		{"purchase_orders", "id", func(g *Game, payload string) error {
			return appendJSON(&g.PurchaseOrders, payload)
		}},
		{"game_events", "id", func(g *Game, payload string) error {
			return appendJSON(&g.Events, payload)
		}},
		{"decisions", "week, submitted_at, player_id", func(g *Game, payload string) error {
			return appendJSON(&g.Decisions, payload)
		}},
		{"round_results", "week", func(g *Game, payload string) error {
			return appendJSON(&g.Rounds, payload)
		}},
	}
	for _, c := range children {
		q := fmt.Sprintf("SELECT game_code, payload FROM %s ORDER BY game_code, %s", c.table, c.order)
		err := loadGameRows(ctx, r.db, q, func(code, payload string) error {
			g, ok := games[code]
			if !ok {
				return nil
			}
			return c.apply(g, payload)
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", c.table, err)
		}
	}

	for code, g := range games {
		store.Games[code] = g
	}
	return nil
}

func appendJSON[T any](dst *[]T, payload string) error {
	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}

func loadGameRows(ctx context.Context, db *sql.DB, q string, fn func(code, payload string) error) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code, payload string
		if err := rows.Scan(&code, &payload); err != nil {
			return err
		}
		if err := fn(code, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

// runRetentionScheduler deletes finished games older than retention once at
// start and then on every tick until ctx is done.
func runRetentionScheduler(ctx context.Context, store *Store, retention, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		store.mu.Lock()
		store.purgeFinishedLocked(ctx, store.now(), retention)
		store.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// purgeFinishedLocked drops finished games whose FinishedAt is before
// now-retention and returns their codes.
func (s *Store) purgeFinishedLocked(ctx context.Context, now time.Time, retention time.Duration) []string {
	cutoff := now.Add(-retention)
	var purged []string
	for code, g := range s.Games {
		if g.Status != statusFinished || g.FinishedAt.IsZero() || !g.FinishedAt.Before(cutoff) {
			continue
		}
		if s.repo != nil {
			if err := s.repo.DeleteGame(ctx, code); err != nil {
				s.logger.Error("delete finished game failed", "game", code, "error", err)
				continue
			}
		}
		delete(s.Games, code)
		purged = append(purged, code)
	}
	sort.Strings(purged)
	if len(purged) > 0 {
		s.logger.Info("finished games purged", "count", len(purged), "games", purged)
	}
	return purged
}
