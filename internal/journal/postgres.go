package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres persists the journal in a postgres table managed by the goose
// migrations under sql/.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Record(ctx context.Context, e Event) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ledger_events
			(id, event_type, user_addr, asset_id, amount, counterpart, chain_id, detail, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, string(e.Type), e.User, e.Asset, e.Amount.String(),
		e.Counterpart, int64(e.ChainID), e.Detail, string(e.Status), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: insert event: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.User != "" {
		add("user_addr = $%d", f.User)
	}
	if f.Asset != "" {
		add("asset_id = $%d", f.Asset)
	}
	if f.Type != "" {
		add("event_type = $%d", string(f.Type))
	}

	q := `SELECT id, event_type, user_addr, asset_id, amount, counterpart, chain_id, detail, status, created_at
		FROM ledger_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) PendingDeliveries(ctx context.Context) ([]Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, event_type, user_addr, asset_id, amount, counterpart, chain_id, detail, status, created_at
		FROM ledger_events
		WHERE event_type = $1 AND status = $2
		ORDER BY created_at ASC`,
		string(EventPendingDelivery), string(DeliveryPending),
	)
	if err != nil {
		return nil, fmt.Errorf("journal: pending deliveries: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (p *Postgres) ResolveDelivery(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE ledger_events SET status = $1
		WHERE id = $2 AND event_type = $3 AND status = $4`,
		string(DeliveryResolved), id, string(EventPendingDelivery), string(DeliveryPending),
	)
	if err != nil {
		return fmt.Errorf("journal: resolve delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var (
			e       Event
			typ     string
			amount  string
			chainID int64
			status  string
		)
		if err := rows.Scan(&e.ID, &typ, &e.User, &e.Asset, &amount,
			&e.Counterpart, &chainID, &e.Detail, &status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("journal: parse amount %q: %w", amount, err)
		}
		e.Type = EventType(typ)
		e.Amount = amt
		e.ChainID = uint64(chainID)
		e.Status = DeliveryStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
