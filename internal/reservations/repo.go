package reservations

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// CreateWithinCapacity inserts r unless its slot already holds maxParties active reservations.
	CreateWithinCapacity(ctx context.Context, r *Reservation, maxParties int) error
	Get(ctx context.Context, id string) (Reservation, error)
	ListByEmail(ctx context.Context, email string) ([]Reservation, error)
	ListBetween(ctx context.Context, location string, from, to time.Time) ([]Reservation, error)
	UpdateStatusIf(ctx context.Context, id string, from, to Status, updatedAt time.Time) (bool, error)
}

type Repo struct{ DB *pgxpool.Pool }

const columns = `id, name, email, phone, party_size, location, reserved_for, notes, status, created_at, updated_at`

// CreateWithinCapacity serialises writers on the (location, slot) pair with a
// transaction-scoped advisory lock, counts, then inserts. Nothing commits when full.
func (r *Repo) CreateWithinCapacity(ctx context.Context, res *Reservation, maxParties int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	slot := SlotStart(res.ReservedFor)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, slotLockKey(res.Location, slot)); err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE location = $1 AND slot_start = $2 AND status NOT IN ('cancelled', 'no_show')`,
		res.Location, slot).Scan(&n)
	if err != nil {
		return fmt.Errorf("count slot: %w", err)
	}
	if n >= maxParties {
		return ErrSlotFull // rollback via defer
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations(id, name, email, phone, party_size, location, reserved_for, slot_start,
			notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		res.ID, res.Name, strings.ToLower(res.Email), res.Phone, res.PartySize, res.Location,
		res.ReservedFor, slot, res.Notes, string(res.Status), res.CreatedAt, res.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (Reservation, error) {
	res, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM reservations WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *Repo) ListByEmail(ctx context.Context, email string) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM reservations
		WHERE email=$1 ORDER BY reserved_for, id`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("list reservations by email: %w", err)
	}
	return collect(rows)
}

func (r *Repo) ListBetween(ctx context.Context, location string, from, to time.Time) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM reservations
		WHERE location=$1 AND reserved_for >= $2 AND reserved_for < $3
		ORDER BY reserved_for, id`, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return collect(rows)
}

func (r *Repo) UpdateStatusIf(ctx context.Context, id string, from, to Status, updatedAt time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4`,
		id, string(to), updatedAt, string(from))
	if err != nil {
		return false, fmt.Errorf("update reservation status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func collect(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()
	var out []Reservation
	for rows.Next() {
		res, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scan(row pgx.Row) (Reservation, error) {
	var (
		res    Reservation
		status string
	)
	err := row.Scan(&res.ID, &res.Name, &res.Email, &res.Phone, &res.PartySize, &res.Location,
		&res.ReservedFor, &res.Notes, &status, &res.CreatedAt, &res.UpdatedAt)
	res.Status = Status(status)
	return res, err
}

func slotLockKey(location string, slot time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(location))
	_, _ = h.Write([]byte(slot.UTC().Format(time.RFC3339)))
	return int64(h.Sum64())
}

var _ Repository = (*Repo)(nil)
