package profilesql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/serviceerr"
)

var selectColumns = strings.Join(profile.Columns(), ", ")

type Repository struct {
	db *pgxpool.Pool
}

var _ = profile.Repository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Get(ctx context.Context, id string) (profile.Record, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "get_profile_sql")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1;`, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("selecting from profiles: %w", err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serviceerr.ErrNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("scanning rows: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("committing tx: %w", err)
	}

	return profile.Record(rec), nil
}

// Create inserts the id, name, phone and role of the record. All other
// columns start out NULL.
func (r *Repository) Create(ctx context.Context, rec profile.Record) (profile.Record, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "create_profile_sql")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`INSERT INTO profiles (id, name, phone, role)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+selectColumns+`;`,
		rec["id"], rec["name"], rec["phone"], rec["role"],
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("inserting into profiles: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		span.RecordError(err)
		if err, ok := handlePgError(err); ok {
			return nil, err
		}

		return nil, fmt.Errorf("inserting into profiles: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return profile.Record(created), nil
}
