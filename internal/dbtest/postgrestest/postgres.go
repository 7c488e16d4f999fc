package postgrestest

import (
	"context"
	"log/slog"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/config"
	migrations "github.com/property360/usersession/sql"
)

const (
	DBHost     = "localhost"
	DBUser     = "postgres"
	DBPassword = "secret"
	DBName     = "usersession"
	DBSSLMode  = "disable"
)

// Pre-defined profiles inserted by prepareDB.
const (
	FullProfileID    = "user-full"
	MinimalProfileID = "user-minimal"
)

// Start initialises a database instance and returns a connection pool, database port, and termination function.
//
// Database credentials are available as exported variables.
// The database contains pre-defined test data. See INSERT statements in the prepareDB.
func Start(ctx context.Context) (*pgxpool.Pool, nat.Port, func(ctx context.Context)) {
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(DBName),
		postgres.WithUsername(DBUser),
		postgres.WithPassword(DBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		slogctx.Error(ctx, "Failed to start PostgreSQL", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the PosgtgreSQL container", slog.String("error", err.Error()))
		panic(err)
	}

	dbPool := makeDBConn(ctx, port)
	prepareDB(ctx, dbPool)

	terminate := func(ctx context.Context) {
		dbPool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate PosgtgreSQL container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return dbPool, port, terminate
}

// Database returns the profile store configuration of the container
// listening on port.
func Database(port nat.Port) config.Database {
	embedded := func(v string) commoncfg.SourceRef {
		return commoncfg.SourceRef{Source: "embedded", Value: v}
	}

	return config.Database{
		Name:     DBName,
		Port:     port.Port(),
		Host:     embedded(DBHost),
		User:     embedded(DBUser),
		Password: embedded(DBPassword),
		SSLMode:  DBSSLMode,
	}
}

func makeDBConn(ctx context.Context, port nat.Port) *pgxpool.Pool {
	dsn, err := Database(port).DSN()
	if err != nil {
		panic(err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		panic(err)
	}

	return pool
}

func migrateDB(ctx context.Context, dbPool *pgxpool.Pool) {
	db := stdlib.OpenDBFromPool(dbPool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("pgx"); err != nil {
		panic(err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		panic(err)
	}
}

func prepareDB(ctx context.Context, dbPool *pgxpool.Pool) {
	migrateDB(ctx, dbPool)

	b := new(pgx.Batch)
	b.Queue(`INSERT INTO profiles (id, name, phone, role, service_name, bio, location, price, profile_image, banner_image)
		VALUES ($1, 'Ravi', '9876543210', 'agent', 'Premium Property Services', 'Expert in property transactions', 'Mumbai, Maharashtra', '5000', 'img/ravi.png', 'img/ravi-banner.png');`, FullProfileID)
	b.Queue(`INSERT INTO profiles (id, name, phone, role) VALUES ($1, 'Meera', '9123456780', 'buyer');`, MinimalProfileID)

	res := dbPool.SendBatch(ctx, b)
	if err := res.Close(); err != nil {
		panic(err)
	}
}
