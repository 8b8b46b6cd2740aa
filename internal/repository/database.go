package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeengine/internal/repository/queries"
	"tradeengine/types"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrPortfolioNotFound = errors.New("portfolio not found in datasource")
	ErrNoPrices          = errors.New("no prices found in datasource")
)

// DefaultSignalWindow is how far back from the portfolio timestamp signals
// are read.
const DefaultSignalWindow = 24 * time.Hour

type portfoliosRepository interface {
	GetPortfolio(ctx context.Context, id string) (queries.Portfolio, error)
	ListPortfolioIDs(ctx context.Context) ([]string, error)
	ListPositions(ctx context.Context, portfolioID string) ([]queries.Position, error)
}
type signalsRepository interface {
	ListSignals(ctx context.Context, arg queries.ListSignalsParams) ([]queries.Signal, error)
}
type pricesRepository interface {
	ListLatestPrices(ctx context.Context, asOf time.Time) ([]queries.LatestPrice, error)
}
type runsRepository interface {
	InsertRun(ctx context.Context, arg queries.InsertRunParams) error
	InsertProposedTrade(ctx context.Context, arg queries.InsertProposedTradeParams) error
}

// Database struct that holds the database connection and queries.
type Database struct {
	portfolios   portfoliosRepository
	signals      signalsRepository
	prices       pricesRepository
	inTx         func(ctx context.Context, fn func(runsRepository) error) error
	conn         *pgxpool.Pool
	limits       types.RiskLimits
	signalWindow time.Duration
}

// NewDatabase creates a new Database instance and verifies connectivity.
// limits are attached to every portfolio loaded through it.
func NewDatabase(ctx context.Context, dbURL string, limits types.RiskLimits) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	q := queries.New(conn)
	return &Database{
		portfolios: q,
		signals:    q,
		prices:     q,
		inTx: func(ctx context.Context, fn func(runsRepository) error) error {
			return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				return fn(q.WithTx(tx))
			})
		},
		conn:         conn,
		limits:       limits,
		signalWindow: DefaultSignalWindow,
	}, nil
}

// SetSignalWindow changes the look-back used when reading signals.
func (db *Database) SetSignalWindow(d time.Duration) {
	if d > 0 {
		db.signalWindow = d
	}
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
