package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/http/handlers"
	"github.com/wolfman30/nagrik-sahayak/internal/users"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// Storage bundles the relational stores. Pool, DB, and Outbox are nil in
// memory mode.
type Storage struct {
	Users      users.Repository
	Complaints complaints.Repository
	Outbox     *events.OutboxStore
	Pool       *pgxpool.Pool
	DB         *sql.DB
}

// BuildStorage connects to Postgres, or falls back to in-memory repositories
// when DATABASE_URL is empty or USE_MEMORY_STORES is set.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.UseMemoryStores || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("using in-memory users and complaints; data is lost on restart")
		return &Storage{
			Users:      users.NewInMemoryRepository(),
			Complaints: complaints.NewInMemoryRepository(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: open sql db: %w", err)
	}

	return &Storage{
		Users:      users.NewSQLRepository(db),
		Complaints: complaints.NewPostgresRepository(pool),
		Outbox:     events.NewOutboxStore(pool),
		Pool:       pool,
		DB:         db,
	}, nil
}

// DashboardFor returns the SQL dashboard when a database is connected, and a
// repository-backed one otherwise.
func (s *Storage) DashboardFor(names complaints.NameLookup) complaints.DashboardReader {
	if s.DB != nil {
		return complaints.NewSQLDashboard(s.DB)
	}
	return complaints.NewRepositoryDashboard(s.Complaints, names)
}

// Ping checks database reachability. It is a no-op in memory mode.
func (s *Storage) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

// Close releases database connections.
func (s *Storage) Close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// EventPublisher returns the outbox as a publisher, or nil in memory mode.
func (s *Storage) EventPublisher() handlers.EventPublisher {
	if s.Outbox == nil {
		return nil
	}
	return s.Outbox
}
