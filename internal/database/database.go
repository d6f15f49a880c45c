package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/usecase"
)

var _ usecase.Repository = (*service)(nil)

// implements usecase.Repository
type service struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open connects to the Postgres database described by the DB_* env vars.
func Open(log *slog.Logger) (*gorm.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		config.String(config.ENV_KEY_DB_USER, ""),
		config.String(config.ENV_KEY_DB_PASSWORD, ""),
		config.String(config.ENV_KEY_DB_HOST, "localhost"),
		config.String(config.ENV_KEY_DB_PORT, "5432"),
		config.String(config.ENV_KEY_DB_DATABASE, ""),
	)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "pgx",
		DSN:        connStr,
	}), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   NewSlogGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gormDB.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	db, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if m := config.Int(config.ENV_KEY_DB_MAX_OPEN_CONNECTIONS, 0); m > 0 {
		db.SetMaxOpenConns(m)
	}

	return gormDB, nil
}

// New migrates the schema and returns the repository backed by gormDB.
func New(gormDB *gorm.DB, log *slog.Logger) (*service, error) {
	if log == nil {
		log = slog.Default()
	}

	err := gormDB.AutoMigrate(
		MediaItem{},
		Program{},
		Project{},
		TimelineEntry{},
		Asset{},
		Job{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &service{db: gormDB, log: log}, nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	db, err := s.db.DB()
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.Error("db down", slog.String("err", err.Error()))
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	if dbStats.MaxIdleClosed > int64(dbStats.OpenConnections)/2 {
		stats["message"] = "Many idle connections are being closed, consider revising the connection pool settings."
	}

	if dbStats.MaxLifetimeClosed > int64(dbStats.OpenConnections)/2 {
		stats["message"] = "Many connections are being closed due to max lifetime, consider increasing max lifetime or revising the connection usage pattern."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("disconnected from database")
	return db.Close()
}

func notFound(err error, id uuid.UUID, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usecase.ErrNotFound{
			ID:      id,
			Code:    what + "_not_found",
			Message: what + " " + id.String() + " not found",
		}
	}
	return err
}
