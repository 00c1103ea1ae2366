package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/platform/envutil"
	"github.com/spinnernet/backend/internal/platform/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects to Postgres, or to a local SQLite file when DB_DRIVER=sqlite
// (development fallback, no Postgres required).
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := envutil.Str("DB_DRIVER", "postgres")

	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := envutil.Str("SQLITE_PATH", "spinnernet.db")
		serviceLog.Info("Connecting to SQLite...", "path", path)
		gdb, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	default:
		host := envutil.Str("POSTGRES_HOST", "localhost")
		port := envutil.Str("POSTGRES_PORT", "5432")
		user := envutil.Str("POSTGRES_USER", "postgres")
		password := envutil.Str("POSTGRES_PASSWORD", "")
		name := envutil.Str("POSTGRES_NAME", "spinnernet")

		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	}
	if err != nil {
		serviceLog.Error("Failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.PersonaProfile{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
