package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres wraps DB connectivity for every context repository.
type Postgres struct {
	DB *gorm.DB
}

// Migrator is implemented by repositories that own tables.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// TransactionVerifier reports whether the store can run the locking units of
// work ballot redemption depends on.
type TransactionVerifier interface {
	VerifyTransactions(ctx context.Context) error
}

func Connect(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{DB: db}, nil
}

// Prepare runs migrations when enabled, then every transaction verifier. A
// failing verifier aborts startup.
func Prepare(ctx context.Context, autoMigrate bool, migrators []Migrator, verifiers []TransactionVerifier) error {
	if autoMigrate {
		for _, migrator := range migrators {
			if err := migrator.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}
	for _, verifier := range verifiers {
		if err := verifier.VerifyTransactions(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
