package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/identity-access/access-guard/domain/entities"
	"ballotbox/contexts/identity-access/access-guard/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&attemptWindowModel{}, &verificationCodeModel{}); err != nil {
		return r.logError("access_repo_migrate_failed", err)
	}
	return nil
}

// IncrementAttempt decides reset-or-increment inside one upsert so
// concurrent attempts on the same subject never lose an update.
func (r *Repository) IncrementAttempt(
	ctx context.Context,
	subjectKey string,
	now time.Time,
	window time.Duration,
) (entities.AttemptWindow, error) {
	now = now.UTC()
	row := attemptWindowModel{
		SubjectKey:   strings.TrimSpace(subjectKey),
		AttemptCount: 1,
		WindowEndsAt: now.Add(window),
	}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "subject_key"}},
				DoUpdates: clause.Assignments(map[string]any{
					"attempt_count": gorm.Expr(
						"CASE WHEN attempt_windows.window_ends_at > ? THEN attempt_windows.attempt_count + 1 ELSE 1 END", now,
					),
					"window_ends_at": gorm.Expr(
						"CASE WHEN attempt_windows.window_ends_at > ? THEN attempt_windows.window_ends_at ELSE EXCLUDED.window_ends_at END", now,
					),
				}),
			},
			clause.Returning{},
		).
		Create(&row).
		Error
	if err != nil {
		return entities.AttemptWindow{}, r.logError("access_repo_increment_attempt_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetAttemptWindow(ctx context.Context, subjectKey string) (entities.AttemptWindow, bool, error) {
	var row attemptWindowModel
	err := r.db.WithContext(ctx).
		Where("subject_key = ?", strings.TrimSpace(subjectKey)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AttemptWindow{}, false, nil
		}
		if isUndefinedTable(err) {
			r.logError("access_repo_attempt_table_missing", err)
			return entities.AttemptWindow{}, false, err
		}
		return entities.AttemptWindow{}, false, r.logError("access_repo_get_attempt_window_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) DeleteLapsedWindows(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	lapsed := r.db.WithContext(ctx).
		Model(&attemptWindowModel{}).
		Select("subject_key").
		Where("window_ends_at <= ?", now.UTC()).
		Limit(limit)
	result := r.db.WithContext(ctx).
		Where("subject_key IN (?)", lapsed).
		Delete(&attemptWindowModel{})
	if result.Error != nil {
		return 0, r.logError("access_repo_delete_lapsed_windows_failed", result.Error, "limit", limit)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) PutCode(ctx context.Context, code entities.VerificationCode) error {
	row := verificationCodeModelFromEntity(code)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "created_at"}),
		}).
		Create(&row).
		Error
	if err != nil {
		return r.logError("access_repo_put_code_failed", err)
	}
	return nil
}

func (r *Repository) GetCode(ctx context.Context, subjectKey string) (entities.VerificationCode, bool, error) {
	var row verificationCodeModel
	err := r.db.WithContext(ctx).
		Where("subject_key = ?", strings.TrimSpace(subjectKey)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VerificationCode{}, false, nil
		}
		return entities.VerificationCode{}, false, r.logError("access_repo_get_code_failed", err)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ConsumeCode(ctx context.Context, subjectKey string, codeHash string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("subject_key = ? AND code_hash = ? AND expires_at > ?", strings.TrimSpace(subjectKey), codeHash, now.UTC()).
		Delete(&verificationCodeModel{})
	if result.Error != nil {
		return false, r.logError("access_repo_consume_code_failed", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) DeleteExpiredCodes(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	expired := r.db.WithContext(ctx).
		Model(&verificationCodeModel{}).
		Select("subject_key").
		Where("expires_at <= ?", now.UTC()).
		Limit(limit)
	result := r.db.WithContext(ctx).
		Where("subject_key IN (?)", expired).
		Delete(&verificationCodeModel{})
	if result.Error != nil {
		return 0, r.logError("access_repo_delete_expired_codes_failed", result.Error, "limit", limit)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "identity-access/access-guard",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("access guard repository operation failed", fields...)
	return err
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

type attemptWindowModel struct {
	SubjectKey   string    `gorm:"column:subject_key;primaryKey"`
	AttemptCount int       `gorm:"column:attempt_count;not null"`
	WindowEndsAt time.Time `gorm:"column:window_ends_at;not null;index"`
}

func (attemptWindowModel) TableName() string { return "attempt_windows" }

func (m attemptWindowModel) toEntity() entities.AttemptWindow {
	return entities.AttemptWindow{
		SubjectKey:   m.SubjectKey,
		Count:        m.AttemptCount,
		WindowEndsAt: m.WindowEndsAt.UTC(),
	}
}

type verificationCodeModel struct {
	SubjectKey string    `gorm:"column:subject_key;primaryKey"`
	CodeHash   string    `gorm:"column:code_hash;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (verificationCodeModel) TableName() string { return "verification_codes" }

func (m verificationCodeModel) toEntity() entities.VerificationCode {
	return entities.VerificationCode{
		SubjectKey: m.SubjectKey,
		CodeHash:   m.CodeHash,
		ExpiresAt:  m.ExpiresAt.UTC(),
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func verificationCodeModelFromEntity(code entities.VerificationCode) verificationCodeModel {
	return verificationCodeModel{
		SubjectKey: strings.TrimSpace(code.SubjectKey),
		CodeHash:   code.CodeHash,
		ExpiresAt:  code.ExpiresAt.UTC(),
		CreatedAt:  code.CreatedAt.UTC(),
	}
}

var _ ports.AttemptStore = (*Repository)(nil)
var _ ports.CodeStore = (*Repository)(nil)
