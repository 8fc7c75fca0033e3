package postgresadapter

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/election/ballot-service/domain/entities"
	domainerrors "ballotbox/contexts/election/ballot-service/domain/errors"
	"ballotbox/contexts/election/ballot-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// ballotTxOptions keeps redemption at READ COMMITTED. The voter and token
// rows are read FOR UPDATE, so overlapping redemptions queue on the row lock
// and the later one sees the committed spend instead of a 40001.
var ballotTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the ballot tables. Only used when AUTO_MIGRATE
// is enabled.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&voterModel{},
		&electionModel{},
		&candidateModel{},
		&votingTokenModel{},
		&voteModel{},
		&outboxModel{},
		&turnoutModel{},
		&processedEventModel{},
	); err != nil {
		return r.logError("ballot_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, bool, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, false, nil
		}
		return entities.Election{}, false, r.logError("ballot_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID string) (entities.Voter, error) {
	voter, err := getVoter(r.db.WithContext(ctx), voterID)
	if err != nil && !errors.Is(err, domainerrors.ErrVoterNotFound) {
		return entities.Voter{}, r.logError("ballot_repo_get_voter_failed", err)
	}
	return voter, err
}

func (r *Repository) CreateToken(ctx context.Context, token entities.VotingToken) error {
	row := votingTokenModelFromEntity(token)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrStorageConflict
		}
		return r.logError("ballot_repo_create_token_failed", err,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

// DeleteExpiredTokens is the expiry-based garbage collection tokens rely on.
// Spent and unspent rows past expires_at are both removed.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	expired := r.db.WithContext(ctx).
		Model(&votingTokenModel{}).
		Select("id").
		Where("expires_at <= ?", now.UTC()).
		Limit(limit)
	result := r.db.WithContext(ctx).
		Where("id IN (?)", expired).
		Delete(&votingTokenModel{})
	if result.Error != nil {
		return 0, r.logError("ballot_repo_delete_expired_tokens_failed", result.Error, "limit", limit)
	}
	return int(result.RowsAffected), nil
}

// WithinBallotTx runs fn in one transaction. Serialization failures and
// deadlocks surface as ErrStorageConflict; every other error from fn is
// returned unchanged after rollback.
func (r *Repository) WithinBallotTx(ctx context.Context, fn func(tx ports.BallotTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ballotTx{db: tx})
	}, ballotTxOptions)
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) {
		r.logger.Warn("ballot transaction conflict",
			"event", "ballot_repo_tx_conflict",
			"module", "election/ballot-service",
			"layer", "adapter",
		)
		return domainerrors.ErrStorageConflict
	}
	return err
}

// VerifyTransactions checks that the connected store can open the redemption
// transaction and take row locks in it. A failure means redemption cannot be
// made atomic.
func (r *Repository) VerifyTransactions(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		return lockForUpdate(tx).
			Model(&votingTokenModel{}).
			Select("id").
			Limit(1).
			Find(&ids).
			Error
	}, ballotTxOptions)
	if err != nil {
		r.logError("ballot_repo_tx_verify_failed", err)
		return domainerrors.ErrStorageTransactionUnsupported
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrStorageConflict
	}
	return nil
}

// ApplyVoteRecorded reserves eventID and bumps the election's count in one
// transaction; a replayed event changes nothing.
func (r *Repository) ApplyVoteRecorded(ctx context.Context, eventID string, electionID string, at time.Time) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserve := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(&processedEventModel{
			EventID:     strings.TrimSpace(eventID),
			ProcessedAt: at.UTC(),
		})
		if reserve.Error != nil {
			return reserve.Error
		}
		if reserve.RowsAffected == 0 {
			return nil
		}
		row := turnoutModel{
			ElectionID:    strings.TrimSpace(electionID),
			VotesRecorded: 1,
			UpdatedAt:     at.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "election_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"votes_recorded": gorm.Expr("election_turnout.votes_recorded + 1"),
				"updated_at":     at.UTC(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, r.logError("ballot_repo_apply_vote_recorded_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return applied, nil
}

func (r *Repository) GetTurnout(ctx context.Context, electionID string) (entities.Turnout, error) {
	electionID = strings.TrimSpace(electionID)
	var row turnoutModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Turnout{ElectionID: electionID}, nil
		}
		return entities.Turnout{}, r.logError("ballot_repo_get_turnout_failed", err, "election_id", electionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election/ballot-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

type ballotTx struct {
	db *gorm.DB
}

func (tx *ballotTx) GetVoter(_ context.Context, voterID string) (entities.Voter, error) {
	return getVoter(lockForUpdate(tx.db), voterID)
}

func (tx *ballotTx) GetToken(_ context.Context, tokenID string, electionID string) (entities.VotingToken, error) {
	var row votingTokenModel
	err := tokenQuery(lockForUpdate(tx.db), tokenID, electionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingToken{}, domainerrors.ErrInvalidVoteToken
		}
		return entities.VotingToken{}, err
	}
	return row.toEntity(), nil
}

func (tx *ballotTx) GetCandidate(_ context.Context, electionID string, candidateID string) (entities.Candidate, error) {
	var row candidateModel
	err := tx.db.
		Where("election_id = ? AND candidate_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(candidateID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, domainerrors.ErrInvalidCandidate
		}
		return entities.Candidate{}, err
	}
	return row.toEntity(), nil
}

func (tx *ballotTx) SpendToken(_ context.Context, tokenID string) (bool, error) {
	result := tx.db.
		Model(&votingTokenModel{}).
		Where("id = ? AND spent = ?", strings.TrimSpace(tokenID), false).
		Update("spent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (tx *ballotTx) InsertVote(_ context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	if err := tx.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrStorageConflict
		}
		return err
	}
	return nil
}

func (tx *ballotTx) MarkVoterVoted(_ context.Context, voterID string) (bool, error) {
	result := tx.db.
		Model(&voterModel{}).
		Where("voter_id = ? AND has_voted = ?", strings.TrimSpace(voterID), false).
		Update("has_voted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (tx *ballotTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := tx.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return create.Error
	}
	if create.RowsAffected > 0 {
		return nil
	}
	var existing outboxModel
	if err := tx.db.Select("payload").Where("outbox_id = ?", row.OutboxID).First(&existing).Error; err != nil {
		return err
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrStorageConflict
	}
	return nil
}

func getVoter(db *gorm.DB, voterID string) (entities.Voter, error) {
	var row voterModel
	err := voterQuery(db, voterID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, domainerrors.ErrVoterNotFound
		}
		return entities.Voter{}, err
	}
	return row.toEntity(), nil
}

func lockForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func voterQuery(db *gorm.DB, voterID string) *gorm.DB {
	return db.Where("voter_id = ?", strings.TrimSpace(voterID))
}

func tokenQuery(db *gorm.DB, tokenID string, electionID string) *gorm.DB {
	return db.Where("id = ? AND election_id = ?", strings.TrimSpace(tokenID), strings.TrimSpace(electionID))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

var _ ports.ElectionReader = (*Repository)(nil)
var _ ports.VoterReader = (*Repository)(nil)
var _ ports.TokenRepository = (*Repository)(nil)
var _ ports.BallotUnitOfWork = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.TurnoutStore = (*Repository)(nil)
var _ ports.BallotTx = (*ballotTx)(nil)
