package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

type ActivityRepository interface {
	Log(ctx context.Context, userID uuid.UUID, action constants.Action, contactID *uuid.UUID, details string) (*entity.Activity, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Activity, error)
	Times(ctx context.Context, userID uuid.UUID, action constants.Action, since time.Time) ([]time.Time, error)
	CountByAction(ctx context.Context, userID uuid.UUID, since time.Time) ([]entity.ActionCount, error)
}

type activityRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewActivityRepository(db *DB, logger *slog.Logger) ActivityRepository {
	return &activityRepository{
		db:     db,
		logger: logger,
	}
}

var activityColumns = []string{"id", "user_id", "action", "contact_id", "details", "created_at"}

func (r *activityRepository) Log(ctx context.Context, userID uuid.UUID, action constants.Action, contactID *uuid.UUID, details string) (*entity.Activity, error) {
	a := &entity.Activity{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		ContactID: contactID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	cid := uuid.NullUUID{}
	if contactID != nil {
		cid = uuid.NullUUID{UUID: *contactID, Valid: true}
	}
	ins := r.db.builder().Insert(activitiesTable).
		Columns(activityColumns...).
		Values(a.ID, a.UserID, string(a.Action), cid, a.Details, a.CreatedAt)
	if _, err := r.db.exec(ctx, ins); err != nil {
		r.logger.Error("failed to log activity", "user_id", userID, "action", action, "error", err)
		return nil, err
	}
	return a, nil
}

// List returns the newest activities first.
func (r *activityRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	sel := r.db.builder().Select(activityColumns...).
		From(entsql.Table(activitiesTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit)
	rows, err := r.db.query(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list activities", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Activity, 0, limit)
	for rows.Next() {
		var (
			a      entity.Activity
			action string
			cid    uuid.NullUUID
		)
		if err := rows.Scan(&a.ID, &a.UserID, &action, &cid, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Action = constants.Action(action)
		if cid.Valid {
			id := cid.UUID
			a.ContactID = &id
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}


// Times returns when the user's entries with action were written, oldest
// first, starting at since.
func (r *activityRepository) Times(ctx context.Context, userID uuid.UUID, action constants.Action, since time.Time) ([]time.Time, error) {
	sel := r.db.builder().Select("created_at").
		From(entsql.Table(activitiesTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("action", string(action)),
			entsql.GTE("created_at", since.UTC()),
		)).
		OrderBy(entsql.Asc("created_at"))
	out, err := scanTimes(ctx, r.db, sel)
	if err != nil {
		r.logger.Error("failed to list activity times", "user_id", userID, "action", action, "error", err)
	}
	return out, err
}

// CountByAction groups the user's entries since since by action.
func (r *activityRepository) CountByAction(ctx context.Context, userID uuid.UUID, since time.Time) ([]entity.ActionCount, error) {
	sel := r.db.builder().Select("action", entsql.Count("*")).
		From(entsql.Table(activitiesTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("created_at", since.UTC()))).
		GroupBy("action").
		OrderBy(entsql.Asc("action"))
	rows, err := r.db.query(ctx, sel)
	if err != nil {
		r.logger.Error("failed to count activities", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	out := []entity.ActionCount{}
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out = append(out, entity.ActionCount{Action: constants.Action(action), Count: n})
	}
	return out, rows.Err()
}
