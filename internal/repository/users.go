package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*entity.User, error)
}

type userRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

var userColumns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func scanUser(s rowScanner) (*entity.User, error) {
	var u entity.User
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create stores a new user. Emails are compared lower-cased.
func (r *userRepository) Create(ctx context.Context, name, email, passwordHash string) (*entity.User, error) {
	now := time.Now().UTC()
	u := &entity.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ins := r.db.builder().Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if _, err := r.db.exec(ctx, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewAppError("CONFLICT", "email already registered", common.ErrConflict)
		}
		r.logger.Error("failed to create user", "email", u.Email, "error", err)
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("id", id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, entsql.EQ("email", strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepository) getOne(ctx context.Context, where *entsql.Predicate) (*entity.User, error) {
	sel := r.db.builder().Select(userColumns...).From(entsql.Table(usersTable)).Where(where).Limit(1)
	u, err := scanUser(r.db.queryRow(ctx, sel))
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

func (r *userRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*entity.User, error) {
	upd := r.db.builder().Update(usersTable).
		Set("name", strings.TrimSpace(name)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	res, err := r.db.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.NewAppError("NOT_FOUND", "user not found", common.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}
