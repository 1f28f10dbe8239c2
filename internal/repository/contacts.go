package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

type ContactRepository interface {
	Create(ctx context.Context, c *entity.Contact) (*entity.Contact, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Contact, error)
	List(ctx context.Context, userID uuid.UUID, f entity.ContactFilter) ([]*entity.Contact, int, error)
	ListForExport(ctx context.Context, userID uuid.UUID, sent *bool) ([]*entity.Contact, error)
	Update(ctx context.Context, c *entity.Contact) (*entity.Contact, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	FindDuplicate(ctx context.Context, userID uuid.UUID, phones []string) (*entity.Contact, error)
	SetSent(ctx context.Context, userID, id uuid.UUID, sent bool) (*entity.Contact, error)
	MarkSent(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	Stats(ctx context.Context, userID uuid.UUID, dayStart time.Time) (entity.Stats, error)
	CreatedTimes(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
}

type contactRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewContactRepository(db *DB, logger *slog.Logger) ContactRepository {
	return &contactRepository{
		db:     db,
		logger: logger,
	}
}

var contactColumns = []string{
	"id", "user_id", "company", "name", "phone1", "phone2", "phone3",
	"email", "website", "address", "note", "raw_text",
	"sent", "sent_at", "created_at", "updated_at",
}

func scanContact(s rowScanner) (*entity.Contact, error) {
	var (
		c      entity.Contact
		sentAt stdsql.NullTime
	)
	err := s.Scan(
		&c.ID, &c.UserID, &c.Company, &c.Name, &c.Phone1, &c.Phone2, &c.Phone3,
		&c.Email, &c.Website, &c.Address, &c.Note, &c.RawText,
		&c.Sent, &sentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	return &c, nil
}

func nullTime(t *time.Time) stdsql.NullTime {
	if t == nil {
		return stdsql.NullTime{}
	}
	return stdsql.NullTime{Time: t.UTC(), Valid: true}
}

func ownedBy(userID, id uuid.UUID) *entsql.Predicate {
	return entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))
}

func (r *contactRepository) Create(ctx context.Context, c *entity.Contact) (*entity.Contact, error) {
	now := time.Now().UTC()
	out := *c
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.CreatedAt, out.UpdatedAt = now, now

	ins := r.db.builder().Insert(contactsTable).
		Columns(contactColumns...).
		Values(
			out.ID, out.UserID, out.Company, out.Name, out.Phone1, out.Phone2, out.Phone3,
			out.Email, out.Website, out.Address, out.Note, out.RawText,
			out.Sent, nullTime(out.SentAt), out.CreatedAt, out.UpdatedAt,
		)
	if _, err := r.db.exec(ctx, ins); err != nil {
		r.logger.Error("failed to create contact", "user_id", out.UserID, "company", out.Company, "error", err)
		return nil, err
	}
	return &out, nil
}

func (r *contactRepository) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Contact, error) {
	sel := r.db.builder().Select(contactColumns...).
		From(entsql.Table(contactsTable)).
		Where(ownedBy(userID, id))
	c, err := scanContact(r.db.queryRow(ctx, sel))
	if err != nil {
		return nil, notFound("contact", err)
	}
	return c, nil
}

func listWhere(userID uuid.UUID, search string, sent *bool) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	if sent != nil {
		preds = append(preds, entsql.EQ("sent", *sent))
	}
	if s := strings.TrimSpace(search); s != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("company", s),
			entsql.ContainsFold("name", s),
			entsql.ContainsFold("email", s),
			entsql.Contains("phone1", s),
			entsql.Contains("phone2", s),
			entsql.Contains("phone3", s),
		))
	}
	return entsql.And(preds...)
}

// List returns one page of contacts, newest first, and the total number of
// contacts matching the filter.
func (r *contactRepository) List(ctx context.Context, userID uuid.UUID, f entity.ContactFilter) ([]*entity.Contact, int, error) {
	total, err := r.db.count(ctx, contactsTable, listWhere(userID, f.Search, f.Sent))
	if err != nil {
		r.logger.Error("failed to count contacts", "user_id", userID, "error", err)
		return nil, 0, err
	}

	sel := r.db.builder().Select(contactColumns...).
		From(entsql.Table(contactsTable)).
		Where(listWhere(userID, f.Search, f.Sent)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel = sel.Offset(f.Offset)
	}
	out, err := r.all(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list contacts", "user_id", userID, "error", err)
		return nil, 0, err
	}
	return out, total, nil
}

// ListForExport returns every matching contact, newest first.
func (r *contactRepository) ListForExport(ctx context.Context, userID uuid.UUID, sent *bool) ([]*entity.Contact, error) {
	sel := r.db.builder().Select(contactColumns...).
		From(entsql.Table(contactsTable)).
		Where(listWhere(userID, "", sent)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	return r.all(ctx, sel)
}

func (r *contactRepository) all(ctx context.Context, sel *entsql.Selector) ([]*entity.Contact, error) {
	rows, err := r.db.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of an owned contact.
func (r *contactRepository) Update(ctx context.Context, c *entity.Contact) (*entity.Contact, error) {
	upd := r.db.builder().Update(contactsTable).
		Set("company", c.Company).
		Set("name", c.Name).
		Set("phone1", c.Phone1).
		Set("phone2", c.Phone2).
		Set("phone3", c.Phone3).
		Set("email", c.Email).
		Set("website", c.Website).
		Set("address", c.Address).
		Set("note", c.Note).
		Set("updated_at", time.Now().UTC()).
		Where(ownedBy(c.UserID, c.ID))
	res, err := r.db.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to update contact", "contact_id", c.ID, "error", err)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.NewAppError("NOT_FOUND", "contact not found", common.ErrNotFound)
	}
	return r.Get(ctx, c.UserID, c.ID)
}

func (r *contactRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.exec(ctx, r.db.builder().Delete(contactsTable).Where(ownedBy(userID, id)))
	if err != nil {
		r.logger.Error("failed to delete contact", "contact_id", id, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("NOT_FOUND", "contact not found", common.ErrNotFound)
	}
	return nil
}

// FindDuplicate returns a contact of the user whose phone1..3 equals any of
// phones, or nil when there is none. Phones are compared as stored.
func (r *contactRepository) FindDuplicate(ctx context.Context, userID uuid.UUID, phones []string) (*entity.Contact, error) {
	var matches []*entsql.Predicate
	for _, p := range phones {
		if p == "" {
			continue
		}
		matches = append(matches, entsql.EQ("phone1", p), entsql.EQ("phone2", p), entsql.EQ("phone3", p))
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sel := r.db.builder().Select(contactColumns...).
		From(entsql.Table(contactsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.Or(matches...))).
		OrderBy(entsql.Asc("created_at")).
		Limit(1)
	c, err := scanContact(r.db.queryRow(ctx, sel))
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to look up duplicate contact", "user_id", userID, "error", err)
		return nil, err
	}
	return c, nil
}

// SetSent sets or clears the sent flag of one contact.
func (r *contactRepository) SetSent(ctx context.Context, userID, id uuid.UUID, sent bool) (*entity.Contact, error) {
	var sentAt stdsql.NullTime
	if sent {
		sentAt = stdsql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	upd := r.db.builder().Update(contactsTable).
		Set("sent", sent).
		Set("sent_at", sentAt).
		Set("updated_at", time.Now().UTC()).
		Where(ownedBy(userID, id))
	res, err := r.db.exec(ctx, upd)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.NewAppError("NOT_FOUND", "contact not found", common.ErrNotFound)
	}
	return r.Get(ctx, userID, id)
}

// MarkSent flags the given unsent contacts as sent and reports how many changed.
func (r *contactRepository) MarkSent(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	now := time.Now().UTC()
	upd := r.db.builder().Update(contactsTable).
		Set("sent", true).
		Set("sent_at", now).
		Set("updated_at", now).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("sent", false),
			entsql.In("id", vals...),
		))
	res, err := r.db.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to mark contacts sent", "user_id", userID, "count", len(ids), "error", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Stats counts the user's contacts; Today counts those created at or after dayStart.
func (r *contactRepository) Stats(ctx context.Context, userID uuid.UUID, dayStart time.Time) (entity.Stats, error) {
	var (
		st  entity.Stats
		err error
	)
	if st.Total, err = r.db.count(ctx, contactsTable, entsql.EQ("user_id", userID)); err != nil {
		return st, err
	}
	sent := true
	if st.Sent, err = r.db.count(ctx, contactsTable, listWhere(userID, "", &sent)); err != nil {
		return st, err
	}
	today := entsql.And(entsql.EQ("user_id", userID), entsql.GTE("created_at", dayStart.UTC()))
	if st.Today, err = r.db.count(ctx, contactsTable, today); err != nil {
		return st, err
	}
	st.Unsent = st.Total - st.Sent
	return st, nil
}

// CreatedTimes returns the creation times of the user's contacts created at
// or after since, oldest first.
func (r *contactRepository) CreatedTimes(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	sel := r.db.builder().Select("created_at").
		From(entsql.Table(contactsTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("created_at", since.UTC()))).
		OrderBy(entsql.Asc("created_at"))
	out, err := scanTimes(ctx, r.db, sel)
	if err != nil {
		r.logger.Error("failed to list contact times", "user_id", userID, "error", err)
	}
	return out, err
}
