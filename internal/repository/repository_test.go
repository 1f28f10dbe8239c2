package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(testLogger()) })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func createUser(t *testing.T, db *DB, email string) *entity.User {
	t.Helper()
	u, err := NewUserRepository(db, testLogger()).Create(context.Background(), "Test", email, "hash")
	require.NoError(t, err)
	return u
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:cardscan?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", sqliteDSN(""))
	assert.Equal(t, "file:/tmp/c.db?_pragma=foreign_keys(1)&_time_format=sqlite", sqliteDSN("/tmp/c.db"))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:***@db:5432/cards", redactDSN("postgres://app:s3cret@db:5432/cards"))
	assert.Equal(t, "file:x.db", redactDSN("file:x.db"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := OpenWithRetry(context.Background(), Config{Driver: "mysql", ConnectRetry: time.Second}, testLogger())
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, HealthCheck(context.Background(), db, time.Second, testLogger()))
	assert.Error(t, HealthCheck(context.Background(), nil, 0, testLogger()))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, Migrate(context.Background(), db))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUserRepository(db, testLogger())

	u, err := repo.Create(ctx, " Asha ", "Asha@Example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "Asha", u.Name)

	_, err = repo.Create(ctx, "Other", "asha@example.com", "hash")
	assert.ErrorIs(t, err, common.ErrConflict)

	got, err := repo.GetByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	updated, err := repo.UpdateName(ctx, u.ID, "Asha K")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", updated.Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.UpdateName(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContacts_CRUD(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	repo := NewContactRepository(db, testLogger())

	c, err := repo.Create(ctx, &entity.Contact{
		UserID: owner.ID, Company: "Roop Varsha Jewellers", Name: "R. Sharma",
		Phone1: "9829550499", Email: "sales@roopvarsha.in", RawText: "raw",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)

	got, err := repo.Get(ctx, owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roop Varsha Jewellers", got.Company)
	assert.Equal(t, "raw", got.RawText)
	assert.False(t, got.Sent)
	assert.Nil(t, got.SentAt)

	_, err = repo.Get(ctx, stranger.ID, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got.Company = "Roop Varsha"
	got.Note = "gold"
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Roop Varsha", updated.Company)
	assert.Equal(t, "gold", updated.Note)

	sent, err := repo.SetSent(ctx, owner.ID, c.ID, true)
	require.NoError(t, err)
	assert.True(t, sent.Sent)
	require.NotNil(t, sent.SentAt)

	unsent, err := repo.SetSent(ctx, owner.ID, c.ID, false)
	require.NoError(t, err)
	assert.False(t, unsent.Sent)
	assert.Nil(t, unsent.SentAt)

	assert.ErrorIs(t, repo.Delete(ctx, stranger.ID, c.ID), common.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, owner.ID, c.ID))
	_, err = repo.Get(ctx, owner.ID, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContacts_ListSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	u := createUser(t, db, "list@example.com")
	other := createUser(t, db, "other@example.com")
	repo := NewContactRepository(db, testLogger())

	for _, company := range []string{"Acme Traders", "Globex", "ACME Steel", "Initech"} {
		_, err := repo.Create(ctx, &entity.Contact{UserID: u.ID, Company: company})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := repo.Create(ctx, &entity.Contact{UserID: other.ID, Company: "Acme Other"})
	require.NoError(t, err)

	all, total, err := repo.List(ctx, u.ID, entity.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, "Initech", all[0].Company, "newest first")

	found, total, err := repo.List(ctx, u.ID, entity.ContactFilter{Search: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 2)

	page, total, err := repo.List(ctx, u.ID, entity.ContactFilter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Acme Traders", page[0].Company)

	ids := []uuid.UUID{all[0].ID, all[1].ID}
	n, err := repo.MarkSent(ctx, u.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.MarkSent(ctx, u.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already sent")

	yes, no := true, false
	sentOnly, total, err := repo.List(ctx, u.ID, entity.ContactFilter{Sent: &yes})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, sentOnly, 2)

	unsent, err := repo.ListForExport(ctx, u.ID, &no)
	require.NoError(t, err)
	assert.Len(t, unsent, 2)

	st, err := repo.Stats(ctx, u.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, entity.Stats{Total: 4, Sent: 2, Unsent: 2, Today: 4}, st)

	st, err = repo.Stats(ctx, u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, st.Today)
}

func TestContacts_FindDuplicate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	u := createUser(t, db, "dup@example.com")
	other := createUser(t, db, "dup2@example.com")
	repo := NewContactRepository(db, testLogger())

	stored, err := repo.Create(ctx, &entity.Contact{UserID: u.ID, Company: "Acme", Phone1: "9829550499", Phone3: "01412370000"})
	require.NoError(t, err)

	dup, err := repo.FindDuplicate(ctx, u.ID, []string{"1111111111", "01412370000"})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, stored.ID, dup.ID)

	dup, err = repo.FindDuplicate(ctx, other.ID, []string{"9829550499"})
	require.NoError(t, err)
	assert.Nil(t, dup, "other users' contacts never match")

	dup, err = repo.FindDuplicate(ctx, u.ID, []string{"", ""})
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestActivities(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	u := createUser(t, db, "act@example.com")
	repo := NewActivityRepository(db, testLogger())

	cid := uuid.New()
	_, err := repo.Log(ctx, u.ID, constants.ActionUploaded, &cid, "Uploaded Acme")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = repo.Log(ctx, u.ID, constants.ActionExported, nil, "Exported 3 contact(s)")
	require.NoError(t, err)

	list, err := repo.List(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, constants.ActionExported, list[0].Action)
	assert.Nil(t, list[0].ContactID)
	require.NotNil(t, list[1].ContactID)
	assert.Equal(t, cid, *list[1].ContactID)

	list, err = repo.List(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestActivities_TimesAndCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	u := createUser(t, db, "act@example.com")
	other := createUser(t, db, "other@example.com")
	repo := NewActivityRepository(db, testLogger())

	before := time.Now().Add(-time.Minute)
	for _, a := range []constants.Action{constants.ActionUploaded, constants.ActionUploaded, constants.ActionExported} {
		_, err := repo.Log(ctx, u.ID, a, nil, "")
		require.NoError(t, err)
	}
	_, err := repo.Log(ctx, other.ID, constants.ActionUploaded, nil, "")
	require.NoError(t, err)

	times, err := repo.Times(ctx, u.ID, constants.ActionUploaded, before)
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.False(t, times[1].Before(times[0]))

	times, err = repo.Times(ctx, u.ID, constants.ActionUploaded, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, times)

	counts, err := repo.CountByAction(ctx, u.ID, before)
	require.NoError(t, err)
	assert.Equal(t, []entity.ActionCount{
		{Action: constants.ActionExported, Count: 1},
		{Action: constants.ActionUploaded, Count: 2},
	}, counts)

	counts, err = repo.CountByAction(ctx, u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestContacts_CreatedTimes(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	u := createUser(t, db, "times@example.com")
	repo := NewContactRepository(db, testLogger())

	before := time.Now().Add(-time.Minute)
	for _, name := range []string{"Alpha", "Beta"} {
		_, err := repo.Create(ctx, &entity.Contact{UserID: u.ID, Company: name})
		require.NoError(t, err)
	}

	times, err := repo.CreatedTimes(ctx, u.ID, before)
	require.NoError(t, err)
	assert.Len(t, times, 2)

	times, err = repo.CreatedTimes(ctx, uuid.New(), before)
	require.NoError(t, err)
	assert.Empty(t, times)
}
