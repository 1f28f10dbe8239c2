// Package contacts holds the card upload flow and the contact book
// operations built on top of the repository layer.
package contacts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 366
)

// Service handles contact business logic.
type Service struct {
	contacts   repository.ContactRepository
	activities repository.ActivityRepository
	extractor  Extractor
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new contacts service. extractor may be nil when the
// caller never uploads.
func NewService(contacts repository.ContactRepository, activities repository.ActivityRepository, extractor Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		contacts:   contacts,
		activities: activities,
		extractor:  extractor,
		logger:     logger,
		now:        time.Now,
	}
}

// ContactInput is the body of a create request.
type ContactInput struct {
	Company string `json:"company" validate:"max=300"`
	Name    string `json:"name" validate:"max=200"`
	Phone1  string `json:"phone1" validate:"max=40"`
	Phone2  string `json:"phone2" validate:"max=40"`
	Phone3  string `json:"phone3" validate:"max=40"`
	Email   string `json:"email" validate:"omitempty,email,max=320"`
	Website string `json:"website" validate:"max=300"`
	Address string `json:"address" validate:"max=1000"`
	Note    string `json:"note" validate:"max=2000"`
}

// ContactPatch is the body of an update request; nil fields are left alone.
type ContactPatch struct {
	Company *string `json:"company" validate:"omitempty,max=300"`
	Name    *string `json:"name" validate:"omitempty,max=200"`
	Phone1  *string `json:"phone1" validate:"omitempty,max=40"`
	Phone2  *string `json:"phone2" validate:"omitempty,max=40"`
	Phone3  *string `json:"phone3" validate:"omitempty,max=40"`
	Email   *string `json:"email" validate:"omitempty,max=320"`
	Website *string `json:"website" validate:"omitempty,max=300"`
	Address *string `json:"address" validate:"omitempty,max=1000"`
	Note    *string `json:"note" validate:"omitempty,max=2000"`
	Sent    *bool   `json:"sent"`
}

// ListRequest selects one page of a user's contacts.
type ListRequest struct {
	Search string
	Sent   *bool
	Page   int
	Limit  int
}

// ListResult is one page of contacts plus the total match count.
type ListResult struct {
	Contacts []*entity.Contact `json:"contacts"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// Create stores a manually entered contact.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in ContactInput) (*entity.Contact, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	c := &entity.Contact{
		UserID:  userID,
		Company: strings.TrimSpace(in.Company),
		Name:    strings.TrimSpace(in.Name),
		Phone1:  strings.TrimSpace(in.Phone1),
		Phone2:  strings.TrimSpace(in.Phone2),
		Phone3:  strings.TrimSpace(in.Phone3),
		Email:   strings.TrimSpace(in.Email),
		Website: strings.TrimSpace(in.Website),
		Address: strings.TrimSpace(in.Address),
		Note:    strings.TrimSpace(in.Note),
	}
	created, err := s.contacts.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	s.record(ctx, userID, constants.ActionCreated, &created.ID, "Created contact: "+created.Company)
	s.logger.Info("contact created", "contact_id", created.ID, "user_id", userID)
	return created, nil
}

// Get returns a contact owned by userID.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Contact, error) {
	return s.contacts.Get(ctx, userID, id)
}

// List returns one page of contacts, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, req ListRequest) (*ListResult, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	rows, total, err := s.contacts.List(ctx, userID, entity.ContactFilter{
		Search: strings.TrimSpace(req.Search),
		Sent:   req.Sent,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if rows == nil {
		rows = []*entity.Contact{}
	}
	return &ListResult{Contacts: rows, Total: total, Page: page, Limit: limit}, nil
}

// Update applies patch to a contact owned by userID.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, patch ContactPatch) (*entity.Contact, error) {
	if err := common.ValidateStruct(patch); err != nil {
		return nil, err
	}
	c, err := s.contacts.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Company, patch.Company)
	set(&c.Name, patch.Name)
	set(&c.Phone1, patch.Phone1)
	set(&c.Phone2, patch.Phone2)
	set(&c.Phone3, patch.Phone3)
	set(&c.Email, patch.Email)
	set(&c.Website, patch.Website)
	set(&c.Address, patch.Address)
	set(&c.Note, patch.Note)

	updated, err := s.contacts.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if patch.Sent != nil && *patch.Sent != updated.Sent {
		if updated, err = s.contacts.SetSent(ctx, userID, id, *patch.Sent); err != nil {
			return nil, err
		}
	}
	s.record(ctx, userID, constants.ActionUpdated, &id, "Updated contact: "+updated.Company)
	return updated, nil
}

// Delete removes a contact owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	c, err := s.contacts.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.contacts.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.record(ctx, userID, constants.ActionDeleted, &id, "Deleted contact: "+c.Company)
	s.logger.Info("contact deleted", "contact_id", id, "user_id", userID)
	return nil
}

// ToggleSent flips the sent flag of a contact.
func (s *Service) ToggleSent(ctx context.Context, userID, id uuid.UUID) (*entity.Contact, error) {
	c, err := s.contacts.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.contacts.SetSent(ctx, userID, id, !c.Sent)
}

// Stats summarizes the user's contacts. Today starts at local midnight.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (entity.Stats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.contacts.Stats(ctx, userID, midnight)
}

// Activities returns the user's most recent activity entries.
func (s *Service) Activities(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Activity, error) {
	out, err := s.activities.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if out == nil {
		out = []*entity.Activity{}
	}
	return out, nil
}

// ActivityInput is the body of a client-side activity entry.
type ActivityInput struct {
	Action    string     `json:"action" validate:"required"`
	ContactID *uuid.UUID `json:"contact_id"`
	Details   string     `json:"details" validate:"max=2000"`
}

// LogActivity stores an activity entry sent by a client. The action must be
// a known one and the contact, when given, must belong to userID.
func (s *Service) LogActivity(ctx context.Context, userID uuid.UUID, in ActivityInput) (*entity.Activity, error) {
	if err := common.ValidateStruct(in); err != nil {
		return nil, err
	}
	action := constants.Action(strings.ToLower(strings.TrimSpace(in.Action)))
	if !action.IsValid() {
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown action %q", in.Action), common.ErrInvalidInput)
	}
	if in.ContactID != nil {
		if _, err := s.contacts.Get(ctx, userID, *in.ContactID); err != nil {
			return nil, err
		}
	}
	a, err := s.activities.Log(ctx, userID, action, in.ContactID, strings.TrimSpace(in.Details))
	if err != nil {
		return nil, fmt.Errorf("log activity: %w", err)
	}
	return a, nil
}

// Analytics builds the dashboard series for the last days days (default 30).
func (s *Service) Analytics(ctx context.Context, userID uuid.UUID, days int) (*entity.Analytics, error) {
	switch {
	case days <= 0:
		days = DefaultAnalyticsDays
	case days > MaxAnalyticsDays:
		days = MaxAnalyticsDays
	}
	now := s.now()
	since := now.AddDate(0, 0, -days)

	created, err := s.contacts.CreatedTimes(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("contact growth: %w", err)
	}
	uploads, err := s.activities.Times(ctx, userID, constants.ActionUploaded, since)
	if err != nil {
		return nil, fmt.Errorf("upload growth: %w", err)
	}
	exports, err := s.activities.Times(ctx, userID, constants.ActionExported, since)
	if err != nil {
		return nil, fmt.Errorf("export growth: %w", err)
	}
	actions, err := s.activities.CountByAction(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("action distribution: %w", err)
	}
	st, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}
	if actions == nil {
		actions = []entity.ActionCount{}
	}

	return &entity.Analytics{
		ContactGrowth:      perDay(created),
		UploadGrowth:       perDay(uploads),
		ExportGrowth:       perDay(exports),
		ActionDistribution: actions,
		StatusDistribution: entity.StatusCounts{Total: st.Total, Sent: st.Sent, Unsent: st.Unsent},
		Period:             days,
	}, nil
}

// perDay counts times by UTC calendar day.
func perDay(times []time.Time) map[string]int {
	out := make(map[string]int)
	for _, t := range times {
		out[t.UTC().Format(time.DateOnly)]++
	}
	return out
}

// record writes an activity entry. A failure is logged and otherwise ignored.
func (s *Service) record(ctx context.Context, userID uuid.UUID, action constants.Action, contactID *uuid.UUID, details string) {
	if s.activities == nil {
		return
	}
	if _, err := s.activities.Log(ctx, userID, action, contactID, details); err != nil {
		s.logger.Warn("activity log failed", "action", action.String(), "user_id", userID, "error", err)
	}
}
