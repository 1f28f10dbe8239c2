package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
)

func contactID(r *http.Request) (uuid.UUID, error) {
	return common.ParseUUID("id", r.PathValue("id"))
}

func queryInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.NewAppError("INVALID_INPUT", key+" must be an integer", common.ErrInvalidInput)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", key+" must be true or false", common.ErrInvalidInput)
	}
	return &b, nil
}

func (s *HTTPServer) handleListContacts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sent, err := queryBool(r, "sent")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Contacts.List(r.Context(), userFrom(r.Context()).ID, contacts.ListRequest{
		Search: r.URL.Query().Get("search"),
		Sent:   sent,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in contacts.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Contacts.Create(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"contact": c})
}

func (s *HTTPServer) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Contacts.Get(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contact": c})
}

func (s *HTTPServer) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch contacts.ContactPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Contacts.Update(r.Context(), userFrom(r.Context()).ID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contact": c})
}

func (s *HTTPServer) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Contacts.Delete(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleToggleSent(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Contacts.ToggleSent(r.Context(), userFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contact": c})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Contacts.Stats(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *HTTPServer) handleActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	acts, err := s.deps.Contacts.Activities(r.Context(), userFrom(r.Context()).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

func (s *HTTPServer) handleLogActivity(w http.ResponseWriter, r *http.Request) {
	var in contacts.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.deps.Contacts.LogActivity(r.Context(), userFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"activity": a})
}

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Contacts.Analytics(r.Context(), userFrom(r.Context()).ID, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
