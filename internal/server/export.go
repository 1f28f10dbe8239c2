package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/export"
)

func exportRequest(r *http.Request) (export.Request, error) {
	markSent := true
	if v, err := queryBool(r, "mark_sent"); err != nil {
		return export.Request{}, err
	} else if v != nil {
		markSent = *v
	}
	return export.Request{
		UserID:   userFrom(r.Context()).ID,
		Filter:   constants.ParseExportFilter(r.URL.Query().Get("filter")),
		MarkSent: markSent,
	}, nil
}

func (s *HTTPServer) handleExportVCF(w http.ResponseWriter, r *http.Request) {
	req, err := exportRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.deps.Export.VCF(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, f)
}

func (s *HTTPServer) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	req, err := exportRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.deps.Export.XLSX(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, f)
}

func writeFile(w http.ResponseWriter, f *export.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("X-Export-Count", strconv.Itoa(f.Count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}
