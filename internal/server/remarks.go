package server

import (
	"errors"
	"net/http"

	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
)

// handleGetRemark handles GET /api/scores/{code}/remark. A code without a
// remark returns an empty string rather than 404.
func (s *Server) handleGetRemark(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	remark, err := s.db.GetRemark(r.Context(), code)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score_code": code, "remark": remark.Text})
}

type remarkRequest struct {
	Remark string `json:"remark"`
}

// handleSetRemark handles POST /api/scores/{code}/remark
func (s *Server) handleSetRemark(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req remarkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	remark, err := s.db.SetRemark(r.Context(), code, req.Remark)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.hub.Publish(models.Event{Type: models.EventRemarkUpdate, Data: remark})
	writeJSON(w, http.StatusOK, map[string]any{"score_code": code, "remark": remark.Text})
}

type batchRemarkRequest struct {
	ScoreCodes []string `json:"score_codes"`
	Remark     string   `json:"remark"`
}

// handleBatchRemarks handles POST /api/scores/remarks/batch
func (s *Server) handleBatchRemarks(w http.ResponseWriter, r *http.Request) {
	var req batchRemarkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	list := codes.Dedupe(req.ScoreCodes)
	if len(list) == 0 {
		s.writeError(w, r, badRequest("no valid score codes"))
		return
	}

	result, err := s.db.SetRemarks(r.Context(), list, req.Remark)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	for _, remark := range result.Updated {
		s.hub.Publish(models.Event{Type: models.EventRemarkUpdate, Data: remark})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updates":       result.Updated,
		"skipped":       result.Unchanged,
		"updated_count": len(result.Updated),
	})
}
