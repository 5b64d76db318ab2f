package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
)

// handleListScores handles GET /api/scores
func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	scores, err := s.db.ListScores(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if scores == nil {
		scores = []models.ScoreRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores, "count": len(scores)})
}

type saveRequest struct {
	ScoreCode  string          `json:"score_code"`
	Completion json.RawMessage `json:"completion"`
}

// handleSaveCompletion handles POST /api/scores/save
func (s *Server) handleSaveCompletion(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !codes.IsScoreCode(req.ScoreCode) {
		s.writeError(w, r, badRequest("invalid score code: "+req.ScoreCode))
		return
	}
	completion, err := parseCompletion(req.Completion)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.db.SaveCompletion(r.Context(), req.ScoreCode, completion)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	message := fmt.Sprintf("score %s saved at %d%%", rec.ScoreCode, rec.Completion)
	s.hub.Publish(models.Event{
		Type: models.EventCompletionUpdate,
		Data: map[string]any{
			"score_code": rec.ScoreCode,
			"completion": rec.Completion,
			"message":    message,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{"record": rec, "message": message})
}

// handleGetScore handles GET /api/scores/{code}
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := s.db.ScoreStatus(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.db.ScoreHistory(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []models.ScoreRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "history": history})
}

// handleToggleFavorite handles POST /api/scores/{code}/favorite
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.db.ToggleFavorite(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.hub.Publish(models.Event{
		Type: models.EventFavoriteUpdate,
		Data: map[string]any{"score_code": code, "is_favorite": rec.IsFavorite},
	})
	writeJSON(w, http.StatusOK, map[string]any{"record": rec, "is_favorite": rec.IsFavorite})
}

// handleStats handles GET /api/scores/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

type lookupRequest struct {
	ScoreCodes []string `json:"score_codes"`
	// Text is free-form pasted input; codes are extracted from it
	Text string `json:"text"`
}

// handleBatchLookup handles POST /api/scores/lookup
func (s *Server) handleBatchLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	list := codes.Dedupe(append(req.ScoreCodes, codes.Extract(req.Text)...))
	results, err := s.db.BatchLookup(r.Context(), list)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "found": countFound(results)})
}

// handleBatchQuery handles POST /api/scores/batch
func (s *Server) handleBatchQuery(w http.ResponseWriter, r *http.Request) {
	var q models.BatchQuery
	if err := decodeJSON(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateFilter(q.Filter); err != nil {
		s.writeError(w, r, err)
		return
	}
	q.ScoreCodes = codes.Dedupe(q.ScoreCodes)

	results, err := s.db.BatchQuery(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
		"found":   countFound(results),
	})
}

func countFound(results []models.ScoreStatus) int {
	n := 0
	for _, r := range results {
		if r.Exists {
			n++
		}
	}
	return n
}
