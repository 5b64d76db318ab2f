package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
	".m4v":  true,
}

// handleCreateReview handles POST /api/reviews (multipart form)
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, badRequest("invalid form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	review, err := reviewFromForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch review.VideoType {
	case models.VideoUpload:
		file, header, err := r.FormFile("video")
		if err != nil {
			s.writeError(w, r, badRequest("video file is required for uploads"))
			return
		}
		defer file.Close()

		name, err := s.saveUpload(file, header)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		review.VideoURL = "/uploads/" + name
	case models.VideoExternal:
		link := strings.TrimSpace(r.FormValue("video_url"))
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			s.writeError(w, r, badRequest("video_url must be an http(s) link"))
			return
		}
		review.VideoURL = link
	}

	saved, err := s.db.InsertReview(r.Context(), review)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.hub.Publish(models.Event{
		Type: models.EventReviewUpdate,
		Data: map[string]any{"score_code": saved.ScoreCode, "has_review": true, "review": saved},
	})
	writeJSON(w, http.StatusCreated, map[string]any{"review": saved})
}

// reviewFromForm validates the text fields of a review form
func reviewFromForm(r *http.Request) (models.Review, error) {
	review := models.Review{
		ScoreCode: strings.TrimSpace(r.FormValue("score_code")),
		Comment:   strings.TrimSpace(r.FormValue("comment")),
		Rating:    5,
	}
	if !codes.IsScoreCode(review.ScoreCode) {
		return review, badRequest("invalid score code: " + review.ScoreCode)
	}

	if v := r.FormValue("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil || rating < 1 || rating > 5 {
			return review, badRequest("rating must be between 1 and 5")
		}
		review.Rating = rating
	}

	switch source := r.FormValue("video_source"); source {
	case "", "none":
	case models.VideoUpload, models.VideoExternal:
		review.VideoType = source
	default:
		return review, badRequest("video_source must be upload or external")
	}
	return review, nil
}

// saveUpload stores an uploaded clip under a random name and returns that name
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !videoExtensions[ext] {
		return "", badRequest("unsupported video type: " + ext)
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.opts.UploadDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	s.logger.Info("video uploaded", "file", name, "size", header.Size)
	return name, nil
}

// handleGetReview handles GET /api/reviews/{code}
func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reviews, err := s.db.Reviews(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(reviews) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"has_review": false, "reviews": []models.Review{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"has_review": true,
		"review":     reviews[0],
		"reviews":    reviews,
	})
}

