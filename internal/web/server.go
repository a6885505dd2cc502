package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/conorfennell/examdeck/internal/domain"
	"github.com/conorfennell/examdeck/internal/extract"
	"github.com/conorfennell/examdeck/internal/ingest"
	"github.com/conorfennell/examdeck/internal/quiz"
)

const maxUploadSize = 64 << 20

// Ingester reloads the question store from an uploaded document.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (ingest.Report, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	quiz     *quiz.Service
	ingester Ingester
	mode     quiz.Mode
	router   *http.ServeMux
}

// NewServer creates and configures a new server. mode is the selection used
// when a request does not ask for one.
func NewServer(svc *quiz.Service, ingester Ingester, mode quiz.Mode) *Server {
	s := &Server{
		quiz:     svc,
		ingester: ingester,
		mode:     mode,
		router:   http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /questions/next", s.handleGetNext())
	s.router.HandleFunc("GET /questions/{id}", s.handleGetQuestion())
	s.router.HandleFunc("POST /questions/{id}/answer", s.handlePostAnswer())
	s.router.HandleFunc("POST /ingest", s.handlePostIngest())
	s.router.HandleFunc("GET /stats", s.handleGetStats())
}

// handleGetNext returns the next question to study.
func (s *Server) handleGetNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := s.mode
		if m := r.URL.Query().Get("mode"); m != "" {
			mode = quiz.Mode(m)
			if mode != quiz.Due && mode != quiz.Random {
				writeError(w, http.StatusBadRequest, "mode must be due or random")
				return
			}
		}

		q, err := s.quiz.Next(r.Context(), mode)
		if err != nil {
			s.fail(w, "Error getting next question", err)
			return
		}
		writeJSON(w, http.StatusOK, newQuestionView(q))
	}
}

// handleGetQuestion returns one question by id.
func (s *Server) handleGetQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		q, err := s.quiz.Question(r.Context(), id)
		if err != nil {
			s.fail(w, "Error getting question", err)
			return
		}
		writeJSON(w, http.StatusOK, newQuestionView(q))
	}
}

// questionView is a question as shown before it is answered. The correct
// answer and explanation are only sent back by the answer endpoint.
type questionView struct {
	ID      int64          `json:"id"`
	Number  int            `json:"number"`
	Text    string         `json:"text"`
	Options domain.Options `json:"options"`
}

func newQuestionView(q *domain.Question) questionView {
	return questionView{ID: q.ID, Number: q.Number, Text: q.Text, Options: q.Options}
}

type answerRequest struct {
	Choice string `json:"choice"`
}

// handlePostAnswer records an answer and returns the feedback.
func (s *Server) handlePostAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		res, err := s.quiz.Submit(r.Context(), id, req.Choice)
		if err != nil {
			s.fail(w, "Error submitting answer", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handlePostIngest replaces the stored questions with the ones in an uploaded PDF.
func (s *Server) handlePostIngest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "expected a multipart upload in field \"file\"")
			return
		}
		defer file.Close()

		tmp, err := os.CreateTemp("", "examdeck-*"+filepath.Ext(header.Filename))
		if err != nil {
			s.fail(w, "Error buffering upload", err)
			return
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := io.Copy(tmp, file); err != nil {
			s.fail(w, "Error buffering upload", err)
			return
		}

		report, err := s.ingester.IngestFile(r.Context(), tmp.Name())
		if err != nil {
			s.fail(w, "Error ingesting upload", err)
			return
		}
		report.Source = header.Filename
		writeJSON(w, http.StatusOK, report)
	}
}

// handleGetStats returns study progress.
func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.quiz.Progress(r.Context())
		if err != nil {
			s.fail(w, "Error getting progress", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// fail maps domain errors to status codes and logs the rest.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, quiz.ErrNoQuestion), errors.Is(err, quiz.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quiz.ErrInvalidChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extract.ErrUnreadable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question ID")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
