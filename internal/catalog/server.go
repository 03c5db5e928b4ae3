package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const maxBodyBytes = 64 << 10

type Server struct {
	repo *Repo
	log  *slog.Logger
}

func NewServer(repo *Repo, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{repo: repo, log: log}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /database", s.handleList)
	mux.HandleFunc("GET /database/{malId}", s.handleByAnime)
	mux.HandleFunc("POST /database", s.handleAdd)
	mux.HandleFunc("DELETE /database/{id}", s.handleDelete)
	mux.HandleFunc("GET /roulette", s.handleRoulette)
	mux.HandleFunc("GET /animelist", s.handleAnimeList)

	return s.loggingMiddleware(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		status = http.StatusConflict
	default:
		s.log.Error("catalog request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Server is up.")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	songs, err := s.repo.Songs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleByAnime(w http.ResponseWriter, r *http.Request) {
	malID, err := strconv.Atoi(r.PathValue("malId"))
	if err != nil || malID <= 0 {
		s.writeError(w, ErrInvalid)
		return
	}
	songs, err := s.repo.SongsByMalID(r.Context(), malID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var in Song
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed song: " + err.Error()})
		return
	}
	song, err := s.repo.AddSong(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("song added", "id", song.ID, "anime", song.AnimeTitle, "type", song.SongType)
	s.writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.DeleteSong(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("song deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoulette(w http.ResponseWriter, r *http.Request) {
	song, err := s.repo.RandomSong(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleAnimeList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.AnimeIDs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}
