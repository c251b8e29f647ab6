package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrWong99/vocero/internal/app"
	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/internal/observe"
	"github.com/MrWong99/vocero/pkg/voice"
)

// maxRequestBody bounds JSON request bodies; maxCloneBody bounds the
// multipart upload of reference WAV samples.
const (
	maxRequestBody = 1 << 20
	maxCloneBody   = 64 << 20
)

// speakResponse is the JSON body returned by POST /api/speak.
type speakResponse struct {
	Success    bool   `json:"success"`
	Engine     string `json:"engine"`
	Voice      string `json:"voice"`
	Reason     string `json:"reason"`
	OutputPath string `json:"output_path,omitempty"`
	AudioBytes int    `json:"audio_bytes,omitempty"`
	Played     bool   `json:"played"`
}

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	res, sel, err := s.app.SelectAndSynthesize(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, speakResponse{
		Success:    true,
		Engine:     res.Engine,
		Voice:      res.Voice.Name,
		Reason:     string(sel.Reason),
		OutputPath: res.OutputPath,
		AudioBytes: len(res.Audio),
		Played:     res.Played,
	})
}

// voicesResponse is the JSON body returned by GET /api/voices.
type voicesResponse struct {
	Voices []voice.Voice `json:"voices"`
	Count  int           `json:"count"`
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := app.Filter{
		Gender:   voice.Gender(q.Get("gender")),
		Language: voice.Language(q.Get("language")),
		Quality:  voice.Quality(q.Get("quality")),
		Search:   q.Get("search"),
	}

	voices, err := s.app.Voices(r.Context(), f)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, voicesResponse{Voices: voices, Count: len(voices)})
}

func (s *Server) handleVoiceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// cloneResponse is the JSON body returned by POST /api/voices/clone.
type cloneResponse struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
}

func (s *Server) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCloneBody); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	files := r.MultipartForm.File["wav_files"]
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("no wav_files uploaded"))
		return
	}

	samples := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		samples = append(samples, data)
	}

	name, err := s.app.CloneVoice(r.Context(), samples)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, cloneResponse{Success: true, Name: name})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.app.RefreshVoices(r.Context()); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Directory().Stats())
}

// ---- response plumbing ----

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		invalid  *engine.InvalidRequestError
		notFound *voice.NotFoundError
		notAvail *engine.NotAvailableError
		synth    *engine.SynthesisError
		unreach  *directory.UnreachableError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &notAvail), errors.Is(err, engine.ErrNoEngineAvailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &unreach):
		return http.StatusServiceUnavailable
	case errors.As(err, &synth):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"success":false,"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Warn("request failed",
			"path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
