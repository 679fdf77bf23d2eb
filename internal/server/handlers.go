package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/valpere/perevoice/internal/gateway"
)

const (
	maxBodyBytes = 1 << 20

	headerAudioDuration = "X-Audio-Duration"
	healthMessage       = "Backend is running!"
)

type translateRequest struct {
	Text       *string `json:"text"`
	TargetLang string  `json:"target_lang"`
	SourceLang string  `json:"source_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text,omitempty"`
	Error          string `json:"error,omitempty"`
}

type speakRequest struct {
	Text *string `json:"text"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": healthMessage})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Languages(r.Context()))
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "field required: text"})
		return
	}

	out, err := s.svc.Translate(r.Context(), gateway.TranslateInput{
		Text:       *req.Text,
		TargetLang: req.TargetLang,
		SourceLang: req.SourceLang,
	})
	if err != nil {
		status := gateway.StatusFor(err)
		if s.cfg.Server.SoftErrors {
			status = http.StatusOK
		}
		writeJSON(w, status, translateResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{TranslatedText: out.TranslatedText})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "field required: text"})
		return
	}

	lang := r.URL.Query().Get("lang")
	out, err := s.svc.Speak(r.Context(), gateway.SpeakInput{
		Text:   *req.Text,
		Lang:   lang,
		Format: r.URL.Query().Get("format"),
	})
	if err != nil {
		s.logger.Error("speech synthesis failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("lang", lang),
			zap.Int("text_len", len(*req.Text)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: err.Error()})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Content-Disposition", "inline; filename=speech.mp3")
	h.Set("Content-Length", strconv.Itoa(len(out.Audio)))
	if out.Duration > 0 {
		h.Set(headerAudioDuration, strconv.FormatFloat(out.Duration.Seconds(), 'f', 3, 64))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Audio); err != nil {
		s.logger.Warn("failed to write audio", zap.Error(err))
	}
}

// decodeJSON reads one JSON object from the request body. Unknown fields
// are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
