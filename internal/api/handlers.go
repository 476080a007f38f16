package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/localize"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
	"github.com/itstheanurag/kodanaliz/internal/queue"
)

const (
	DefaultLanguage = "python"
	maxBodyBytes    = 1 << 20
)

type AnalyzeRequest struct {
	Code                string `json:"code"`
	ProgrammingLanguage string `json:"programming_language"`
	Lang                string `json:"lang"`
}

type DiagnosticResponse struct {
	ErrorType string `json:"error_type"`
	// Line is a number, or "?" when unknown.
	Line            any    `json:"line"`
	Column          int    `json:"column,omitempty"`
	Category        string `json:"category,omitempty"`
	OriginalMessage string `json:"original_message"`
	Tool            string `json:"tool"`
	Explanation     string `json:"explanation"`
	Solution        string `json:"solution"`
}

type AnalyzeResponse struct {
	JobID       string               `json:"job_id"`
	Status      string               `json:"status"`
	Locale      string               `json:"locale"`
	Output      *string              `json:"output,omitempty"`
	Diagnostics []DiagnosticResponse `json:"diagnostics,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Languages lists what the service can analyze.
type Languages interface {
	Languages() []string
}

type Handler struct {
	queueManager *queue.Manager
	localizer    *localize.Localizer
	languages    Languages
	timeout      time.Duration
	logger       *zerolog.Logger
}

func NewHandler(manager *queue.Manager, localizer *localize.Localizer, languages Languages, timeout time.Duration, logger *zerolog.Logger) *Handler {
	return &Handler{
		queueManager: manager,
		localizer:    localizer,
		languages:    languages,
		timeout:      timeout,
		logger:       logger,
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.localizer.Message(locale(r, ""), "banner")})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "queued": h.queueManager.Len()})
}

func (h *Handler) Languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": h.languages.Languages(),
		"locales":   h.localizer.Locales(),
	})
}

// RateLimited is the localized body text for throttled requests. The body is
// not read, so only ?lang= and Accept-Language are considered.
func (h *Handler) RateLimited(r *http.Request) string {
	return h.localizer.Message(locale(r, ""), "rate_limited")
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, locale(r, ""), "invalid_request")
		return
	}
	loc := h.localizer.Resolve(locale(r, req.Lang))
	if strings.TrimSpace(req.Code) == "" {
		h.fail(w, http.StatusBadRequest, loc, "empty_code")
		return
	}
	if req.ProgrammingLanguage == "" {
		req.ProgrammingLanguage = DefaultLanguage
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	job := queue.NewJob(ctx, uuid.NewString(), orchestrator.Request{
		SourceCode: req.Code,
		Language:   strings.ToLower(req.ProgrammingLanguage),
		Locale:     loc,
	})
	if err := h.queueManager.Submit(job); err != nil {
		h.logger.Warn().Err(err).Msg("rejecting analysis")
		h.fail(w, http.StatusServiceUnavailable, loc, "busy")
		return
	}

	select {
	case res := <-job.Result:
		writeJSON(w, http.StatusOK, h.render(job.ID, loc, res))
	case err := <-job.Err:
		h.failErr(w, loc, err)
	case <-ctx.Done():
		h.failErr(w, loc, ctx.Err())
	}
}

func (h *Handler) failErr(w http.ResponseWriter, loc string, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput):
		key := "unsupported_language"
		if errors.Is(err, orchestrator.ErrEmptySource) {
			key = "empty_code"
		}
		h.fail(w, http.StatusBadRequest, loc, key)
	case errors.Is(err, context.DeadlineExceeded):
		h.fail(w, http.StatusGatewayTimeout, loc, "busy")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Error().Err(err).Msg("analysis failed")
		h.fail(w, http.StatusInternalServerError, loc, "internal_failure")
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, loc, key string) {
	writeJSON(w, status, ErrorResponse{Error: h.localizer.Message(loc, key)})
}

func (h *Handler) render(jobID, loc string, res diagnostic.Result) AnalyzeResponse {
	out := AnalyzeResponse{JobID: jobID, Status: string(res.Status), Locale: loc}
	if res.IsSuccess() {
		output := res.Output
		out.Output = &output
		return out
	}
	out.Diagnostics = make([]DiagnosticResponse, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		text := h.localizer.Explain(loc, d)
		var line any = "?"
		if d.HasLine() {
			line = d.Line
		}
		out.Diagnostics = append(out.Diagnostics, DiagnosticResponse{
			ErrorType:       string(d.Kind),
			Line:            line,
			Column:          d.Column,
			Category:        d.Category,
			OriginalMessage: d.RawMessage,
			Tool:            d.ToolSource,
			Explanation:     text.Explanation,
			Solution:        text.Solution,
		})
	}
	return out
}

// locale prefers the body's lang, then ?lang=, then Accept-Language.
func locale(r *http.Request, bodyLang string) string {
	if bodyLang != "" {
		return bodyLang
	}
	if q := r.URL.Query().Get("lang"); q != "" {
		return q
	}
	return r.Header.Get("Accept-Language")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
