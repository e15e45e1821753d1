package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/ingest"
	"github.com/cortexhq/cortex/internal/observability"
)

type ingestRequest struct {
	RepoURL  string `json:"repo_url"`
	RepoName string `json:"repo_name"`
}

type chatRequest struct {
	ContextID string `json:"context_id"`
	Message   string `json:"message"`
}

// webhookPayload is the subset of a GitHub push event Cortex reads.
type webhookPayload struct {
	Repository struct {
		HTMLURL  string `json:"html_url"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
}

// handleHealth reports overall status plus per-component checks, so a
// probe can tell a dead vector store from a dead process.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	healthy := true

	if _, err := s.store.ListCollections(r.Context()); err != nil {
		components["qdrant"] = err.Error()
		healthy = false
	} else {
		components["qdrant"] = "ok"
	}
	if _, err := s.registry.Entries(); err != nil {
		components["registry"] = err.Error()
		healthy = false
	} else {
		components["registry"] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	s.respondJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
	})
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListCollections(r.Context())
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInternal, "listing contexts", err))
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, names)
}

// handleListFiles returns the distinct indexed file paths for a context.
// An unknown context yields an empty list, not an error.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	contextID := chi.URLParam(r, "id")

	exists, err := s.store.CollectionExists(r.Context(), contextID)
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInternal, "checking context", err))
		return
	}
	if !exists {
		s.respondJSON(w, http.StatusOK, []string{})
		return
	}

	paths, err := s.store.ListSourcePaths(r.Context(), contextID)
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInternal, "listing files", err))
		return
	}
	if paths == nil {
		paths = []string{}
	}
	s.respondJSON(w, http.StatusOK, paths)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "decoding request body", err))
		return
	}
	if req.RepoURL == "" {
		s.respondError(w, r, apperr.New(apperr.KindInvalid, "repo_url is required"))
		return
	}
	contextID := ingest.SanitizeContextID(req.RepoName)
	if contextID == "" {
		s.respondError(w, r, apperr.New(apperr.KindInvalid, "repo_name must contain letters, digits, underscore or hyphen"))
		return
	}

	job := ingest.Job{RepoURL: req.RepoURL, ContextID: contextID}
	s.audit.Log(observability.AuditEventIngestStart, contextID, true, "", map[string]string{"repo_url": req.RepoURL})
	if err := s.dispatcher.IngestRepository(r.Context(), job); err != nil {
		s.audit.Log(observability.AuditEventIngestError, contextID, false, err.Error(), nil)
		s.respondError(w, r, err)
		return
	}
	// The ingest may have run in a worker process; evict this process's
	// cached session so the next chat rebuilds against the new data.
	s.sessions.Invalidate(contextID)
	s.audit.Log(observability.AuditEventIngestComplete, contextID, true, "", nil)
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":     "ingested",
		"context_id": contextID,
	})
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "parsing multipart form", err))
		return
	}
	contextID := ingest.SanitizeContextID(r.FormValue("context_id"))
	if contextID == "" {
		s.respondError(w, r, apperr.New(apperr.KindInvalid, "context_id is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "file field is required", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes))
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInternal, "reading upload", err))
		return
	}

	if err := s.ingestor.IngestUpload(r.Context(), contextID, header.Filename, content); err != nil {
		s.audit.Log(observability.AuditEventIngestError, contextID, false, err.Error(), nil)
		s.respondError(w, r, err)
		return
	}
	s.audit.Log(observability.AuditEventUploadComplete, contextID, true, "", map[string]string{"filename": header.Filename})
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ingested"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "decoding request body", err))
		return
	}
	if req.ContextID == "" || req.Message == "" {
		s.respondError(w, r, apperr.New(apperr.KindInvalid, "context_id and message are required"))
		return
	}

	session, err := s.sessions.Get(r.Context(), req.ContextID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	start := time.Now()
	answer, err := session.Ask(r.Context(), req.Message)
	if s.metrics != nil {
		s.metrics.ChatDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.recordChat("failure")
		s.audit.Log(observability.AuditEventChatError, req.ContextID, false, err.Error(), nil)
		s.respondError(w, r, err)
		return
	}
	s.recordChat("success")
	s.audit.Log(observability.AuditEventChatRequest, req.ContextID, true, "", nil)
	s.respondJSON(w, http.StatusOK, map[string]string{"response": answer})
}

// handleGitHubWebhook re-ingests a repository on push. Pushes for
// repositories that were never ingested are acknowledged and ignored.
func (s *Server) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "reading webhook body", err))
		return
	}
	if s.opts.WebhookSecret != "" && !verifySignature(body, r.Header.Get("X-Hub-Signature-256"), s.opts.WebhookSecret) {
		s.logger.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		s.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid webhook signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.respondError(w, r, apperr.Wrap(apperr.KindInvalid, "decoding webhook payload", err))
		return
	}
	repoURL := payload.Repository.HTMLURL
	if repoURL == "" {
		repoURL = payload.Repository.CloneURL
	}
	if repoURL == "" {
		s.respondError(w, r, apperr.New(apperr.KindInvalid, "payload has no repository url"))
		return
	}

	contextID, err := s.registry.Lookup(repoURL)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.logger.Info("webhook for unregistered repository ignored", "repo_url", repoURL)
			s.audit.Log(observability.AuditEventWebhookIgnored, "", true, "", map[string]string{"repo_url": repoURL})
			s.respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		s.respondError(w, r, err)
		return
	}

	job := ingest.Job{RepoURL: repoURL, ContextID: contextID}
	if err := s.dispatcher.ScheduleResync(r.Context(), job); err != nil {
		s.respondError(w, r, err)
		return
	}
	// Evicting at schedule time is safe: an evicted session is rebuilt
	// from the store on the next chat, resync outcome notwithstanding.
	s.sessions.Invalidate(contextID)
	s.logger.Info("webhook resync scheduled", "repo_url", repoURL, "context_id", contextID)
	s.audit.Log(observability.AuditEventWebhookResync, contextID, true, "", map[string]string{"repo_url": repoURL})
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "accepted",
		"context": contextID,
	})
}

// verifySignature checks a GitHub X-Hub-Signature-256 header against
// the shared secret.
func verifySignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(want))
}

func (s *Server) recordChat(outcome string) {
	if s.metrics != nil {
		s.metrics.ChatsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
