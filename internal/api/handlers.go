package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderlens/order-analyzer/internal/core"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

const internalErrorMessage = "Internal server error"

type APIHandler struct {
	chatService       *core.ChatService
	extractionService *core.ExtractionService
	log               *logger.Logger
}

func NewAPIHandler(cs *core.ChatService, es *core.ExtractionService, log *logger.Logger) *APIHandler {
	return &APIHandler{chatService: cs, extractionService: es, log: log.With("component", "api")}
}

type successResponse struct {
	Success bool `json:"success"`
}

// saveResponse carries the version a later save of the same session must send.
type saveResponse struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// failure maps a service error onto the response. Only not-found, conflict and
// bad input are distinguished; everything else is an opaque 500.
func (h *APIHandler) failure(w http.ResponseWriter, r *http.Request, action string, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Chat session was modified by another client")
	case errors.Is(err, core.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "Invalid request")
	default:
		h.log.Error("request failed", "action", action, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chatService.ListSessions(r.Context())
	if err != nil {
		h.failure(w, r, "list chat sessions", err, "")
		return
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *APIHandler) SaveSessionHandler(w http.ResponseWriter, r *http.Request) {
	var session store.ChatSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.saveSession(w, r, &session)
}

func (h *APIHandler) UpdateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var session store.ChatSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session.ID = chi.URLParam(r, "sessionID")
	h.saveSession(w, r, &session)
}

func (h *APIHandler) saveSession(w http.ResponseWriter, r *http.Request, session *store.ChatSession) {
	if err := h.chatService.SaveSession(r.Context(), session); err != nil {
		h.failure(w, r, "save chat session", err, "")
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Version: session.Version})
}

func (h *APIHandler) ClearSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.ClearSessions(r.Context()); err != nil {
		h.failure(w, r, "clear chat sessions", err, "")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatService.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.failure(w, r, "get chat session", err, "Chat session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.failure(w, r, "delete chat session", err, "")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type ChatRequest struct {
	Messages  []store.ChatMessage `json:"messages"`
	ImageURLs []string            `json:"imageUrls,omitempty"`
}

type ExtractionResponse struct {
	ChecklistID string                `json:"checklistId"`
	Items       []store.ChecklistItem `json:"items"`
}

// ChatHandler extracts a checklist when images are attached and otherwise
// streams a chat reply.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.ImageURLs) > 0 {
		checklist, err := h.extractionService.Extract(r.Context(), req.ImageURLs)
		if err != nil {
			h.failure(w, r, "extract checklist", err, "")
			return
		}
		writeJSON(w, http.StatusOK, ExtractionResponse{ChecklistID: checklist.ID, Items: checklist.Items})
		return
	}

	stream := newDataStream(w)
	err := h.chatService.StreamReply(r.Context(), req.Messages, stream.Text)
	if err == nil {
		stream.Finish()
		return
	}
	if !stream.Started() {
		h.failure(w, r, "stream chat reply", err, "")
		return
	}
	// Headers are gone; report in-band.
	if r.Context().Err() == nil {
		h.log.Error("chat stream failed", "path", r.URL.Path, "error", err)
	}
	stream.Error("An error occurred.")
}

type ChecklistResponse struct {
	Items     []store.ChecklistItem `json:"items"`
	CreatedAt time.Time             `json:"createdAt"`
	ExpiresAt time.Time             `json:"expiresAt"`
}

func (h *APIHandler) GetChecklistHandler(w http.ResponseWriter, r *http.Request) {
	checklist, err := h.extractionService.GetChecklist(r.Context(), chi.URLParam(r, "checklistID"))
	if err != nil {
		h.failure(w, r, "get checklist", err, "Checklist not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, ChecklistResponse{
		Items:     checklist.Items,
		CreatedAt: checklist.CreatedAt,
		ExpiresAt: checklist.ExpiresAt,
	})
}

func (h *APIHandler) DownloadChecklistHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "checklistID")
	checklist, err := h.extractionService.GetChecklist(r.Context(), id)
	if err != nil {
		h.failure(w, r, "download checklist", err, "Checklist not found or expired")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="checklist-%s.txt"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(core.ChecklistText(checklist.Items)))
}
