package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/model/chat"
	sessionService "github.com/zhouzirui/postscript/backend/internal/service/session"
	"github.com/zhouzirui/postscript/backend/pkg/utils"
)

// Handler 会话相关的HTTP处理器
type Handler struct {
	sessions *sessionService.Manager
}

// New 创建会话处理器
func New(sessions *sessionService.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.handleCreate)

		sr.Route("/{sessionID}", func(s chi.Router) {
			s.Get("/", h.handleGet)
			s.Delete("/", h.handleDelete)
			s.Put("/persona/name", h.handleSetName)
			s.Put("/persona/personality", h.handleSetPersonality)
			s.Post("/messages", h.handleSubmitMessage)
			s.Post("/speech", h.handleSpeech)
			s.Post("/export", h.handleExport)
		})
	})
}

type messageResponse struct {
	sessionService.SubmitResult
	UpgradeNotice *sessionService.Notice `json:"upgradeNotice,omitempty"`
	Session       chat.Snapshot          `json:"session"`
}

type speechResponse struct {
	sessionService.SpeechResult
	Session chat.Snapshot `json:"session"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, _ *http.Request) {
	ctrl := h.sessions.Create()
	utils.RespondJSON(w, http.StatusCreated, ctrl.Snapshot())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetName(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ctrl.SetPersonaName(payload.Name); err != nil {
		respondSessionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) handleSetPersonality(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		PersonalityProfile string `json:"personalityProfile"`
		PortraitImage      string `json:"portraitImage"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ctrl.SetPersonality(payload.PersonalityProfile, payload.PortraitImage); err != nil {
		respondSessionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := ctrl.SubmitUserMessage(r.Context(), payload.Text)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	resp := messageResponse{SubmitResult: result, Session: ctrl.Snapshot()}
	if result.UpgradeRequired {
		notice := sessionService.DailyLimitNotice
		resp.UpgradeNotice = &notice
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	result, err := ctrl.RequestSpeech(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, speechResponse{SpeechResult: result, Session: ctrl.Snapshot()})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		RecipientEmail string `json:"recipientEmail"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := ctrl.ExportConversation(r.Context(), payload.RecipientEmail)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*sessionService.Controller, bool) {
	ctrl, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondSessionError(w, err)
		return nil, false
	}
	return ctrl, true
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessionService.ErrFlowUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, sessionService.ErrQuotaExhausted):
		utils.RespondJSON(w, http.StatusTooManyRequests, utils.ErrorResponse{
			Error:           apperror.UserMessage(err),
			Kind:            string(apperror.KindPrecondition),
			UpgradeRequired: true,
			Notice:          sessionService.DailyLimitNotice,
		})
	default:
		utils.RespondAppError(w, err)
	}
}
