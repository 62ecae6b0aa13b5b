package flows

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/postscript/backend/internal/model/flow"
	sessionService "github.com/zhouzirui/postscript/backend/internal/service/session"
	"github.com/zhouzirui/postscript/backend/pkg/utils"
)

// VoiceCloner 声音克隆流程，目前只有占位实现
type VoiceCloner interface {
	CloneVoice(ctx context.Context, in flow.VoiceCloneInput) (flow.VoiceCloneOutput, error)
}

// Handler 直接暴露不经过会话的流程，nil 依赖返回 503。
type Handler struct {
	tone   sessionService.ToneAdapter
	speech sessionService.SpeechSynthesizer
	cloner VoiceCloner
}

// New 创建流程处理器
func New(tone sessionService.ToneAdapter, speech sessionService.SpeechSynthesizer, cloner VoiceCloner) *Handler {
	return &Handler{tone: tone, speech: speech, cloner: cloner}
}

// RegisterRoutes 注册流程相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/flows", func(fr chi.Router) {
		fr.Post("/tone", h.handleTone)
		fr.Post("/speech", h.handleSpeech)
		fr.Post("/voice-clone", h.handleVoiceClone)
	})
}

func (h *Handler) handleTone(w http.ResponseWriter, r *http.Request) {
	if h.tone == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "tone adaptation unavailable")
		return
	}

	var in flow.ToneInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.tone.AdaptTone(r.Context(), in)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

// handleSpeech 文本转语音，不写入任何会话
func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
		return
	}

	var in flow.SpeechInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.speech.TextToSpeech(r.Context(), in)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleVoiceClone(w http.ResponseWriter, r *http.Request) {
	if h.cloner == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "voice cloning unavailable")
		return
	}

	var in flow.VoiceCloneInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.cloner.CloneVoice(r.Context(), in)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, out)
}
