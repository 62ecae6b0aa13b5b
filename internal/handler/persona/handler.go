package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/postscript/backend/internal/model/persona"
	"github.com/zhouzirui/postscript/backend/pkg/utils"
)

// Handler persona引导相关的HTTP处理器
type Handler struct {
	suggestions []persona.Suggestion
}

// New 创建persona处理器
func New() *Handler {
	return &Handler{suggestions: persona.Suggestions()}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona/suggestions", h.handleListSuggestions)
}

// handleListSuggestions 列出填写性格描述时的引导问题
func (h *Handler) handleListSuggestions(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.suggestions)
}
