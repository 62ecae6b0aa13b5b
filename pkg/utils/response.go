package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

// maxBodyBytes 请求体上限，人像 data URI 可能较大
const maxBodyBytes = 8 << 20

// ErrorResponse 统一的错误响应体
type ErrorResponse struct {
	Error           string `json:"error"`
	Kind            string `json:"kind,omitempty"`
	UpgradeRequired bool   `json:"upgradeRequired,omitempty"`
	Notice          any    `json:"notice,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// StatusForKind 将错误类别映射为 HTTP 状态码。
func StatusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindPrecondition:
		return http.StatusConflict
	case apperror.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError 按 apperror 类别输出错误，未分类错误不暴露细节。
func RespondAppError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	if kind == "" {
		log.Printf("[http] unclassified error: %v", err)
		RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	RespondJSON(w, StatusForKind(kind), ErrorResponse{Error: apperror.UserMessage(err), Kind: string(kind)})
}

// DecodeJSON 解析请求体，拒绝未知字段与多余内容。
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
