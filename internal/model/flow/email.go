package flow

import (
	"net/mail"
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

// EmailInput 会话导出邮件的输入。
type EmailInput struct {
	RecipientEmail         string `json:"recipientEmail"`
	ConversationTranscript string `json:"conversationTranscript"`
	ClonedName             string `json:"clonedName,omitempty"`
}

func (in EmailInput) Validate() error {
	if err := ValidateEmail(in.RecipientEmail); err != nil {
		return err
	}
	if strings.TrimSpace(in.ConversationTranscript) == "" {
		return apperror.Validation("flow.email", "conversationTranscript is required")
	}
	return nil
}

// EmailOutput 邮件发送结果，Success 为 false 时 Message 说明原因。
type EmailOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (out EmailOutput) Validate() error {
	if strings.TrimSpace(out.Message) == "" {
		return apperror.Externalf("flow.email", "transport returned no outcome message")
	}
	return nil
}

// ValidateEmail accepts a bare RFC 5322 address whose domain contains a dot.
func ValidateEmail(raw string) error {
	const op = "flow.email"

	addr := strings.TrimSpace(raw)
	if addr == "" {
		return apperror.Validation(op, "please enter a valid email address")
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || parsed.Name != "" {
		return apperror.Validation(op, "please enter a valid email address")
	}

	at := strings.LastIndex(addr, "@")
	domain := addr[at+1:]
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return apperror.Validation(op, "please enter a valid email address")
	}
	return nil
}
