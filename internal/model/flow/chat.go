package flow

import (
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

// ChatInput 个性化聊天回复的输入。
type ChatInput struct {
	ChatInput          string `json:"chatInput"`
	PersonalityProfile string `json:"personalityProfile"`
}

// Validate rejects the request before any model call is made.
func (in ChatInput) Validate() error {
	if strings.TrimSpace(in.ChatInput) == "" {
		return apperror.Validation("flow.chat", "chatInput is required")
	}
	if strings.TrimSpace(in.PersonalityProfile) == "" {
		return apperror.Validation("flow.chat", "personalityProfile is required")
	}
	return nil
}

// ChatOutput 个性化聊天回复的输出。
type ChatOutput struct {
	PersonalizedResponse string `json:"personalizedResponse"`
}

// Validate reports a malformed engine payload as an external service failure.
func (out ChatOutput) Validate() error {
	if strings.TrimSpace(out.PersonalizedResponse) == "" {
		return apperror.Externalf("flow.chat", "engine returned an empty personalizedResponse")
	}
	return nil
}

// ToneInput 语气调整的输入。
type ToneInput struct {
	Message            string `json:"message"`
	PersonalityProfile string `json:"personalityProfile"`
}

func (in ToneInput) Validate() error {
	if strings.TrimSpace(in.Message) == "" {
		return apperror.Validation("flow.tone", "message is required")
	}
	if strings.TrimSpace(in.PersonalityProfile) == "" {
		return apperror.Validation("flow.tone", "personalityProfile is required")
	}
	return nil
}

// ToneOutput 语气调整的输出。
type ToneOutput struct {
	AdjustedMessage string `json:"adjustedMessage"`
}

func (out ToneOutput) Validate() error {
	if strings.TrimSpace(out.AdjustedMessage) == "" {
		return apperror.Externalf("flow.tone", "engine returned an empty adjustedMessage")
	}
	return nil
}
