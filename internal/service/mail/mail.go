package mail

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

// Envelope 一封待发送的会话记录邮件。
type Envelope struct {
	To          string
	Subject     string
	PersonaName string
	Transcript  string
}

// Transport 负责实际投递。投递失败应体现在 EmailOutput.Success 中，
// 只有无法给出结果时才返回 error。
type Transport interface {
	Deliver(ctx context.Context, env Envelope) (flow.EmailOutput, error)
}

// Service 实现会话导出邮件流程。
type Service struct {
	transport Transport
}

func NewService(transport Transport) *Service {
	return &Service{transport: transport}
}

// NewServiceFromConfig 按配置选择模拟或 SMTP 投递。
func NewServiceFromConfig(cfg config.MailConfig) *Service {
	if cfg.Transport == config.MailTransportSMTP {
		return NewService(NewSMTPTransport(cfg))
	}
	return NewService(NewSimulatedTransport())
}

// EmailConversation sends the transcript to the recipient.
func (s *Service) EmailConversation(ctx context.Context, in flow.EmailInput) (flow.EmailOutput, error) {
	const op = "mail.email_conversation"

	if err := in.Validate(); err != nil {
		return flow.EmailOutput{}, err
	}

	name := displayName(in.ClonedName)
	env := Envelope{
		To:          strings.TrimSpace(in.RecipientEmail),
		Subject:     fmt.Sprintf("Your conversation with %s", name),
		PersonaName: name,
		Transcript:  in.ConversationTranscript,
	}

	out, err := s.transport.Deliver(ctx, env)
	if err != nil {
		return flow.EmailOutput{}, apperror.External(op, err)
	}
	if err := out.Validate(); err != nil {
		return flow.EmailOutput{}, err
	}

	log.Printf("[mail] delivered success=%t transcript=%d", out.Success, len(in.ConversationTranscript))
	return out, nil
}

func displayName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "AI"
}
