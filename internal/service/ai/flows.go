package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

// Service runs the persona chat and tone adaptation flows against a chat model.
type Service struct {
	chatChain compose.Runnable[map[string]any, *schema.Message]
	toneChain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the flows backed by the configured Ark model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel compiles the flow chains around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	chatChain, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(chatSystemTemplate),
		schema.UserMessage("{query}"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	toneChain, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(toneSystemTemplate),
		schema.UserMessage(toneUserTemplate),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile tone chain: %w", err)
	}

	return &Service{
		chatChain: chatChain,
		toneChain: toneChain,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, template prompt.ChatTemplate) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// PersonalizeChatResponse answers the user in the voice of the personality profile.
func (s *Service) PersonalizeChatResponse(ctx context.Context, in flow.ChatInput) (flow.ChatOutput, error) {
	const op = "ai.personalize_chat"

	if err := in.Validate(); err != nil {
		return flow.ChatOutput{}, err
	}

	msg, err := s.chatChain.Invoke(ctx, chatVariables(in.PersonalityProfile, in.ChatInput))
	if err != nil {
		return flow.ChatOutput{}, apperror.External(op, fmt.Errorf("failed to run chat chain: %w", err))
	}

	var out flow.ChatOutput
	if err := decodeModelOutput(op, msg, &out); err != nil {
		return flow.ChatOutput{}, err
	}
	if err := out.Validate(); err != nil {
		return flow.ChatOutput{}, err
	}

	out.PersonalizedResponse = strings.TrimSpace(out.PersonalizedResponse)
	log.Printf("[ai] generated chat response, length=%d", len(out.PersonalizedResponse))
	return out, nil
}

// AdaptTone rewrites a message so its tone matches the personality profile.
func (s *Service) AdaptTone(ctx context.Context, in flow.ToneInput) (flow.ToneOutput, error) {
	const op = "ai.adapt_tone"

	if err := in.Validate(); err != nil {
		return flow.ToneOutput{}, err
	}

	msg, err := s.toneChain.Invoke(ctx, toneVariables(in.PersonalityProfile, in.Message))
	if err != nil {
		return flow.ToneOutput{}, apperror.External(op, fmt.Errorf("failed to run tone chain: %w", err))
	}

	var out flow.ToneOutput
	if err := decodeModelOutput(op, msg, &out); err != nil {
		return flow.ToneOutput{}, err
	}
	if err := out.Validate(); err != nil {
		return flow.ToneOutput{}, err
	}

	out.AdjustedMessage = strings.TrimSpace(out.AdjustedMessage)
	log.Printf("[ai] adapted tone, length=%d", len(out.AdjustedMessage))
	return out, nil
}

// decodeModelOutput 从模型回复中截取最外层 JSON 对象并解析到 target。
func decodeModelOutput(op string, msg *schema.Message, target any) error {
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return apperror.Externalf(op, "model returned an empty reply")
	}

	trimmed := strings.TrimSpace(msg.Content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return apperror.Externalf(op, "model reply is missing a json object")
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), target); err != nil {
		return apperror.External(op, fmt.Errorf("failed to parse model reply: %w", err))
	}
	return nil
}
