package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/model/chat"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
	"github.com/zhouzirui/postscript/backend/internal/model/persona"
)

const (
	DefaultQuotaLimit = 5

	GreetingText  = "I'm Ready"
	FallbackReply = "I'm sorry, I encountered an issue while trying to respond. Please try again."
	userLabel     = "You"
)

var (
	ErrNotActive       = errors.New("conversation has not started yet")
	ErrQuotaExhausted  = errors.New("daily chat limit reached")
	ErrBusy            = errors.New("another request is still in progress")
	ErrNothingToSpeak  = errors.New("no AI message to read")
	ErrNothingToExport = errors.New("the conversation is empty")
	ErrFlowUnavailable = errors.New("flow is not configured")
	ErrSessionNotFound = errors.New("session not found")
)

// Notice 需要前端以提示框形式展示的信息。
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DailyLimitNotice 配额用尽时展示的升级提示。
var DailyLimitNotice = Notice{
	Title:       "Daily Limit Reached",
	Description: "You've used all your free chats for today. Come back tomorrow for more, or upgrade to a Plus plan for more daily conversations and advanced features.",
}

type ChatResponder interface {
	PersonalizeChatResponse(ctx context.Context, in flow.ChatInput) (flow.ChatOutput, error)
}

type ToneAdapter interface {
	AdaptTone(ctx context.Context, in flow.ToneInput) (flow.ToneOutput, error)
}

type SpeechSynthesizer interface {
	TextToSpeech(ctx context.Context, in flow.SpeechInput) (flow.SpeechOutput, error)
}

type ConversationMailer interface {
	EmailConversation(ctx context.Context, in flow.EmailInput) (flow.EmailOutput, error)
}

// Dependencies 会话依赖的外部流程，未配置的可为 nil。
type Dependencies struct {
	Chat   ChatResponder
	Tone   ToneAdapter
	Speech SpeechSynthesizer
	Mail   ConversationMailer
}

// Options 会话行为参数。
type Options struct {
	QuotaLimit     int
	FlowTimeout    time.Duration // 0 表示不限时
	ToneAdaptation bool
}

// SubmitResult describes the outcome of one accepted user message.
type SubmitResult struct {
	UserMessage     chat.Message `json:"userMessage"`
	Reply           chat.Message `json:"reply"`
	Fallback        bool         `json:"fallback"`
	Notice          *Notice      `json:"notice,omitempty"`
	UpgradeRequired bool         `json:"upgradeRequired"`
}

// SpeechResult 朗读结果。
type SpeechResult struct {
	MessageID    string `json:"messageId"`
	AudioDataURI string `json:"audioDataUri"`
}

// Controller owns a single conversation session. All mutations go through its
// methods; flows are called without holding the lock, guarded by the busy flag.
type Controller struct {
	id   string
	deps Dependencies
	opts Options

	mu       sync.Mutex
	draft    persona.Draft
	state    chat.State
	messages []chat.Message
	count    int
	audio    string
	busy     chat.Operation
	now      func() time.Time
}

// NewController 创建处于 AwaitingPersona 状态的会话。
func NewController(id string, deps Dependencies, opts Options) *Controller {
	if opts.QuotaLimit <= 0 {
		opts.QuotaLimit = DefaultQuotaLimit
	}
	return &Controller{
		id:       id,
		deps:     deps,
		opts:     opts,
		state:    chat.StateAwaitingPersona,
		messages: make([]chat.Message, 0, 2*opts.QuotaLimit+1),
		now:      time.Now,
	}
}

func (c *Controller) ID() string {
	return c.id
}

// SetPersonaName 引导第一步。
func (c *Controller) SetPersonaName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.draft.SetName(name)
}

// SetPersonality 引导第二步，成功后会话进入 Active 并写入开场白。
func (c *Controller) SetPersonality(profile, portrait string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.draft.SetPersonality(profile, portrait); err != nil {
		return err
	}

	c.state = chat.StateActive
	c.appendLocked(chat.SenderAI, GreetingText, true)
	log.Printf("[session] %s activated persona_len=%d portrait=%t", c.id, len(profile), portrait != "")
	return nil
}

// SubmitUserMessage accepts one user turn and waits for the persona reply.
// A failed chat flow still consumes quota and yields the fallback reply.
func (c *Controller) SubmitUserMessage(ctx context.Context, text string) (SubmitResult, error) {
	const op = "session.submit_message"

	c.mu.Lock()
	switch {
	case c.state == chat.StateAwaitingPersona:
		c.mu.Unlock()
		return SubmitResult{}, apperror.Precondition(op, ErrNotActive)
	case c.state == chat.StateQuotaExhausted:
		c.mu.Unlock()
		return SubmitResult{UpgradeRequired: true}, apperror.Precondition(op, ErrQuotaExhausted)
	case strings.TrimSpace(text) == "":
		c.mu.Unlock()
		return SubmitResult{}, apperror.Validation(op, "message cannot be empty")
	case c.busy != chat.OpNone:
		c.mu.Unlock()
		return SubmitResult{}, apperror.Precondition(op, ErrBusy)
	case c.deps.Chat == nil:
		c.mu.Unlock()
		return SubmitResult{}, ErrFlowUnavailable
	}

	result := SubmitResult{UserMessage: c.appendLocked(chat.SenderUser, text, false)}
	c.count++
	c.audio = ""
	c.busy = chat.OpChat
	if c.count >= c.opts.QuotaLimit {
		c.state = chat.StateQuotaExhausted
		result.UpgradeRequired = true
		log.Printf("[session] %s reached quota %d", c.id, c.opts.QuotaLimit)
	}
	profile, _ := c.draft.Persona()
	c.mu.Unlock()

	reply, err := c.respond(ctx, text, profile.PersonalityProfile)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = chat.OpNone

	if err != nil {
		log.Printf("[session] %s chat flow failed: %v", c.id, err)
		result.Reply = c.appendLocked(chat.SenderAI, FallbackReply, false)
		result.Fallback = true
		result.Notice = &Notice{Title: "Error Getting AI Response", Description: apperror.UserMessage(err)}
		return result, nil
	}

	result.Reply = c.appendLocked(chat.SenderAI, reply, false)
	log.Printf("[session] %s reply appended count=%d/%d", c.id, c.count, c.opts.QuotaLimit)
	return result, nil
}

func (c *Controller) respond(ctx context.Context, text, profile string) (string, error) {
	ctx, cancel := c.flowContext(ctx)
	defer cancel()

	out, err := c.deps.Chat.PersonalizeChatResponse(ctx, flow.ChatInput{ChatInput: text, PersonalityProfile: profile})
	if err != nil {
		return "", err
	}
	reply := out.PersonalizedResponse

	if c.opts.ToneAdaptation && c.deps.Tone != nil {
		adjusted, err := c.deps.Tone.AdaptTone(ctx, flow.ToneInput{Message: reply, PersonalityProfile: profile})
		if err != nil {
			// 语气调整失败时保留原始回复
			log.Printf("[session] %s tone adaptation skipped: %v", c.id, err)
		} else {
			reply = adjusted.AdjustedMessage
		}
	}
	return reply, nil
}

// RequestSpeech reads the most recent non-greeting AI message aloud.
func (c *Controller) RequestSpeech(ctx context.Context) (SpeechResult, error) {
	const op = "session.request_speech"

	c.mu.Lock()
	if c.busy != chat.OpNone {
		c.mu.Unlock()
		return SpeechResult{}, apperror.Precondition(op, ErrBusy)
	}
	target, ok := c.lastReplyLocked()
	if !ok {
		c.mu.Unlock()
		return SpeechResult{}, apperror.Precondition(op, ErrNothingToSpeak)
	}
	if c.deps.Speech == nil {
		c.mu.Unlock()
		return SpeechResult{}, ErrFlowUnavailable
	}
	c.busy = chat.OpSpeech
	c.mu.Unlock()

	flowCtx, cancel := c.flowContext(ctx)
	out, err := c.deps.Speech.TextToSpeech(flowCtx, flow.SpeechInput{TextToSpeak: target.Text})
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = chat.OpNone

	if err != nil {
		log.Printf("[session] %s speech failed: %v", c.id, err)
		return SpeechResult{}, classifyExternal(op, err)
	}

	c.audio = out.AudioDataURI
	return SpeechResult{MessageID: target.ID, AudioDataURI: out.AudioDataURI}, nil
}

// ExportConversation emails the transcript. The address is validated before
// anything else so a bad address never reaches the mail flow.
func (c *Controller) ExportConversation(ctx context.Context, recipient string) (flow.EmailOutput, error) {
	const op = "session.export"

	if err := flow.ValidateEmail(recipient); err != nil {
		return flow.EmailOutput{}, err
	}

	c.mu.Lock()
	transcript := c.transcriptLocked()
	switch {
	case transcript == "":
		c.mu.Unlock()
		return flow.EmailOutput{}, apperror.Precondition(op, ErrNothingToExport)
	case c.busy != chat.OpNone:
		c.mu.Unlock()
		return flow.EmailOutput{}, apperror.Precondition(op, ErrBusy)
	case c.deps.Mail == nil:
		c.mu.Unlock()
		return flow.EmailOutput{}, ErrFlowUnavailable
	}
	c.busy = chat.OpExport
	name := c.draft.Name()
	c.mu.Unlock()

	flowCtx, cancel := c.flowContext(ctx)
	out, err := c.deps.Mail.EmailConversation(flowCtx, flow.EmailInput{
		RecipientEmail:         strings.TrimSpace(recipient),
		ConversationTranscript: transcript,
		ClonedName:             name,
	})
	cancel()

	c.mu.Lock()
	c.busy = chat.OpNone
	c.mu.Unlock()

	if err != nil {
		log.Printf("[session] %s export failed: %v", c.id, err)
		return flow.EmailOutput{}, classifyExternal(op, err)
	}
	return out, nil
}

// Transcript renders the exportable part of the conversation.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transcriptLocked()
}

// Snapshot returns a copy of the session state for rendering.
func (c *Controller) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := chat.Snapshot{
		ID:                c.id,
		Stage:             c.draft.Stage(),
		State:             c.state,
		PersonaName:       c.draft.Name(),
		Messages:          append([]chat.Message(nil), c.messages...),
		DailyMessageCount: c.count,
		QuotaLimit:        c.opts.QuotaLimit,
		ChatsRemaining:    max(c.opts.QuotaLimit-c.count, 0),
		LastAudio:         c.audio,
		Busy:              c.busy,
		UpgradeRequired:   c.state == chat.StateQuotaExhausted,
	}
	if p, ok := c.draft.Persona(); ok {
		snap.Persona = &p
	}
	if snap.Messages == nil {
		snap.Messages = []chat.Message{}
	}
	return snap
}

func (c *Controller) appendLocked(sender chat.Sender, text string, greeting bool) chat.Message {
	msg := chat.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		IsFirst:   greeting,
		CreatedAt: c.now().UTC(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Controller) lastReplyLocked() (chat.Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if msg := c.messages[i]; msg.Sender == chat.SenderAI && !msg.IsFirst {
			return msg, true
		}
	}
	return chat.Message{}, false
}

func (c *Controller) transcriptLocked() string {
	name := c.draft.Name()

	lines := make([]string, 0, len(c.messages))
	for _, msg := range c.messages {
		if msg.IsFirst {
			continue
		}
		label := name
		if msg.Sender == chat.SenderUser {
			label = userLabel
		}
		lines = append(lines, label+": "+msg.Text)
	}
	return strings.Join(lines, "\n\n")
}

// flowContext 外部调用不随请求取消，只受可选超时约束。
func (c *Controller) flowContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.opts.FlowTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.FlowTimeout)
	}
	return ctx, func() {}
}

// 未分类的流程错误统一视作外部服务错误
func classifyExternal(op string, err error) error {
	if apperror.KindOf(err) != "" {
		return err
	}
	return apperror.External(op, err)
}
