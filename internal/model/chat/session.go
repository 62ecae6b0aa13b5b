package chat

import "github.com/zhouzirui/postscript/backend/internal/model/persona"

// State 会话状态机。
type State string

const (
	StateAwaitingPersona State = "awaiting_persona"
	StateActive          State = "active"
	StateQuotaExhausted  State = "quota_exhausted"
)

// Operation names the asynchronous action currently holding the session.
type Operation string

const (
	OpNone   Operation = ""
	OpChat   Operation = "chat"
	OpSpeech Operation = "speech"
	OpExport Operation = "export"
)

// Snapshot is a read-only copy of a conversation session for rendering.
type Snapshot struct {
	ID                string           `json:"id"`
	Stage             persona.Stage    `json:"stage"`
	State             State            `json:"state"`
	PersonaName       string           `json:"personaName,omitempty"`
	Persona           *persona.Persona `json:"persona,omitempty"`
	Messages          []Message        `json:"messages"`
	DailyMessageCount int              `json:"dailyMessageCount"`
	QuotaLimit        int              `json:"quotaLimit"`
	ChatsRemaining    int              `json:"chatsRemaining"`
	LastAudio         string           `json:"lastGeneratedAudio,omitempty"`
	Busy              Operation        `json:"busy,omitempty"`
	UpgradeRequired   bool             `json:"upgradeRequired"`
}
