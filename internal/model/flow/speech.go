package flow

import (
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
)

// SpeechInput 文本转语音的输入。
type SpeechInput struct {
	TextToSpeak string `json:"textToSpeak"`
}

func (in SpeechInput) Validate() error {
	if strings.TrimSpace(in.TextToSpeak) == "" {
		return apperror.Validation("flow.speech", "textToSpeak is required")
	}
	return nil
}

// SpeechOutput carries a self-contained playable audio resource.
type SpeechOutput struct {
	AudioDataURI string `json:"audioDataUri"`
}

func (out SpeechOutput) Validate() error {
	if !strings.HasPrefix(out.AudioDataURI, "data:audio/") || !strings.Contains(out.AudioDataURI, ";base64,") {
		return apperror.Externalf("flow.speech", "engine returned a malformed audio data URI")
	}
	if strings.HasSuffix(out.AudioDataURI, ";base64,") {
		return apperror.Externalf("flow.speech", "engine returned empty audio")
	}
	return nil
}

// VoiceCloneInput 声音克隆的输入，当前未接入会话流程。
type VoiceCloneInput struct {
	AudioDataURI string `json:"audioDataUri,omitempty"`
	Name         string `json:"name"`
}

func (in VoiceCloneInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.Validation("flow.voice_clone", "name is required")
	}
	if in.AudioDataURI != "" && !strings.HasPrefix(in.AudioDataURI, "data:") {
		return apperror.Validation("flow.voice_clone", "audioDataUri must be a data URI")
	}
	return nil
}

// VoiceCloneOutput 声音克隆的输出。
type VoiceCloneOutput struct {
	VoiceCloneID string `json:"voiceCloneId,omitempty"`
	Message      string `json:"message"`
}
