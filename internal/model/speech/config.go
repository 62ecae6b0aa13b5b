package speech

import "time"

// SpeechConfig 语音合成服务配置
type SpeechConfig struct {
	AppID       string        `json:"appId"`       // 火山引擎 APP ID
	AccessToken string        `json:"accessToken"` // 火山引擎 Access Token
	Endpoint    string        `json:"endpoint"`    // 为空时使用官方单向流式地址
	TTSVoice    string        `json:"ttsVoice"`
	TTSSpeed    float32       `json:"ttsSpeed"`
	TTSVolume   float32       `json:"ttsVolume"`
	TTSLanguage string        `json:"ttsLanguage"`
	TTSFormat   string        `json:"ttsFormat"`
	Timeout     time.Duration `json:"timeout"`
}
