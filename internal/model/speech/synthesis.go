package speech

import "time"

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice"`    // 声音类型
	Speed    float32 `json:"speed"`    // 语速倍率 0.5-2.0
	Volume   float32 `json:"volume"`   // 音量 0.0-1.0
	Format   string  `json:"format"`   // mp3, ogg_opus, pcm
	Language string  `json:"language"` // en-US, zh-CN, etc.
}

// TTSResponse 语音合成响应
type TTSResponse struct {
	AudioData []byte    `json:"-"`
	Duration  int64     `json:"duration"` // milliseconds
	Format    string    `json:"format"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
