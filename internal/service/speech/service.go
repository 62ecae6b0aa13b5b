package speech

import (
	"context"
	"encoding/base64"
	"log"
	"strings"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
	"github.com/zhouzirui/postscript/backend/internal/model/speech"
)

// Synthesizer 抽象具体的 TTS 引擎，便于测试替换。
type Synthesizer interface {
	Synthesize(ctx context.Context, req speech.TTSRequest) (*speech.TTSResponse, error)
}

// Service 将引擎输出封装为可直接播放的 data URI。
type Service struct {
	engine Synthesizer
	voice  string
}

// NewService 基于火山引擎配置创建语音服务。
func NewService(cfg speech.SpeechConfig) *Service {
	return NewServiceWithEngine(NewVolcengineTTSClient(cfg), cfg.TTSVoice)
}

// NewServiceWithEngine allows injecting an alternative synthesizer.
func NewServiceWithEngine(engine Synthesizer, voice string) *Service {
	return &Service{engine: engine, voice: voice}
}

// TextToSpeech 合成语音，返回 data:audio/<format>;base64,<payload>。
func (s *Service) TextToSpeech(ctx context.Context, in flow.SpeechInput) (flow.SpeechOutput, error) {
	const op = "speech.text_to_speech"

	if err := in.Validate(); err != nil {
		return flow.SpeechOutput{}, err
	}

	resp, err := s.engine.Synthesize(ctx, speech.TTSRequest{
		Text:  strings.TrimSpace(in.TextToSpeak),
		Voice: s.voice,
	})
	if err != nil {
		log.Printf("[tts] synthesis failed: %v", err)
		return flow.SpeechOutput{}, apperror.External(op, err)
	}
	if resp == nil || len(resp.AudioData) == 0 {
		return flow.SpeechOutput{}, apperror.External(op, ErrEmptyAudio)
	}

	out := flow.SpeechOutput{AudioDataURI: audioDataURI(resp.Format, resp.AudioData)}
	if err := out.Validate(); err != nil {
		return flow.SpeechOutput{}, err
	}

	log.Printf("[tts] synthesized chars=%d bytes=%d format=%s req=%s", len(in.TextToSpeak), len(resp.AudioData), resp.Format, resp.RequestID)
	return out, nil
}

func audioDataURI(format string, data []byte) string {
	mime := format
	switch format {
	case "", "mp3":
		mime = "mpeg"
	case "ogg_opus":
		mime = "ogg"
	}
	return "data:audio/" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
