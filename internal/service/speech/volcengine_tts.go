package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/postscript/backend/internal/model/speech"
)

// DefaultTTSEndpoint 火山引擎单向流式 TTS 地址
const DefaultTTSEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

var (
	ErrEmptyText     = errors.New("tts text is empty")
	ErrEmptyAudio    = errors.New("tts audio is empty")
	ErrNoCredentials = errors.New("speech credentials are not configured")
)

// VolcengineTTSClient 火山引擎TTS WebSocket客户端
type VolcengineTTSClient struct {
	config speech.SpeechConfig
	dialer *websocket.Dialer
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

type ttsRequestBody struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

// NewVolcengineTTSClient 创建火山引擎TTS客户端
func NewVolcengineTTSClient(cfg speech.SpeechConfig) *VolcengineTTSClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultTTSEndpoint
	}
	handshake := cfg.Timeout
	if handshake <= 0 {
		handshake = 30 * time.Second
	}
	return &VolcengineTTSClient{
		config: cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: handshake},
	}
}

// Synthesize 合成整段文本，依次尝试候选音色与资源 ID。
func (c *VolcengineTTSClient) Synthesize(ctx context.Context, req speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if c.config.AppID == "" || c.config.AccessToken == "" {
		return nil, ErrNoCredentials
	}

	encoding := normalizeFormat(req.Format, c.config.TTSFormat)
	speakers := resolveTTSSpeakerCandidates(req.Voice, c.config.TTSVoice)

	var lastMismatch error
	for speakerIdx, speaker := range speakers {
		for resourceIdx, resourceID := range resolveTTSResourceCandidates(speaker) {
			resp, err := c.synthesizeWithResource(ctx, req, speaker, encoding, resourceID)
			if err == nil {
				if resourceIdx > 0 || speakerIdx > 0 {
					log.Printf("[tts] fallback succeeded voice=%s resource=%s", speaker, resourceID)
				}
				return resp, nil
			}
			if !isResourceMismatchError(err) {
				return nil, err
			}
			log.Printf("[tts] voice %s resource %s mismatch: %v", speaker, resourceID, err)
			lastMismatch = err
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("tts synthesis failed: no usable voice among %v", speakers)
}

func (c *VolcengineTTSClient) synthesizeWithResource(ctx context.Context, req speech.TTSRequest, speaker, encoding, resourceID string) (*speech.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", c.config.AppID)
	header.Set("X-Api-Access-Key", c.config.AccessToken)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.config.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tts websocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[tts] connected logid=%s", logid)
		}
	}

	// ReadMessage 不感知 ctx，靠 deadline 打断阻塞读
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	body, err := json.Marshal(c.buildRequestBody(req, speaker, encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tts request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeMessage(NewFullClientRequest(body))); err != nil {
		return nil, fmt.Errorf("failed to send tts request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read tts response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode tts message: %w", err)
		}

		payload, err := msg.Body()
		if err != nil {
			return nil, err
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			return nil, fmt.Errorf("tts error %d: %s", msg.ErrorCode, string(payload))

		case AudioOnlyServerResponse:
			audio.Write(payload)
			if !msg.IsLastPacket() {
				continue
			}

		case FullServerResponse:
			var serverResp ttsServerMessage
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &serverResp); err != nil {
					log.Printf("[tts] ignore undecodable server payload: %v", err)
				}
			}
			// 3000 为成功码
			if serverResp.Code != 0 && serverResp.Code != 3000 {
				return nil, fmt.Errorf("tts api error %d: %s", serverResp.Code, serverResp.Message)
			}
			if serverResp.ReqID != "" {
				reqID = serverResp.ReqID
			}
			if serverResp.Addition.Duration != "" {
				if parsed, err := strconv.ParseInt(serverResp.Addition.Duration, 10, 64); err == nil {
					duration = parsed
				}
			}
			if serverResp.Data != "" {
				chunk, err := base64.StdEncoding.DecodeString(serverResp.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
				}
				audio.Write(chunk)
			}

			finished := msg.Header.MessageFlags&WithEvent == WithEvent && msg.EventType == EventTypeSessionFinished
			if !finished && !msg.IsLastPacket() && serverResp.Sequence >= 0 {
				continue
			}

		default:
			log.Printf("[tts] unexpected message type: %d", msg.Header.MessageType)
			continue
		}

		if audio.Len() == 0 {
			return nil, ErrEmptyAudio
		}
		if reqID == "" {
			reqID = connectID
		}
		return &speech.TTSResponse{
			AudioData: audio.Bytes(),
			Duration:  duration,
			Format:    encoding,
			RequestID: reqID,
			CreatedAt: time.Now(),
		}, nil
	}
}

func (c *VolcengineTTSClient) buildRequestBody(req speech.TTSRequest, speaker, encoding string) ttsRequestBody {
	var body ttsRequestBody
	body.User.UID = uuid.NewString()
	body.ReqParams.Speaker = speaker
	body.ReqParams.Text = req.Text
	body.ReqParams.AudioParams.Format = encoding
	body.ReqParams.AudioParams.SampleRate = 24000

	speed := req.Speed
	if speed <= 0 {
		speed = c.config.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		body.ReqParams.AudioParams.SpeedRatio = speed
	}

	volume := req.Volume
	if volume <= 0 {
		volume = c.config.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		body.ReqParams.AudioParams.VolumeRatio = volume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = strings.TrimSpace(c.config.TTSLanguage)
	}
	body.ReqParams.Language = language
	return body
}

// wav 在流式接口下不可用，退回 mp3
func normalizeFormat(requested, fallback string) string {
	format := strings.ToLower(strings.TrimSpace(requested))
	if format == "" {
		format = strings.ToLower(strings.TrimSpace(fallback))
	}
	if format == "" || format == "wav" {
		return "mp3"
	}
	return format
}

func resolveTTSResourceCandidates(voice string) []string {
	const (
		defaultResource = "volc.service_type.10029"
		megaResource    = "volc.megatts.default"
		seedResource    = "seed-tts-2.0"
	)

	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{megaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "jupiter", "venus", "uranus", "mars", "moon"} {
		if strings.Contains(normalized, hint) {
			return []string{seedResource, defaultResource}
		}
	}
	return []string{defaultResource, seedResource}
}

var voiceAliases = map[string]string{
	"en_default": "en_female_amy_jupiter_bigtts",
	"en_female":  "en_female_amy_jupiter_bigtts",
	"en_male":    "en_male_adam_mars_bigtts",
}

// NormalizeVoiceAlias maps friendly voice names onto speaker ids.
func NormalizeVoiceAlias(voice string) string {
	voice = strings.TrimSpace(voice)
	if mapped, ok := voiceAliases[strings.ToLower(voice)]; ok {
		return mapped
	}
	return voice
}

func resolveTTSSpeakerCandidates(requested, fallback string) []string {
	var candidates []string
	add := func(s string) {
		s = NormalizeVoiceAlias(s)
		if s == "" {
			return
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	add(fallback)
	return candidates
}

func isResourceMismatchError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
