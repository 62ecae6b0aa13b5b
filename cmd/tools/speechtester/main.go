package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
	speechmodel "github.com/zhouzirui/postscript/backend/internal/model/speech"
	"github.com/zhouzirui/postscript/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
	}

	text := flag.String("text", "", "待合成文本")
	outputPath := flag.String("out", "", "输出音频文件路径 (默认根据格式自动生成)")
	format := flag.String("format", "", "输出格式 mp3 / ogg_opus / pcm，默认使用配置")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	voice := flag.String("voice", "", "声音 ID 或别名 (en_female / en_male)，默认使用配置中的 TTSVoice")
	dataURI := flag.Bool("datauri", false, "经由会话使用的 TextToSpeech 流程，只打印 data URI 摘要")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("需要通过 -text 提供待合成文本")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ttsCfg := cfg.Speech.TTS()
	if *voice != "" {
		ttsCfg.TTSVoice = *voice
	}
	if *format != "" {
		ttsCfg.TTSFormat = *format
	}
	if *language != "" {
		ttsCfg.TTSLanguage = *language
	}

	if *dataURI {
		runFlow(ctx, ttsCfg, *text)
		return
	}
	runSynthesis(ctx, ttsCfg, *text, *outputPath)
}

func runSynthesis(ctx context.Context, cfg speechmodel.SpeechConfig, text, outputPath string) {
	client := speech.NewVolcengineTTSClient(cfg)

	req := speechmodel.TTSRequest{
		Text:     text,
		Voice:    cfg.TTSVoice,
		Format:   cfg.TTSFormat,
		Language: cfg.TTSLanguage,
	}

	log.Printf("开始进行 TTS 测试: voice=%s format=%s language=%s", req.Voice, req.Format, req.Language)

	resp, err := client.Synthesize(ctx, req)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), fileExtension(resp.Format))
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: 输出文件 %s, 大小=%dB, 时长=%dms, request=%s", outputPath, len(resp.AudioData), resp.Duration, resp.RequestID)
}

func runFlow(ctx context.Context, cfg speechmodel.SpeechConfig, text string) {
	svc := speech.NewService(cfg)

	out, err := svc.TextToSpeech(ctx, flow.SpeechInput{TextToSpeak: text})
	if err != nil {
		log.Fatalf("TextToSpeech 调用失败: %v", err)
	}

	head, _, _ := strings.Cut(out.AudioDataURI, ",")
	log.Printf("TextToSpeech 成功: %s, 长度=%d", head, len(out.AudioDataURI))
}

func fileExtension(format string) string {
	switch format {
	case "ogg_opus":
		return "ogg"
	case "":
		return "mp3"
	default:
		return format
	}
}
