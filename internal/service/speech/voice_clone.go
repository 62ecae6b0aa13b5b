package speech

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

// VoiceCloner 占位实现，未真正调用声音复刻接口。
type VoiceCloner struct{}

func NewVoiceCloner() *VoiceCloner {
	return &VoiceCloner{}
}

// CloneVoice returns a placeholder clone id for the given persona name.
func (v *VoiceCloner) CloneVoice(_ context.Context, in flow.VoiceCloneInput) (flow.VoiceCloneOutput, error) {
	if err := in.Validate(); err != nil {
		return flow.VoiceCloneOutput{}, err
	}

	name := strings.TrimSpace(in.Name)
	id := fmt.Sprintf("dummy-voice-clone-%s-%s", strings.ReplaceAll(name, " ", "-"), strings.ToLower(shortuuid.New()[:7]))
	log.Printf("[tts] voice clone placeholder id=%s sample=%d", id, len(in.AudioDataURI))

	return flow.VoiceCloneOutput{
		VoiceCloneID: id,
		Message:      fmt.Sprintf("Voice cloning for %s is not currently integrated with the UI. Placeholder ID generated.", name),
	}, nil
}
