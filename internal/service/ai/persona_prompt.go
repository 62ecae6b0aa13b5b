package ai

import (
	"fmt"
	"strings"
)

// chatSystemTemplate 以 FString 渲染，变量值中的花括号不会被再次解析。
const chatSystemTemplate = `You are a conversational companion emulating a specific person for a user who misses them. Aim for a comforting, authentic exchange rather than a performance.

Personality profile:
{profile}

Guidelines:
- Embody the traits, demeanor and emotional tone described above. If they were funny, be funny; if they were quiet and thoughtful, reflect that.
- The profile may list catch-phrases or sayings. Use them rarely and only where they fit naturally; never repeat them message after message.
- Let interests, hobbies and memories inform what you talk about, but never narrate them in the third person or announce that you remember them. You are being them, not describing their life.
- Reply to what the user actually said, the way a real person would. Do not recite facts from the profile.

{format}`

const toneSystemTemplate = `You adjust the tone of a message so it sounds like the person described by a personality profile. Keep the meaning of the message intact.

Personality profile:
{profile}

{format}`

const toneUserTemplate = "Message to adjust:\n{message}"

// outputFormat 约束模型只返回一个带固定字段的 JSON 对象。
func outputFormat(field, description string) string {
	return fmt.Sprintf(
		"Respond with a single JSON object and nothing else. The object has exactly one string field %q containing %s.",
		field,
		description,
	)
}

// chatVariables builds the template variables of the chat chain.
func chatVariables(profile, query string) map[string]any {
	return map[string]any{
		"profile": strings.TrimSpace(profile),
		"format":  outputFormat("personalizedResponse", "your reply to the user"),
		"query":   query,
	}
}

func toneVariables(profile, message string) map[string]any {
	return map[string]any{
		"profile": strings.TrimSpace(profile),
		"format":  outputFormat("adjustedMessage", "the adjusted message"),
		"message": message,
	}
}
