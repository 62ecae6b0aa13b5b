package mail

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// renderTranscriptHTML 将 "<发言者>: <内容>" 形式的记录渲染成 HTML，发言者加粗。
// goldmark 默认转义原始 HTML，用户输入不会注入标签。
func renderTranscriptHTML(title, transcript string) (string, error) {
	var md strings.Builder
	md.WriteString("## ")
	md.WriteString(title)
	md.WriteString("\n\n")

	for _, block := range strings.Split(transcript, "\n\n") {
		speaker, text, ok := strings.Cut(block, ": ")
		if ok && speaker != "" && !strings.ContainsAny(speaker, "\n*_`") {
			fmt.Fprintf(&md, "**%s:** %s\n\n", speaker, text)
			continue
		}
		md.WriteString(block)
		md.WriteString("\n\n")
	}

	var out bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &out); err != nil {
		return "", fmt.Errorf("render transcript html: %w", err)
	}
	return out.String(), nil
}
