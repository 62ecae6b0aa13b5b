package mail

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

type recordingTransport struct {
	envelopes []Envelope
	out       flow.EmailOutput
	err       error
}

func (r *recordingTransport) Deliver(_ context.Context, env Envelope) (flow.EmailOutput, error) {
	r.envelopes = append(r.envelopes, env)
	return r.out, r.err
}

func TestEmailConversationSimulated(t *testing.T) {
	svc := NewServiceFromConfig(config.MailConfig{Transport: config.MailTransportSimulated})

	out, err := svc.EmailConversation(context.Background(), flow.EmailInput{
		RecipientEmail:         "me@example.com",
		ConversationTranscript: "You: hi\n\nRose: hello dear",
		ClonedName:             "Rose",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "Conversation for Rose would be sent to me@example.com. This email address (me@example.com) has been logged for our records.", out.Message)
}

func TestEmailConversationDefaultsPersonaName(t *testing.T) {
	transport := &recordingTransport{out: flow.EmailOutput{Success: true, Message: "ok"}}
	svc := NewService(transport)

	_, err := svc.EmailConversation(context.Background(), flow.EmailInput{
		RecipientEmail:         " me@example.com ",
		ConversationTranscript: "You: hi",
	})
	require.NoError(t, err)

	require.Len(t, transport.envelopes, 1)
	env := transport.envelopes[0]
	assert.Equal(t, "me@example.com", env.To)
	assert.Equal(t, "AI", env.PersonaName)
	assert.Equal(t, "Your conversation with AI", env.Subject)
}

func TestEmailConversationErrors(t *testing.T) {
	transport := &recordingTransport{}
	svc := NewService(transport)

	_, err := svc.EmailConversation(context.Background(), flow.EmailInput{RecipientEmail: "nope", ConversationTranscript: "You: hi"})
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, transport.envelopes)

	transport.err = errors.New("transport exploded")
	_, err = svc.EmailConversation(context.Background(), flow.EmailInput{RecipientEmail: "a@b.com", ConversationTranscript: "You: hi"})
	assert.True(t, apperror.IsExternal(err))

	// 投递方没有给出结果消息也属于外部错误
	transport.err = nil
	transport.out = flow.EmailOutput{Success: true}
	_, err = svc.EmailConversation(context.Background(), flow.EmailInput{RecipientEmail: "a@b.com", ConversationTranscript: "You: hi"})
	assert.True(t, apperror.IsExternal(err))
}

func TestFailedDeliveryIsNotAnError(t *testing.T) {
	transport := &recordingTransport{out: flow.EmailOutput{Success: false, Message: "Failed to send email. Error: boom"}}
	svc := NewService(transport)

	out, err := svc.EmailConversation(context.Background(), flow.EmailInput{RecipientEmail: "a@b.com", ConversationTranscript: "You: hi"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Failed to send email. Error: boom", out.Message)
}

// fakeSMTPServer 只实现发信所需的最小命令集
func fakeSMTPServer(t *testing.T) (host string, port int, received <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				data, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				ch <- string(data)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, ch
}

func TestSMTPTransportDelivers(t *testing.T) {
	host, port, received := fakeSMTPServer(t)
	transport := NewSMTPTransport(config.MailConfig{
		Transport: config.MailTransportSMTP,
		SMTPHost:  host,
		SMTPPort:  port,
		From:      "noreply@example.com",
	})

	out, err := transport.Deliver(context.Background(), Envelope{
		To:          "me@example.com",
		Subject:     "Your conversation with Rose",
		PersonaName: "Rose",
		Transcript:  "You: hi\n\nRose: hello dear",
	})
	require.NoError(t, err)
	assert.True(t, out.Success, out.Message)

	select {
	case raw := <-received:
		assert.Contains(t, raw, "Subject: Your conversation with Rose")
		assert.Contains(t, raw, "To: me@example.com")
		assert.Contains(t, raw, "multipart/alternative")
		assert.Contains(t, raw, "Rose: hello dear")
	case <-time.After(2 * time.Second):
		t.Fatal("smtp server received nothing")
	}
}

func TestSMTPTransportReportsFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	transport := NewSMTPTransport(config.MailConfig{SMTPHost: "127.0.0.1", SMTPPort: port, From: "noreply@example.com"})
	out, err := transport.Deliver(context.Background(), Envelope{To: "me@example.com", Subject: "s", PersonaName: "AI", Transcript: "You: hi"})
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.True(t, strings.HasPrefix(out.Message, "Failed to send email. Error: "), out.Message)
}

func TestComposeMessageHeaders(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := composeMessage("noreply@example.com", Envelope{
		To:         "me@example.com",
		Subject:    "Your conversation with Zoë",
		Transcript: "You: hi",
	}, now)
	require.NoError(t, err)

	tp := textproto.NewReader(bufio.NewReader(strings.NewReader(string(raw))))
	header, err := tp.ReadMIMEHeader()
	require.NoError(t, err)

	assert.Equal(t, "noreply@example.com", header.Get("From"))
	assert.Equal(t, "1.0", header.Get("Mime-Version"))
	assert.Equal(t, now.Format(time.RFC1123Z), header.Get("Date"))
	assert.True(t, strings.HasPrefix(header.Get("Subject"), "=?utf-8?q?"), header.Get("Subject"))
}

func TestRenderTranscriptHTML(t *testing.T) {
	html, err := renderTranscriptHTML("Your conversation with Rose", "You: hi <script>alert(1)</script>\n\nRose: hello dear")
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Your conversation with Rose</h2>")
	assert.Contains(t, html, "<strong>You:</strong>")
	assert.Contains(t, html, "<strong>Rose:</strong> hello dear")
	assert.NotContains(t, html, "<script>")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "AI", displayName("  "))
	assert.Equal(t, "Rose", displayName(" Rose "))
}
