package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/zhouzirui/postscript/backend/internal/config"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

// SMTPTransport 通过 SMTP 真实投递邮件。
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
	from     string
	dialer   net.Dialer
	now      func() time.Time
}

func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		dialer:   net.Dialer{Timeout: 30 * time.Second},
		now:      time.Now,
	}
}

// Deliver 发送失败时返回 Success=false 并附带原因，不返回 error。
func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) (flow.EmailOutput, error) {
	if err := t.send(ctx, env); err != nil {
		log.Printf("[mail] smtp delivery to %s failed: %v", env.To, err)
		return flow.EmailOutput{
			Success: false,
			Message: fmt.Sprintf("Failed to send email. Error: %v", err),
		}, nil
	}

	log.Printf("[mail] smtp delivered to=%s", env.To)
	return flow.EmailOutput{
		Success: true,
		Message: fmt.Sprintf("Conversation with %s has been sent to %s.", env.PersonaName, env.To),
	}, nil
}

func (t *SMTPTransport) send(ctx context.Context, env Envelope) error {
	msg, err := composeMessage(t.from, env, t.now())
	if err != nil {
		return err
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(t.host, strconv.Itoa(t.port)))
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if t.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", t.username, t.password, t.host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(t.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(env.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish body: %w", err)
	}
	return client.Quit()
}

// composeMessage 构造 multipart/alternative 邮件：纯文本记录 + HTML 版本。
func composeMessage(from string, env Envelope, now time.Time) ([]byte, error) {
	htmlBody, err := renderTranscriptHTML(env.Subject, env.Transcript)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	parts := multipart.NewWriter(&body)

	if err := writeQuotedPart(parts, "text/plain; charset=UTF-8", env.Transcript); err != nil {
		return nil, err
	}
	if err := writeQuotedPart(parts, "text/html; charset=UTF-8", htmlBody); err != nil {
		return nil, err
	}
	if err := parts.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", env.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", env.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", parts.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writeQuotedPart(parts *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := parts.CreatePart(header)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(content)); err != nil {
		return err
	}
	return qp.Close()
}
