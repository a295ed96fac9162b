package alerts

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// Guild dispatches run over SMTP with implicit TLS, or over Plunk's HTTP
// API when MAIL_PROVIDER=plunk (or a PLUNK_API_KEY is present).

type smtpConfig struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func (c smtpConfig) addr() string { return c.host + ":" + c.port }

func (c smtpConfig) validate() error {
	if c.host == "" || c.port == "" || c.username == "" || c.password == "" || c.from == "" {
		return fmt.Errorf("smtp not configured: set SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM (or set MAIL_PROVIDER=plunk)")
	}
	return nil
}

func smtpFromEnv() smtpConfig {
	return smtpConfig{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func usePlunk() bool {
	switch os.Getenv("MAIL_PROVIDER") {
	case "plunk":
		return true
	case "":
		return os.Getenv("PLUNK_API_KEY") != ""
	}
	return false
}

// SendEmail delivers a single message to one recipient. The body may be
// plain text or HTML; the content type is sniffed from the body.
func SendEmail(to, subject, body string) error {
	if usePlunk() {
		return sendViaPlunk(to, subject, body)
	}

	cfg := smtpFromEnv()
	if err := cfg.validate(); err != nil {
		return err
	}

	conn, err := tls.Dial("tcp", cfg.addr(), &tls.Config{ServerName: cfg.host})
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, cfg.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", cfg.username, cfg.password, cfg.host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(cfg.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write(buildMessage(cfg.from, to, subject, body)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if rt := os.Getenv("MAIL_REPLY_TO"); rt != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", rt)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"utf-8\"\r\n", contentTypeFor(body))
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func contentTypeFor(body string) string {
	lb := strings.ToLower(body)
	if strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html") {
		return "text/html"
	}
	return "text/plain"
}
