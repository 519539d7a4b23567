package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// MailClient hands rendered mail to the internal mail gateway.
type MailClient struct {
	baseURL    string
	from       string
	httpClient *http.Client
	log        *zap.Logger
}

func NewMailClient(baseURL, from string, timeout time.Duration, log *zap.Logger) *MailClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		from:    from,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *MailClient) Send(ctx context.Context, mail Mail) error {
	if mail.From == "" {
		mail.From = c.from
	}
	body, err := json.Marshal(mail)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/mail", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail gateway unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, string(b))
	}
	c.log.Debug("mail sent", zap.String("to", mail.To), zap.String("subject", mail.Subject))
	return nil
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Info("mail not sent, no gateway configured",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("text", mail.Text),
	)
	return nil
}
