package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/haven-community/vigil/classifier"
	"github.com/haven-community/vigil/profile"
)

// SlackNotifier posts alerts to a slack channel via "incoming webhook". A
// rate limiter sheds excess sends (returning an error rather than blocking)
// so a noisy author or a flapping channel cannot stall message intake.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
	Limiter    *rate.Limiter
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Client:     robustHTTPClient(),
		// slack incoming webhooks tolerate roughly one message per second
		Limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// robustHTTPClient wraps retryablehttp defaults in a stdlib http.Client:
// retries on connection errors, 5xx, and 429 (respecting Retry-After).
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

type slackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) Send(ctx context.Context, asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) error {
	if !n.Limiter.Allow() {
		return fmt.Errorf("slack notification dropped: rate limit exceeded")
	}
	return n.sendSlackMsg(ctx, slackBody(asmt, prof, decision))
}

func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(slackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	io.Copy(buf, resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(asmt *classifier.Assessment, prof *profile.Profile, decision profile.Decision) string {
	msg := fmt.Sprintf("⚠️ %s Risk Alert ⚠️\n", strings.ToUpper(string(decision.Severity)))
	msg += fmt.Sprintf("Author: `%s`\n", prof.AuthorID)
	msg += fmt.Sprintf("Score: `%.2f`\n", asmt.RiskScore)
	if len(asmt.Flags) > 0 {
		msg += fmt.Sprintf("Flags: `%s`\n", strings.Join(asmt.Flags, ", "))
	}
	msg += fmt.Sprintf("History: %d messages, %d high-risk", prof.MessageCount, prof.HighRiskCount)
	if prof.TrendingUp {
		msg += ", trending up"
	}
	msg += "\n"
	return msg
}
