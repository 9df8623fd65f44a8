package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultServer = "https://ntfy.sh"

type Notifier struct {
	client *http.Client
	server string
	topic  string
}

// New returns a notifier for the ntfy topic. With an empty topic the notifier
// is disabled and Send fails.
func New(topic string) *Notifier {
	if topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return &Notifier{}
	}

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")

	return &Notifier{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		server: defaultServer,
		topic:  topic,
	}
}

func (n *Notifier) Enabled() bool { return n.topic != "" }

// Send sends a notification to ntfy
func (n *Notifier) Send(title, message string) error {
	if !n.Enabled() {
		return fmt.Errorf("notifications not initialized")
	}

	payload := map[string]interface{}{
		"topic":   n.topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// JSON publishing goes to the server root; the topic travels in the body
	req, err := http.NewRequest("POST", strings.TrimSuffix(n.server, "/")+"/", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}
