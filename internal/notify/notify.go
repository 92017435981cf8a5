// Package notify pushes upload failure alerts to operator channels
// (Telegram, Discord, Slack, ...) via Shoutrrr URLs.
package notify

import (
	"fmt"
	"log"

	"github.com/containrrr/shoutrrr"
)

// Sender abstracts message dispatch so the notifier can be tested without
// hitting real services.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Notifier fans one message out to every configured URL. A nil Notifier is
// valid and does nothing, so callers never need to branch.
type Notifier struct {
	urls   []string
	sender Sender
}

// New builds a notifier for the given Shoutrrr URLs. Returns nil when no
// URLs are configured.
func New(urls []string, sender Sender) *Notifier {
	if len(urls) == 0 {
		return nil
	}
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Notifier{urls: urls, sender: sender}
}

// UploadFailed reports a failed upload. Delivery errors are logged, never
// propagated; a broken notification channel must not affect the queue.
func (n *Notifier) UploadFailed(serverName, filename, errMsg string) {
	if n == nil {
		return
	}
	msg := fmt.Sprintf("Upload failed: %s -> %s: %s", filename, serverName, errMsg)
	for _, url := range n.urls {
		if err := n.sender.Send(url, msg); err != nil {
			log.Printf("[notify] delivery failed: %v", err)
		}
	}
}
