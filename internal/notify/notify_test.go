package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent map[string][]string // url -> messages
	fail bool
}

func (r *recordingSender) Send(url, message string) error {
	if r.fail {
		return errors.New("service unreachable")
	}
	if r.sent == nil {
		r.sent = map[string][]string{}
	}
	r.sent[url] = append(r.sent[url], message)
	return nil
}

func TestNew_NoURLsReturnsNil(t *testing.T) {
	require.Nil(t, New(nil, nil))
	require.Nil(t, New([]string{}, &recordingSender{}))
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.UploadFailed("prod", "app.zip", "boom") // must not panic
}

func TestUploadFailed_FansOutToAllURLs(t *testing.T) {
	s := &recordingSender{}
	n := New([]string{"telegram://a", "discord://b"}, s)

	n.UploadFailed("prod", "app.zip", "connection refused")

	require.Len(t, s.sent["telegram://a"], 1)
	require.Len(t, s.sent["discord://b"], 1)
	msg := s.sent["telegram://a"][0]
	require.Contains(t, msg, "app.zip")
	require.Contains(t, msg, "prod")
	require.Contains(t, msg, "connection refused")
}

func TestUploadFailed_DeliveryErrorsSwallowed(t *testing.T) {
	n := New([]string{"telegram://a"}, &recordingSender{fail: true})
	n.UploadFailed("prod", "app.zip", "boom") // logged, not returned
}
