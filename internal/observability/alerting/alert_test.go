package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "BinkAgent-Bridge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (r *recordingNotifier) Channel() Channel { return r.channel }

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutDeliversToEveryChannel(t *testing.T) {
	a := &recordingNotifier{channel: ChannelLog}
	b := &recordingNotifier{channel: ChannelWebhook, err: errors.New("down")}
	d := NewFanout(a, nil, b)

	err := d.Notify(context.Background(), Event{Action: "EXECUTE_TRANSACTION"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel webhook")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, []Channel{ChannelLog, ChannelWebhook}, d.Channels())
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cause := xerrors.New(xerrors.CodeUpstreamExecution, "agent failed", xerrors.WithMetadata("step", "2"))
	evt := FromError("GET_WALLET_INFO", "corr-9", cause)
	n := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	require.NoError(t, n.Notify(context.Background(), evt))

	assert.Equal(t, xerrors.CodeUpstreamExecution, got.Code)
	assert.Equal(t, "corr-9", got.CorrelationID)
	assert.Equal(t, "2", got.Metadata["step"])
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL}
	assert.Error(t, n.Notify(context.Background(), Event{}))
	assert.NoError(t, (&WebhookNotifier{}).Notify(context.Background(), Event{}))
}
