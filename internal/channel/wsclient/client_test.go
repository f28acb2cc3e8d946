package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/piyushdolas8/skillswap/internal/channel"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://localhost:3005":      "ws://localhost:3005/v1/ws?topic=match-7",
		"https://relay.example.com/": "wss://relay.example.com/v1/ws?topic=match-7",
		"ws://10.0.0.2:9000":         "ws://10.0.0.2:9000/v1/ws?topic=match-7",
	}
	for in, want := range cases {
		got, err := Endpoint(in, "match-7")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestConflictReportsRelayReason(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		full    bool
		message string
	}{
		{name: "topic full", body: `{"error":"topic full"}`, full: true},
		{name: "duplicate", body: `{"error":"participant already joined: alice"}`, message: "participant already joined: alice"},
		{name: "no body", message: "relay answered 409"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			failed := make(chan error, 1)
			c := New(ts.URL, "tok", "match-1")
			err := c.Subscribe(context.Background(), channel.Handler{
				OnStatus: func(s channel.Status, err error) {
					if s == channel.StatusFailed {
						failed <- err
					}
				},
			})
			require.NoError(t, err)

			select {
			case err := <-failed:
				if tc.full {
					require.ErrorIs(t, err, channel.ErrTopicFull)
					return
				}
				require.NotErrorIs(t, err, channel.ErrTopicFull)
				require.ErrorContains(t, err, tc.message)
			case <-time.After(5 * time.Second):
				t.Fatal("no failure reported")
			}
		})
	}
}
