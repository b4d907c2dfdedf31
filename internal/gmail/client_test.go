package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// fakeGmail serves the handful of Gmail API endpoints the client calls.
type fakeGmail struct {
	mu       sync.Mutex
	messages []*gmail.Message
	listErr  bool
	sent     []string
	query    string
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/gmail/v1/users/me/messages"
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == prefix:
		if f.listErr {
			http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
			return
		}
		f.query = r.URL.RawQuery
		list := &gmail.ListMessagesResponse{}
		for _, m := range f.messages {
			list.Messages = append(list.Messages, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId})
		}
		_ = json.NewEncoder(w).Encode(list)

	case r.Method == http.MethodGet && strings.HasPrefix(path, prefix+"/"):
		id := strings.TrimPrefix(path, prefix+"/")
		for _, m := range f.messages {
			if m.Id == id {
				_ = json.NewEncoder(w).Encode(m)
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/messages/send"):
		var msg gmail.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw, err := base64.URLEncoding.DecodeString(msg.Raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.sent = append(f.sent, string(raw))
		_ = json.NewEncoder(w).Encode(&gmail.Message{Id: "sent-1"})

	default:
		http.NotFound(w, r)
	}
}

func message(id, from, subject, snippet string) *gmail.Message {
	return &gmail.Message{
		Id:       id,
		ThreadId: "t-" + id,
		Snippet:  snippet,
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: from},
			{Name: "Subject", Value: subject},
		}},
	}
}

func newTestClient(t *testing.T, fake *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), nil, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestListInboxSummaries(t *testing.T) {
	fake := &fakeGmail{messages: []*gmail.Message{
		message("m1", "Alice <alice@example.com>", "Budget", "Numbers attached"),
		message("m2", "Bob <bob@example.com>", "Lunch?", "Noon works"),
		message("m3", "Carol <carol@example.com>", "Offsite", "Agenda inside"),
	}}
	client := newTestClient(t, fake)

	summaries, err := client.ListInboxSummaries(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Order of the list response is preserved.
	assert.Equal(t, "m1", summaries[0].ID)
	assert.Equal(t, "Alice <alice@example.com>", summaries[0].From)
	assert.Equal(t, "Budget", summaries[0].Subject)
	assert.Equal(t, "Numbers attached", summaries[0].Snippet)
	assert.Equal(t, "m3", summaries[2].ID)
	assert.Equal(t, "t-m3", summaries[2].ThreadID)

	assert.Contains(t, fake.query, "labelIds=INBOX")
	assert.Contains(t, fake.query, "maxResults=3")
}

func TestListInboxSummaries_Empty(t *testing.T) {
	client := newTestClient(t, &fakeGmail{})

	summaries, err := client.ListInboxSummaries(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListInboxSummaries_Error(t *testing.T) {
	client := newTestClient(t, &fakeGmail{listErr: true})

	_, err := client.ListInboxSummaries(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list inbox messages")
}

func TestSendEmail(t *testing.T) {
	fake := &fakeGmail{}
	client := newTestClient(t, fake)

	id, err := client.SendEmail(context.Background(), &EmailMessage{
		To:      []string{"bob@example.com"},
		Subject: "Status",
		Body:    "All good.",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)

	require.Len(t, fake.sent, 1)
	assert.Contains(t, fake.sent[0], "To: bob@example.com\r\n")
	assert.Contains(t, fake.sent[0], "Subject: Status\r\n")
	assert.True(t, strings.HasSuffix(fake.sent[0], "\r\n\r\nAll good."))
}

func TestSendEmail_Validation(t *testing.T) {
	fake := &fakeGmail{}
	client := newTestClient(t, fake)

	tests := []struct {
		name    string
		msg     *EmailMessage
		wantErr string
	}{
		{name: "no recipient", msg: &EmailMessage{Subject: "s", Body: "b"}, wantErr: "recipient"},
		{name: "no subject", msg: &EmailMessage{To: []string{"a@example.com"}, Body: "b"}, wantErr: "subject"},
		{name: "no body", msg: &EmailMessage{To: []string{"a@example.com"}, Subject: "s"}, wantErr: "body"},
		{
			name:    "subject with injected header",
			msg:     &EmailMessage{To: []string{"a@example.com"}, Subject: "Hi\r\nBcc: attacker@evil.test", Body: "b"},
			wantErr: "line breaks",
		},
		{
			name:    "recipient with injected header",
			msg:     &EmailMessage{To: []string{"a@example.com\r\nBcc: attacker@evil.test"}, Subject: "s", Body: "b"},
			wantErr: "invalid recipient",
		},
		{
			name:    "malformed cc",
			msg:     &EmailMessage{To: []string{"a@example.com"}, Cc: []string{"not an address"}, Subject: "s", Body: "b"},
			wantErr: "invalid recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SendEmail(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Empty(t, fake.sent)
}
