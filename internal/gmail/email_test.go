package gmail

import (
	"mime"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func TestHeaderValue(t *testing.T) {
	msg := &gmail.Message{
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "Subject", Value: "Quarterly report"},
			},
		},
	}

	tests := []struct {
		name   string
		msg    *gmail.Message
		header string
		want   string
	}{
		{name: "exact name", msg: msg, header: "From", want: "Alice <alice@example.com>"},
		{name: "case insensitive", msg: msg, header: "subject", want: "Quarterly report"},
		{name: "missing header", msg: msg, header: "Date", want: ""},
		{name: "no payload", msg: &gmail.Message{}, header: "From", want: ""},
		{name: "nil message", msg: nil, header: "From", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderValue(tt.msg, tt.header); got != tt.want {
				t.Errorf("HeaderValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeRFC2047(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantASCII bool // If true, should return as-is; if false, should be encoded
	}{
		{name: "plain ASCII text", input: "Simple Subject", wantASCII: true},
		{name: "German umlauts", input: "Rückerstattung €115 - Überweisung", wantASCII: false},
		{name: "French accents", input: "Réponse à votre demande", wantASCII: false},
		{name: "Japanese characters", input: "こんにちは", wantASCII: false},
		{name: "Emoji", input: "Subject with emoji 🎉", wantASCII: false},
		{name: "empty", input: "", wantASCII: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := encodeRFC2047(tt.input)

			if tt.wantASCII {
				if result != tt.input {
					t.Errorf("encodeRFC2047() = %v, want %v (should not encode ASCII)", result, tt.input)
				}
				return
			}
			if !strings.HasPrefix(result, "=?UTF-8?") || !strings.HasSuffix(result, "?=") {
				t.Errorf("encodeRFC2047() = %v, want an RFC 2047 encoded word", result)
			}

			decoded, err := new(mime.WordDecoder).DecodeHeader(result)
			if err != nil {
				t.Fatalf("failed to decode %q: %v", result, err)
			}
			if decoded != tt.input {
				t.Errorf("roundtrip = %q, want %q", decoded, tt.input)
			}
		})
	}
}

func TestBuildRawMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      *EmailMessage
		contains []string
		excludes []string
	}{
		{
			name: "plain text",
			msg: &EmailMessage{
				To:      []string{"bob@example.com"},
				Subject: "Lunch",
				Body:    "See you at noon.",
			},
			contains: []string{
				"To: bob@example.com\r\n",
				"Subject: Lunch\r\n",
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n",
				"MIME-Version: 1.0\r\n\r\nSee you at noon.",
			},
			excludes: []string{"Cc:", "Bcc:"},
		},
		{
			name: "html with copies",
			msg: &EmailMessage{
				To:      []string{"a@example.com", "b@example.com"},
				Cc:      []string{"c@example.com"},
				Bcc:     []string{"d@example.com"},
				Subject: "Überblick",
				Body:    "<p>Hi</p>",
				IsHTML:  true,
			},
			contains: []string{
				"To: a@example.com, b@example.com\r\n",
				"Cc: c@example.com\r\n",
				"Bcc: d@example.com\r\n",
				"Subject: =?UTF-8?",
				"Content-Type: text/html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := buildRawMessage(tt.msg)
			for _, c := range tt.contains {
				if !strings.Contains(raw, c) {
					t.Errorf("raw message missing %q:\n%s", c, raw)
				}
			}
			for _, e := range tt.excludes {
				if strings.Contains(raw, e) {
					t.Errorf("raw message should not contain %q:\n%s", e, raw)
				}
			}
		})
	}
}

func TestCheckHeaders(t *testing.T) {
	tests := []struct {
		name    string
		msg     *EmailMessage
		wantErr bool
	}{
		{
			name: "plain",
			msg:  &EmailMessage{To: []string{"bob@example.com"}, Subject: "Lunch"},
		},
		{
			name: "display names",
			msg:  &EmailMessage{To: []string{"Bob <bob@example.com>"}, Cc: []string{`"Doe, Jane" <jane@example.com>`}, Subject: "Lunch"},
		},
		{
			name:    "CRLF in subject",
			msg:     &EmailMessage{To: []string{"bob@example.com"}, Subject: "Hi\r\nBcc: attacker@evil.test"},
			wantErr: true,
		},
		{
			name:    "bare LF in subject",
			msg:     &EmailMessage{To: []string{"bob@example.com"}, Subject: "Hi\nX-Spam: yes"},
			wantErr: true,
		},
		{
			name:    "CRLF in recipient",
			msg:     &EmailMessage{To: []string{"bob@example.com\r\nBcc: attacker@evil.test"}, Subject: "Hi"},
			wantErr: true,
		},
		{
			name:    "CRLF in bcc",
			msg:     &EmailMessage{To: []string{"bob@example.com"}, Bcc: []string{"x@example.com\nSubject: spoof"}, Subject: "Hi"},
			wantErr: true,
		},
		{
			name:    "two addresses in one entry",
			msg:     &EmailMessage{To: []string{"bob@example.com, eve@example.com"}, Subject: "Hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkHeaders(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
