package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/server"
)

func TestBuildRegistry(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		want     []string
	}{
		{
			name: "all tools",
			want: []string{"calculator", "get_calendar_events", "send_email", "summarize_emails"},
		},
		{
			name:     "read-only",
			readOnly: true,
			want:     []string{"calculator", "get_calendar_events", "summarize_emails"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := server.NewServerContext(context.Background(), server.WithReadOnly(tt.readOnly))
			defer func() { _ = sc.Shutdown() }()

			registry, err := buildRegistry(sc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, registry.Names())
		})
	}
}

func TestToolsCommand(t *testing.T) {
	cmd := newToolsCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "NAME")
	assert.Contains(t, text, "calculator")
	assert.Contains(t, text, "body, recipient, subject")
	assert.Contains(t, text, "[days_ahead]")
}

func TestGenerateToolsMarkdown(t *testing.T) {
	cmd := newGenerateDocsCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	md := out.String()
	assert.True(t, strings.HasPrefix(md, "# Tools Reference"))
	assert.Contains(t, md, "- [Calendar Tools](#calendar-tools)")
	assert.Contains(t, md, "### send_email")
	assert.Contains(t, md, "- `recipient` (string, required)")
	assert.Contains(t, md, "- `days_ahead` (number, optional)")
	assert.Contains(t, md, "Default: `7`.")
	assert.Contains(t, md, "## Utility Tools")
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Evaluate an expression.", firstSentence("Evaluate an expression. Supports pow."))
	assert.Equal(t, "No period", firstSentence("No period"))
}
