package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every log line of the agent.
const (
	KeyOperation     = "operation"
	KeyRecipientHash = "recipient_hash"
	KeyDuration      = "duration"
	KeyStatus        = "status"
	KeyError         = "error"
	KeyTool          = "tool"
	KeyRunID         = "run_id"
	KeyStep          = "step"
	KeyToolCallID    = "tool_call_id"
	KeyProvider      = "provider"
	KeyModel         = "model"
)

// Log formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]bool{
	"api_key":       true,
	"access_token":  true,
	"refresh_token": true,
	"authorization": true,
	"password":      true,
}

// New returns a logger writing to w. Format is FormatJSON or FormatText
// (anything else); debug lowers the level to Debug. Values of secret
// attributes such as api_key are masked.
func New(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactSecrets}

	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, SanitizeToken(a.Value.String()))
	}
	return a
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithRun returns a logger with the run id attribute set.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With(slog.String(KeyRunID, runID))
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Step returns a slog attribute for the reasoning step number.
func Step(step int) slog.Attr {
	return slog.Int(KeyStep, step)
}

// ToolCallID returns a slog attribute for a tool call id.
func ToolCallID(id string) slog.Attr {
	return slog.String(KeyToolCallID, id)
}

// Model groups the language model provider and model under "llm".
func Model(provider, model string) slog.Attr {
	return slog.Group("llm", slog.String(KeyProvider, provider), slog.String(KeyModel, model))
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group, which handlers omit.
//
//	logger.Info("tool finished", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an address so that log lines about the same
// recipient can be correlated without exposing it.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// RecipientHash returns a slog attribute with the anonymized recipient address.
func RecipientHash(email string) slog.Attr {
	return slog.String(KeyRecipientHash, AnonymizeEmail(email))
}

// SanitizeToken masks a credential, keeping only its length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
