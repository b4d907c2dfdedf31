// Package logging provides the slog conventions of the inboxagent service.
//
// New builds the process logger in text or JSON format. Attribute helpers
// keep key names identical across the agent loop, the reasoners and the
// tools, so that one run can be followed through its run_id.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithRun(slog.Default(), runID)
//	logger.Info("reasoning step finished",
//	    logging.Step(step), logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("email sent",
//	    logging.RecipientHash(to))
//
// # Security Considerations
//
// Recipient addresses are hashed with RecipientHash. Attributes named
// api_key, access_token, refresh_token, authorization or password are
// masked by every logger returned from New.
package logging
