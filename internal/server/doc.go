// Package server hosts the agent: the shared ServerContext used by the
// tools, the webhook HTTP server, the MCP bridge and the metrics server.
//
// # Key Components
//
// ServerContext owns the Google API clients. They are created lazily from a
// factory so that the process starts without a Google token, and creation is
// retried after a failure.
//
// WebhookServer accepts {"command": "..."} on POST /webhook and replies with
// {"reply": "..."}. Failures are mapped to JSON error bodies:
//   - 400 for an empty or unparsable command
//   - 502 when the model is unavailable or answers out of contract
//   - 504 when the run times out
//   - 500 otherwise
//
// Transcripts of finished runs are available on GET /runs/{id} when a
// transcript store is configured. Liveness and readiness checks are served
// on /healthz and /readyz.
//
// NewMCPServer exposes the registered tools, plus an ask_agent tool that runs
// the whole loop, to MCP clients over stdio or streamable HTTP.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
