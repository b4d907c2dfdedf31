// Package transcript persists the message logs of finished agent runs.
//
// Two storage backends are available: an in-memory store that keeps the most
// recent runs of a single process, and a Valkey store for deployments with
// several replicas. Transcripts are keyed by run id and expire after a
// configurable TTL.
package transcript
