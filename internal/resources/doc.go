// Package resources provides MCP resources for the transcripts of finished
// agent runs. Resources are read-only data sources that MCP clients can
// fetch alongside the tools.
//
// Two resources are registered:
//
//	transcripts://recent      the most recent runs, newest first
//	transcripts://runs/{id}   the full message log of one run
package resources
