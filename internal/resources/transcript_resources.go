package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxagent/internal/transcript"
)

const (
	// RecentTranscriptsURI lists the most recent runs.
	RecentTranscriptsURI = "transcripts://recent"

	runURIPrefix = "transcripts://runs/"

	// RunTranscriptTemplate addresses the transcript of a single run.
	RunTranscriptTemplate = runURIPrefix + "{id}"

	// DefaultRecentLimit is the number of runs listed by RecentTranscriptsURI.
	DefaultRecentLimit = 20
)

// runSummary is one entry of the recent transcripts listing.
type runSummary struct {
	RunID  string `json:"run_id"`
	Input  string `json:"input"`
	State  string `json:"state"`
	Steps  int    `json:"steps"`
	Error  string `json:"error,omitempty"`
	URI    string `json:"uri"`
	Answer string `json:"answer,omitempty"`
}

// RegisterTranscriptResources registers the transcript resources backed by
// store. The MCP server must have been created with resource capabilities.
func RegisterTranscriptResources(s *mcpserver.MCPServer, store transcript.Store) error {
	if store == nil {
		return errors.New("transcript store is required for transcript resources")
	}

	recent := mcp.NewResource(
		RecentTranscriptsURI,
		"Recent Runs",
		mcp.WithResourceDescription(fmt.Sprintf("The %d most recent agent runs, newest first", DefaultRecentLimit)),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(recent, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRecentTranscripts(ctx, request, store)
	})

	run := mcp.NewResourceTemplate(
		RunTranscriptTemplate,
		"Run Transcript",
		mcp.WithTemplateDescription("The full message log of a single agent run"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(run, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRunTranscript(ctx, request, store)
	})

	return nil
}

func handleRecentTranscripts(ctx context.Context, request mcp.ReadResourceRequest, store transcript.Store) ([]mcp.ResourceContents, error) {
	records, err := store.Recent(ctx, DefaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	summaries := make([]runSummary, len(records))
	for i, r := range records {
		summaries[i] = runSummary{
			RunID:  r.RunID,
			Input:  r.Input,
			State:  r.State,
			Steps:  r.Steps,
			Error:  r.Error,
			URI:    runURIPrefix + r.RunID,
			Answer: r.Answer,
		}
	}
	return jsonContents(request.Params.URI, summaries)
}

func handleRunTranscript(ctx context.Context, request mcp.ReadResourceRequest, store transcript.Store) ([]mcp.ResourceContents, error) {
	id, ok := strings.CutPrefix(request.Params.URI, runURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid transcript URI: %s", request.Params.URI)
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", id, err)
	}
	return jsonContents(request.Params.URI, rec)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
