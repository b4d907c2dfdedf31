// Package gmail_tools provides the Gmail tools available to the agent.
//
// Inbox:
//   - summarize_emails: Sender, subject and snippet of the most recent inbox messages
//
// Sending (omitted in read-only mode):
//   - send_email: Send a plain text email to one or more recipients
//
// All tools require an authenticated Gmail client, which is provided through
// the server context. Tool failures are returned as errors and reach the
// model as the content of the tool message.
//
// Privacy:
//   - Recipient addresses are reduced to their domain in logs and metrics
//   - Message bodies are never logged
package gmail_tools
