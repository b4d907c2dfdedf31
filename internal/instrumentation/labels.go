package instrumentation

import "strings"

// Label values shared by the metrics and the audit log.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"

	OperationList = "list"
	OperationGet  = "get"
	OperationSend = "send"

	RunStateDone   = "done"
	RunStateFailed = "failed"
)

// Reasons a tool call is rejected before its executor runs.
const (
	RejectUnknownTool      = "unknown_tool"
	RejectInvalidArguments = "invalid_arguments"
)

// UnregisteredTool replaces tool names the model invented. The model
// controls these names, so recording them verbatim would let it create
// any number of label values.
const UnregisteredTool = "unregistered"

// ToolLabel returns the metric label for a requested tool.
func ToolLabel(name string, registered bool) string {
	if !registered || name == "" {
		return UnregisteredTool
	}
	return name
}

// ExtractUserDomain reduces an email address to its domain so that
// recipient labels stay bounded.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return StatusUnknown
	}
	return domain
}
