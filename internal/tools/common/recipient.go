package common

import "strings"

// RecipientArg is the argument name under which tools receive an email
// recipient.
const RecipientArg = "recipient"

// GetRecipientFromArgs returns the trimmed recipient address from tool
// arguments, or "" for tools that have none.
func GetRecipientFromArgs(args map[string]any) string {
	v, _ := args[RecipientArg].(string)
	return strings.TrimSpace(v)
}
