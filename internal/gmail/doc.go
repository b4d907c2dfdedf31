// Package gmail provides a client for the parts of the Gmail API the agent
// uses: summarizing the newest inbox messages and sending plain or HTML
// email.
//
// Every API call is traced (google.gmail.<operation>) and recorded in the
// google_api_operations metrics.
//
// Example usage:
//
//	client, err := gmail.NewClientFromProvider(ctx, tokenProvider, metrics)
//	if err != nil {
//	    return err
//	}
//
//	summaries, err := client.ListInboxSummaries(ctx, 5)
//
//	id, err := client.SendEmail(ctx, &gmail.EmailMessage{
//	    To:      []string{"recipient@example.com"},
//	    Subject: "Hello",
//	    Body:    "This is a test email",
//	})
package gmail
