package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/agent"
)

func newAskCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "ask [command]",
		Short: "Ask the agent a question",
		Long: `Ask the agent to do something, e.g. "Summarize my last 3 emails" or
"What's 7*8?". The agent calls tools until it can answer.

Without an argument an interactive prompt is started. Type "exit" or press
Ctrl-D to leave it.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, flags.load(cmd), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if len(args) > 0 {
				answer, err := a.controller.Run(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			}
			return runInteractive(ctx, a.controller, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	return cmd
}

// answerer is satisfied by *agent.Controller.
type answerer interface {
	Run(ctx context.Context, input string) (string, error)
}

// runInteractive reads one command per line and prints the agent's answer.
// A failed run is reported and the prompt continues.
func runInteractive(ctx context.Context, runner answerer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := runner.Run(ctx, line)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", describeRunError(err))
			continue
		}
		fmt.Fprintf(out, "Agent: %s\n", answer)
	}
}

// describeRunError turns a run failure into a message for the terminal.
func describeRunError(err error) string {
	var unavailable *agent.ModelUnavailableError
	var malformed *agent.MalformedResponseError

	switch {
	case errors.As(err, &unavailable):
		return fmt.Sprintf("the language model is unavailable: %v", unavailable.Err)
	case errors.As(err, &malformed):
		return "the language model returned an invalid answer: " + malformed.Reason
	case errors.Is(err, agent.ErrBudgetExceeded):
		return "no answer within the step limit, try a simpler request"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	}
	return err.Error()
}
