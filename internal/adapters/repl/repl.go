package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/app"
)

var errExit = errors.New("exit")

// Run starts the interactive ledger shell. It reads slash commands from in until /exit or EOF.
// Commands share their syntax with the one-shot CLI but print tables instead of JSON.
func Run(ctx context.Context, svc app.ApplicationService, session cli.Session, in io.Reader, out io.Writer) error {
	if session.TenantID == "" {
		return fmt.Errorf("%w: --tenant is required", cli.ErrUsage)
	}
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "Parts Ledger")
	fmt.Fprintf(out, "Tenant: %s  Actor: %s\n", session.TenantID, orDash(session.ActorID))
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	dispatch := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "help", "h":
			printHelp(out)
			return nil
		case "exit", "quit", "q":
			return errExit
		case "tenant":
			if len(args) != 1 {
				fmt.Fprintln(out, "Usage: /tenant <tenant-id>")
				return nil
			}
			session.TenantID = args[0]
			fmt.Fprintf(out, "Tenant set to %s.\n", session.TenantID)
			return nil
		case "pick":
			return pickWizard(ctx, reader, out, svc, session)
		}

		result, err := cli.Execute(ctx, svc, session, cmd, args)
		if err != nil {
			return err
		}
		printResult(out, result)
		return nil
	}

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with /. Type /help for the list.")
			} else if err := dispatch(input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}

		if readErr == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
