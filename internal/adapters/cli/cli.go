package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"maintenance-ledger/internal/app"

	"github.com/spf13/pflag"
)

// Usage lists the available commands.
const Usage = `Usage: app [--tenant ID] [--actor ID] <command> [args]

Commands:
  list      <work-order>                                  active line items
  reserve   <work-order> <stock-source> <qty> [unit-cost]
  unreserve <work-order> <stock-source> <qty>
  issue     <work-order> <stock-source> <qty> [unit-cost]
  return    <work-order> <stock-source> <qty>
  delete    <work-order> <line-item>
  costs     <work-order>
  stock     <stock-source>
  history   [--work-order ID] [--part ID] [--stock-source ID] [--limit N]
  reconcile <stock-source>

Without a command, app starts an interactive shell.`

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("invalid usage")

// Session carries the identity defaults for one CLI invocation.
type Session struct {
	TenantID string
	ActorID  string
}

// ParseGlobal applies the leading --tenant and --actor flags to session and returns the
// remaining arguments, starting with the command name if there is one.
func ParseGlobal(session Session, args []string) (Session, []string, error) {
	global := pflag.NewFlagSet("app", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	global.StringVar(&session.TenantID, "tenant", session.TenantID, "tenant id")
	global.StringVar(&session.ActorID, "actor", session.ActorID, "actor recorded on movements")
	if err := global.Parse(args); err != nil {
		return session, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return session, global.Args(), nil
}

// Run executes a one-shot CLI command and writes the JSON result to out.
// args is os.Args[1:]; --tenant and --actor override the session defaults.
func Run(ctx context.Context, svc app.ApplicationService, session Session, args []string, out io.Writer) error {
	session, args, err := ParseGlobal(session, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}
	if session.TenantID == "" {
		return fmt.Errorf("%w: --tenant is required", ErrUsage)
	}

	result, err := Execute(ctx, svc, session, args[0], args[1:])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// Execute runs one command with its arguments and returns the application result.
// Delete returns a *DeleteResult since the service has nothing else to report.
func Execute(ctx context.Context, svc app.ApplicationService, session Session, cmd string, rest []string) (any, error) {
	switch cmd {
	case "list", "ls":
		if err := need(cmd, rest, 1); err != nil {
			return nil, err
		}
		return svc.ListLineItems(ctx, session.TenantID, rest[0])

	case "reserve", "unreserve", "issue", "return":
		req, err := parseLineItemArgs(cmd, rest, session)
		if err != nil {
			return nil, err
		}
		switch cmd {
		case "reserve":
			return svc.Reserve(ctx, req)
		case "unreserve":
			return svc.Unreserve(ctx, req)
		case "issue":
			return svc.Issue(ctx, req)
		default:
			return svc.ReturnIssued(ctx, req)
		}

	case "delete", "rm":
		if err := need(cmd, rest, 2); err != nil {
			return nil, err
		}
		if err := svc.DeleteLineItem(ctx, session.TenantID, rest[0], rest[1], session.ActorID); err != nil {
			return nil, err
		}
		return &DeleteResult{OK: true, WorkOrderID: rest[0], LineItemID: rest[1]}, nil

	case "costs":
		if err := need(cmd, rest, 1); err != nil {
			return nil, err
		}
		return svc.GetWorkOrderCosts(ctx, session.TenantID, rest[0])

	case "stock":
		if err := need(cmd, rest, 1); err != nil {
			return nil, err
		}
		return svc.GetStockRecord(ctx, session.TenantID, rest[0])

	case "history":
		q, err := parseHistoryArgs(rest)
		if err != nil {
			return nil, err
		}
		q.TenantID = session.TenantID
		return svc.ListMovements(ctx, q)

	case "reconcile":
		if err := need(cmd, rest, 1); err != nil {
			return nil, err
		}
		return svc.Reconcile(ctx, session.TenantID, rest[0])
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

// DeleteResult is what Execute reports for a successful delete.
type DeleteResult struct {
	OK          bool   `json:"ok"`
	WorkOrderID string `json:"work_order_id"`
	LineItemID  string `json:"line_item_id"`
}

func need(cmd string, args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s expects %d argument(s)", ErrUsage, cmd, n)
	}
	return nil
}

func parseLineItemArgs(cmd string, args []string, session Session) (app.LineItemRequest, error) {
	if err := need(cmd, args, 3); err != nil {
		return app.LineItemRequest{}, err
	}
	qty, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return app.LineItemRequest{}, fmt.Errorf("%w: quantity %q is not an integer", ErrUsage, args[2])
	}
	req := app.LineItemRequest{
		TenantID:      session.TenantID,
		WorkOrderID:   args[0],
		StockSourceID: args[1],
		Quantity:      qty,
		ActorID:       session.ActorID,
	}
	if len(args) > 3 {
		if cmd != "reserve" && cmd != "issue" {
			return app.LineItemRequest{}, fmt.Errorf("%w: %s does not take a unit cost", ErrUsage, cmd)
		}
		req.UnitCost = strings.TrimSpace(args[3])
	}
	return req, nil
}

func parseHistoryArgs(args []string) (app.MovementQuery, error) {
	var q app.MovementQuery
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&q.WorkOrderID, "work-order", "", "filter by work order")
	fs.StringVar(&q.PartID, "part", "", "filter by part")
	fs.StringVar(&q.StockSourceID, "stock-source", "", "filter by stock source")
	fs.IntVar(&q.Limit, "limit", 0, "maximum number of movements")
	if err := fs.Parse(args); err != nil {
		return q, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return q, nil
}
