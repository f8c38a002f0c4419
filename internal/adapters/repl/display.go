package repl

import (
	"fmt"
	"io"
	"strings"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/app"
)

func printResult(out io.Writer, result any) {
	switch r := result.(type) {
	case *app.LineItemListResult:
		printLineItems(out, r)
	case *app.WorkOrderCostsResult:
		printCosts(out, r)
	case *app.StockResult:
		printStock(out, r)
	case *app.MovementListResult:
		printMovements(out, r)
	case *app.ReconciliationResult:
		printReconciliation(out, r)
	case *cli.DeleteResult:
		fmt.Fprintf(out, "Line item %s deleted from %s.\n", r.LineItemID, r.WorkOrderID)
	default:
		fmt.Fprintf(out, "%+v\n", r)
	}
}

func printLineItems(out io.Writer, result *app.LineItemListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 90))
	fmt.Fprintf(out, "  LINE ITEMS - Work order %s\n", result.WorkOrderID)
	fmt.Fprintln(out, strings.Repeat("=", 90))
	if len(result.LineItems) == 0 {
		fmt.Fprintln(out, "  No active line items.")
		fmt.Fprintln(out, strings.Repeat("=", 90))
		return
	}
	fmt.Fprintf(out, "  %-36s %-16s %-16s %8s %8s %10s\n", "ID", "PART", "STOCK SOURCE", "RESERVED", "ISSUED", "UNIT COST")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, li := range result.LineItems {
		fmt.Fprintf(out, "  %-36s %-16s %-16s %8d %8d %10s\n",
			li.ID, li.PartID, li.StockRecordID, li.QtyReserved, li.QtyIssued, li.UnitCost.StringFixed(4))
	}
	fmt.Fprintln(out, strings.Repeat("=", 90))
}

func printCosts(out io.Writer, result *app.WorkOrderCostsResult) {
	c := result.Costs
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 44))
	fmt.Fprintf(out, "  COSTS - Work order %s\n", c.WorkOrderID)
	fmt.Fprintln(out, strings.Repeat("=", 44))
	fmt.Fprintf(out, "  %-24s %15s\n", "Labor", c.LaborCost.StringFixed(2))
	fmt.Fprintf(out, "  %-24s %15s\n", "Parts", c.PartsCostTotal.StringFixed(2))
	fmt.Fprintf(out, "  %-24s %15s\n", "Miscellaneous", c.MiscellaneousCost.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("-", 44))
	fmt.Fprintf(out, "  %-24s %15s\n", "TOTAL", c.TotalCost.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 44))
}

func printStock(out io.Writer, result *app.StockResult) {
	s := result.Stock
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Stock source %s (part %s, site %s)\n", s.ID, s.PartID, orDash(s.SiteID))
	fmt.Fprintf(out, "  On hand: %d   Reserved: %d\n", s.OnHand, s.Reserved)
}

func printMovements(out io.Writer, result *app.MovementListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 96))
	fmt.Fprintf(out, "  %-6s %-20s %-10s %-16s %-14s %6s %8s %9s\n",
		"SEQ", "TIME", "TYPE", "STOCK SOURCE", "WORK ORDER", "QTY", "ON HAND", "RESERVED")
	fmt.Fprintln(out, strings.Repeat("-", 96))
	if len(result.Movements) == 0 {
		fmt.Fprintln(out, "  No movements found.")
	}
	for _, m := range result.Movements {
		fmt.Fprintf(out, "  %-6d %-20s %-10s %-16s %-14s %6d %8d %9d\n",
			m.Sequence, m.CreatedAt.Format("2006-01-02 15:04:05"), m.Type, m.StockRecordID,
			m.WorkOrderID, m.Quantity, m.OnHandAfter, m.ReservedAfter)
	}
	fmt.Fprintln(out, strings.Repeat("=", 96))
}

func printReconciliation(out io.Writer, result *app.ReconciliationResult) {
	r := result.Report
	status := "CONSISTENT"
	if !result.Consistent {
		status = "OUT OF BALANCE"
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Stock source %s: %s\n", r.Stock.ID, status)
	fmt.Fprintf(out, "  On hand %d, reserved %d\n", r.Stock.OnHand, r.Stock.Reserved)
	if r.LastMovement != nil {
		fmt.Fprintf(out, "  Last movement #%d %s: on hand %d, reserved %d (match: %t)\n",
			r.LastMovement.Sequence, r.LastMovement.Type, r.LastMovement.OnHandAfter,
			r.LastMovement.ReservedAfter, r.SnapshotMatches)
	} else {
		fmt.Fprintln(out, "  No movements recorded.")
	}
	fmt.Fprintf(out, "  Reserved on line items: %d (match: %t)\n", r.LineItemReserved, r.ReservedMatches)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "PARTS LEDGER - COMMANDS")
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  WORK ORDERS")
	fmt.Fprintln(out, "  /list      <work-order>                       Active line items")
	fmt.Fprintln(out, "  /costs     <work-order>                       Cost rollup")
	fmt.Fprintln(out, "  /reserve   <work-order> <stock> <qty> [cost]  Reserve parts")
	fmt.Fprintln(out, "  /unreserve <work-order> <stock> <qty>         Release a reservation")
	fmt.Fprintln(out, "  /issue     <work-order> <stock> <qty> [cost]  Issue reserved parts")
	fmt.Fprintln(out, "  /return    <work-order> <stock> <qty>         Return issued parts")
	fmt.Fprintln(out, "  /delete    <work-order> <line-item>           Release and remove a line item")
	fmt.Fprintln(out, "  /pick                                         Guided reserve and issue")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  STOCK")
	fmt.Fprintln(out, "  /stock     <stock-source>                     On hand and reserved")
	fmt.Fprintln(out, "  /history   [--work-order ID] [--part ID] [--stock-source ID] [--limit N]")
	fmt.Fprintln(out, "  /reconcile <stock-source>                     Check against the movement log")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  SESSION")
	fmt.Fprintln(out, "  /tenant <tenant-id>                           Switch tenant")
	fmt.Fprintln(out, "  /help                                         Show this help")
	fmt.Fprintln(out, "  /exit                                         Exit")
	fmt.Fprintln(out, strings.Repeat("=", 70))
}
