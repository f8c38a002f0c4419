package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/app"

	"github.com/shopspring/decimal"
)

// pickWizard walks a technician through reserving parts for a work order and optionally
// issuing them straight away. Typing "cancel" at any prompt aborts without changes.
func pickWizard(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, session cli.Session) error {
	ask := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "cancel") {
			fmt.Fprintln(out, "Pick cancelled.")
			return "", false
		}
		return raw, true
	}

	workOrderID, ok := ask("Work order: ")
	if !ok || workOrderID == "" {
		return nil
	}
	stockID, ok := ask("Stock source: ")
	if !ok || stockID == "" {
		return nil
	}

	stock, err := svc.GetStockRecord(ctx, session.TenantID, stockID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Part %s: %d on hand, %d reserved\n", stock.Stock.PartID, stock.Stock.OnHand, stock.Stock.Reserved)

	rawQty, ok := ask("Quantity: ")
	if !ok {
		return nil
	}
	qty, err := strconv.ParseInt(rawQty, 10, 64)
	if err != nil || qty <= 0 {
		fmt.Fprintln(out, "  Invalid quantity.")
		return nil
	}

	rawCost, ok := ask("Unit cost (blank for catalog price): ")
	if !ok {
		return nil
	}
	if rawCost != "" {
		if c, err := decimal.NewFromString(rawCost); err != nil || c.IsNegative() {
			fmt.Fprintln(out, "  Invalid unit cost.")
			return nil
		}
	}

	req := app.LineItemRequest{
		TenantID:      session.TenantID,
		WorkOrderID:   workOrderID,
		StockSourceID: stockID,
		Quantity:      qty,
		UnitCost:      rawCost,
		ActorID:       session.ActorID,
	}
	result, err := svc.Reserve(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reserved %d of %s.\n", qty, stock.Stock.PartID)

	answer, ok := ask("Issue now? (y/n): ")
	if ok && (strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")) {
		req.UnitCost = ""
		result, err = svc.Issue(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Issued %d of %s.\n", qty, stock.Stock.PartID)
	}
	printLineItems(out, result)
	return nil
}
