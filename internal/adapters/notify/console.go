package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out          io.Writer
	table        bool
	minEdgeCents float64
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool, minEdgeCents float64) *Console {
	return &Console{out: os.Stdout, table: table, minEdgeCents: minEdgeCents}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool, minEdgeCents float64) *Console {
	return &Console{out: w, table: table, minEdgeCents: minEdgeCents}
}

// Notify imprime los candidates del tick en el modo configurado.
func (c *Console) Notify(_ context.Context, candidates []domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	if c.table {
		c.printTable(candidates)
	} else {
		c.printCompact(candidates)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(candidates []domain.Candidate) {
	now := time.Now().Format("15:04:05")
	actionable := countActionable(candidates, c.minEdgeCents)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d baskets, %d actionable", now, len(candidates), actionable)

	shown := 0
	for _, cand := range candidates {
		if shown >= 3 {
			break
		}
		mark := " "
		if cand.Actionable(c.minEdgeCents) {
			mark = "*"
		}
		fmt.Fprintf(&sb, " | %s%s edge $%.3f (%.1f%%)",
			mark, truncate(cand.Basket.Title, 28), cand.GrossEdge, cand.EdgePct)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printTable imprime la tabla completa de candidates del tick.
func (c *Console) printTable(candidates []domain.Candidate) {
	now := time.Now().Format("15:04:05")
	actionable := countActionable(candidates, c.minEdgeCents)

	fmt.Fprintf(c.out, "\n[%s] %d candidates, %d actionable (umbral %.1fc)\n",
		now, len(candidates), actionable, c.minEdgeCents)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Basket", "Strategy", "Legs", "Cost", "Payout", "Edge", "Edge%", "Act")

	for i, cand := range candidates {
		act := ""
		if cand.Actionable(c.minEdgeCents) {
			act = "YES"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(cand.Basket.Title, 38),
			string(cand.Basket.Strategy),
			fmt.Sprintf("%d", len(cand.Basket.Legs)),
			fmt.Sprintf("$%.3f", cand.BasketCost),
			fmt.Sprintf("$%.3f", cand.Payout),
			fmt.Sprintf("$%.3f", cand.GrossEdge),
			fmt.Sprintf("%.1f%%", cand.EdgePct),
			act,
		)
	}

	table.Render()
	fmt.Fprintln(c.out, "  Edge = payout neto de fee - coste del basket - coste fijo")
}

func countActionable(candidates []domain.Candidate, minEdgeCents float64) int {
	n := 0
	for _, c := range candidates {
		if c.Actionable(minEdgeCents) {
			n++
		}
	}
	return n
}

// truncate corta por runas, no por bytes: los títulos traen acentos, grados
// y símbolos multi-byte que un corte a mitad de runa dejaría ilegibles.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
