// Package report renders inventory snapshots and the static blood type
// reference tables as fixed-width text.
//
// Every function is pure: the same input always yields the same text, and
// nothing touches the store. Output lines end with "\n"; framing on the wire
// is left to the caller.
package report

import (
	"fmt"
	"strings"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

const everyType = "Todos"

// Right-aligned widths of the two compatibility columns in the full report,
// per blood type. They line the columns up under the header.
var compatibilityWidths = [domain.TypeCount][2]int{
	domain.OPositive:  {25, 15},
	domain.ONegative:  {15, 21},
	domain.APositive:  {17, 31},
	domain.ANegative:  {26, 14},
	domain.BPositive:  {17, 31},
	domain.BNegative:  {26, 14},
	domain.ABPositive: {13, 26},
	domain.ABNegative: {18, 31},
}

type prevalence struct {
	group    string
	positive string
	negative string
}

var prevalenceRows = []prevalence{
	{"O", "36%", "9%"},
	{"A", "34%", "8%"},
	{"B", "8%", "2%"},
	{"AB", "2.5%", "0.5%"},
	{"Total", "80.5%", "19.5%"},
}

// All lists stock, share of the total and compatibility for every type.
func All(inv domain.Inventory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s%-21s%-20s%-24s%-25s\n", "Tipo Sanguíneo", "Estoque (l)", "% do total", "Pode doar para", "Pode receber de")
	for _, t := range domain.AllTypes() {
		c := domain.CompatibilityOf(t)
		w := compatibilityWidths[t]
		fmt.Fprintf(&b, "%-24s%11.2f%20.2f%*s%*s\n",
			t, inv.Get(t), inv.Share(t), w[0], typeList(c.DonatesTo), w[1], typeList(c.ReceivesFrom))
	}
	writeTotal(&b, inv)
	return b.String()
}

// Prevalence is the share of each ABO group in the Brazilian population. It
// does not depend on the stock.
func Prevalence() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s%-18s%-25s\n", "Grupo Sanguíneo", "Positivo", "Negativo")
	for _, row := range prevalenceRows {
		fmt.Fprintf(&b, "%-25s%-18s%-25s\n", row.group, row.positive, row.negative)
	}
	b.WriteString("Percentual de ocorrência dos tipos sanguíneos, considerando a população total do Brasil.\n")
	return b.String()
}

func Stock(inv domain.Inventory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s%-21s%-10s\n", "Tipo Sanguíneo", "Estoque (l)", "% do total")
	for _, t := range domain.AllTypes() {
		fmt.Fprintf(&b, "%-24s%11.2f%20.2f\n", t, inv.Get(t), inv.Share(t))
	}
	writeTotal(&b, inv)
	return b.String()
}

func Compatibility() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s%-24s%-25s\n", "Tipo Sanguíneo", "Pode doar para", "Pode receber de")
	for _, t := range domain.AllTypes() {
		c := domain.CompatibilityOf(t)
		fmt.Fprintf(&b, "%-24s%-24s%-25s\n", t, typeList(c.DonatesTo), typeList(c.ReceivesFrom))
	}
	return b.String()
}

func writeTotal(b *strings.Builder, inv domain.Inventory) {
	fmt.Fprintf(b, "Total de sangue em estoque: %s litros.\n", domain.FormatLiters(inv.Total()))
}

func typeList(types []domain.BloodType) string {
	if types == nil {
		return everyType
	}
	codes := make([]string, len(types))
	for i, t := range types {
		codes[i] = t.String()
	}
	return strings.Join(codes, ", ")
}
