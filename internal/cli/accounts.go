package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/model"
)

// RenderAccounts lays accounts out as an aligned table.
func RenderAccounts(accounts []model.Account) string {
	if len(accounts) == 0 {
		return SubtleStyle.Render("No accounts have authorized the app yet.")
	}

	rows := [][]string{{"ACCOUNT", "CATEGORY", "STATUS", "FIELDS", "UPDATED"}}
	for i := range accounts {
		a := &accounts[i]
		rows = append(rows, []string{
			a.ID,
			categoryName(a.Category),
			connection(a),
			fmt.Sprintf("%d", len(a.FieldMapping)),
			a.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	lines := make([]string, 0, len(rows))
	for r, row := range rows {
		style := TableCellStyle
		if r == 0 {
			style = TableHeaderStyle
		}
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = style.Width(widths[i] + 2).Render(cell)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

// RenderAccount shows one account with its field mapping.
func RenderAccount(a *model.Account, state model.ProvisioningState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category:  %s\n", categoryName(a.Category))
	fmt.Fprintf(&b, "Status:    %s\n", connection(a))
	fmt.Fprintf(&b, "State:     %s\n", state)
	fmt.Fprintf(&b, "Created:   %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"))

	if len(a.FieldMapping) == 0 {
		b.WriteString("\n" + SubtleStyle.Render("No custom fields provisioned."))
	} else {
		keys := make([]model.FieldKey, 0, len(a.FieldMapping))
		for k := range a.FieldMapping {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return fields.Order(keys[i]) < fields.Order(keys[j]) })

		b.WriteString("\nFields:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %-18s %s", fields.Label(k), SubtleStyle.Render(a.FieldMapping[k]))
		}
	}

	return RenderBox("Account "+a.ID, b.String())
}

func categoryName(c model.Category) string {
	if c == "" {
		return "(unknown)"
	}
	return string(c)
}

func connection(a *model.Account) string {
	if a.Connected() {
		return SuccessStyle.Render("connected")
	}
	return WarningStyle.Render("disconnected")
}
