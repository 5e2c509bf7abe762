package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/xenking/shelfsafe/internal/dashboard"
)

// noImage is shown in place of a missing image.
const noImage = "No Image"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"}
	colorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}

	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true)
	styleHeader  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

func renderSnapshot(snap *dashboard.Snapshot, withLots bool) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Inventory Dashboard"))
	b.WriteString("\n")
	b.WriteString(styleMuted.Render(fmt.Sprintf("%d products · %d lots · %d attachments · %s on hand · fetched %s",
		len(snap.Products), len(snap.Lots), snap.AttachmentCount,
		snap.TotalQtyOnHand.String(), snap.FetchedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")

	products := make([][]string, 0, len(snap.Products))
	for _, p := range snap.Products {
		products = append(products, []string{orDash(p.Name), orDash(p.Category), orDash(p.Barcode), imageCell(p.ImageURL)})
	}
	b.WriteString(renderTable([]string{"Product", "Category", "Barcode", "Image"}, products))
	b.WriteString("\n")

	if !withLots {
		return b.String()
	}

	lots := make([][]string, 0, len(snap.Lots))
	for _, l := range snap.Lots {
		expiry := "—"
		if l.ExpiryDate != nil {
			expiry = l.ExpiryDate.Format("2006-01-02")
		}
		lots = append(lots, []string{
			orDash(l.Key), orDash(l.ProductName), l.QtyOnHand.String(), expiry, orDash(l.Status), imageCell(l.ImageURL),
		})
	}
	b.WriteString("\n")
	b.WriteString(renderTable([]string{"Lot", "Product", "Qty", "Expiry", "Status", "Image"}, lots))
	b.WriteString("\n")
	return b.String()
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		String()
}

func imageCell(url string) string {
	if url == "" {
		return styleMuted.Render(noImage)
	}
	return url
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
