package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"rfmbasket/pkg/contracts/domain"
)

func renderJSON(w io.Writer, result *domain.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// renderReport prints each section of a run as its own table.
func renderReport(w io.Writer, result *domain.AnalysisResult) error {
	fmt.Fprintf(w, "Run %s: %s\n", result.RunID, result.FileName)
	fmt.Fprintf(w, "%d rows read, %d kept, %d customers, %d invoices\n\n",
		result.Stats.RowsRead, result.Stats.RowsKept, result.Stats.Customers, result.Stats.Invoices)

	renderRawPreview(w, result)
	renderCleanedPreview(w, result.CleanedPreview)

	if result.Segmented {
		renderClusters(w, result.ClusterSummary)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n\n", warning)
	}

	renderRules(w, result.Rules)
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func renderRawPreview(w io.Writer, result *domain.AnalysisResult) {
	if len(result.RawPreview) == 0 {
		return
	}
	t := newTable(w, "Raw data")

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, preview := range result.RawPreview {
		row := make(table.Row, len(result.Columns))
		for i, col := range result.Columns {
			row[i] = preview[col]
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintln(w)
}

func renderCleanedPreview(w io.Writer, rows []domain.Transaction) {
	if len(rows) == 0 {
		return
	}
	t := newTable(w, "Cleaned data")
	t.AppendHeader(table.Row{"InvoiceNo", "InvoiceDate", "CustomerID", "Description", "Quantity", "UnitPrice", "TotalAmount"})
	for _, tx := range rows {
		t.AppendRow(table.Row{
			tx.InvoiceNo,
			tx.InvoiceDate.Format("2006-01-02 15:04"),
			tx.CustomerID,
			tx.Description,
			tx.Quantity,
			fmt.Sprintf("%.2f", tx.UnitPrice),
			fmt.Sprintf("%.2f", tx.TotalAmount),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(w)
}

func renderClusters(w io.Writer, clusters []domain.ClusterSummary) {
	t := newTable(w, "Customer segments")
	t.AppendHeader(table.Row{"Cluster", "Customers", "Mean recency", "Mean frequency", "Mean monetary"})
	total := 0
	for _, c := range clusters {
		t.AppendRow(table.Row{
			c.Cluster,
			c.Size,
			fmt.Sprintf("%.1f", c.MeanRecency),
			fmt.Sprintf("%.1f", c.MeanFrequency),
			fmt.Sprintf("%.2f", c.MeanMonetary),
		})
		total += c.Size
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
	fmt.Fprintln(w)
}

func renderRules(w io.Writer, rules []domain.AssociationRule) {
	if len(rules) == 0 {
		fmt.Fprintln(w, "No association rules met the support and lift thresholds.")
		return
	}
	t := newTable(w, fmt.Sprintf("Top %d association rules", len(rules)))
	t.AppendHeader(table.Row{"#", "Antecedents", "Consequents", "Support", "Confidence", "Lift"})
	for i, r := range rules {
		t.AppendRow(table.Row{
			i + 1,
			strings.Join(r.Antecedents, ", "),
			strings.Join(r.Consequents, ", "),
			fmt.Sprintf("%.4f", r.Support),
			fmt.Sprintf("%.4f", r.Confidence),
			fmt.Sprintf("%.4f", r.Lift),
		})
	}
	t.Render()
}
