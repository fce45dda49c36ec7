package exporter

import (
	"io"
	"strings"

	"rfmbasket/pkg/contracts/domain"
)

var (
	rfmHeaders     = []string{"CustomerID", "Recency", "Frequency", "Monetary"}
	clusterHeaders = []string{"Cluster", "PCA1", "PCA2"}
	ruleHeaders    = []string{"Antecedents", "Consequents", "Support", "Confidence", "Lift", "Leverage"}
)

// SegmentHeaders returns the export columns. Cluster and projection columns
// are only present when segmentation ran.
func SegmentHeaders(segmented bool) []string {
	headers := append([]string{}, rfmHeaders...)
	if segmented {
		headers = append(headers, clusterHeaders...)
	}
	return headers
}

// SegmentRecords renders one CSV row per customer, in the given order.
func SegmentRecords(customers []domain.CustomerSegment, segmented bool) [][]string {
	records := make([][]string, 0, len(customers))
	for _, c := range customers {
		row := []string{
			c.CustomerID,
			formatInt(c.Recency),
			formatInt(c.Frequency),
			formatFloat(c.Monetary),
		}
		if segmented {
			row = append(row, optionalInt(c.Cluster), optionalCoord(c.PCA1), optionalCoord(c.PCA2))
		}
		records = append(records, row)
	}
	return records
}

// WriteSegments writes the customer segments table of a run.
func (w *CSVWriter) WriteSegments(out io.Writer, result *domain.AnalysisResult) error {
	return w.Write(out, WriteOptions{
		Headers: SegmentHeaders(result.Segmented),
		Records: SegmentRecords(result.Customers, result.Segmented),
	})
}

// ExportSegments writes the customer segments table to path.
func (w *CSVWriter) ExportSegments(path string, result *domain.AnalysisResult) error {
	return w.WriteCSV(path, WriteOptions{
		Headers: SegmentHeaders(result.Segmented),
		Records: SegmentRecords(result.Customers, result.Segmented),
	})
}

// RuleRecords renders association rules with items joined by ", ".
func RuleRecords(rules []domain.AssociationRule) [][]string {
	records := make([][]string, 0, len(rules))
	for _, r := range rules {
		records = append(records, []string{
			strings.Join(r.Antecedents, ", "),
			strings.Join(r.Consequents, ", "),
			formatFloat(r.Support),
			formatFloat(r.Confidence),
			formatFloat(r.Lift),
			formatFloat(r.Leverage),
		})
	}
	return records
}

// ExportRules writes the ranked rules of a run to path.
func (w *CSVWriter) ExportRules(path string, rules []domain.AssociationRule) error {
	return w.WriteCSV(path, WriteOptions{
		Headers: ruleHeaders,
		Records: RuleRecords(rules),
	})
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return formatInt(*v)
}

func optionalCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
