// Package exporter writes analysis results as CSV.
//
// CSVWriter encodes headers and records to any io.Writer (the HTTP download)
// or to a file (the CLI --out flag), optionally with a UTF-8 BOM for Excel.
//
// The customer segments table has the columns
//
//	CustomerID,Recency,Frequency,Monetary[,Cluster,PCA1,PCA2]
//
// where the bracketed columns are only written when segmentation ran.
// Monetary is printed with two decimals and the projection with six.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	if err := w.ExportSegments("customer_segments.csv", result); err != nil {
//		return err
//	}
package exporter
