// Package dataprocessing turns an uploaded retail transaction table into
// customer segments and product association rules.
//
// # Architecture
//
// The pipeline is a sequence of small stages:
//
//  1. Ingestion: ReadTable parses xlsx or csv input and ValidateColumns checks
//     for InvoiceNo, InvoiceDate, CustomerID, Quantity, UnitPrice and Description.
//  2. Cleaning: Clean drops rows without a customer or with a non-positive
//     quantity or price, parses dates and derives TotalAmount.
//  3. RFM: AggregateRFM computes recency, frequency and monetary per customer.
//  4. Segmentation: Segmenter standardizes the RFM features, clusters them
//     (KMeans, k=4, seed 42) and projects them to two dimensions (PCA).
//  5. Basket encoding: EncodeBaskets builds the invoice x item presence matrix.
//  6. Rule mining: AprioriMiner finds itemsets with support >= 0.02 and keeps
//     rules with lift >= 1.
//
// Stages 3-4 and 5-6 only read the cleaned transactions and run concurrently.
//
// # Usage
//
//	p := dataprocessing.NewProcessor(dataprocessing.WithLogger(logger))
//	result, err := p.Run(ctx, file, "online_retail.xlsx")
//	if err != nil {
//	    var missing *dataprocessing.MissingColumnsError
//	    if errors.As(err, &missing) {
//	        // report missing.Missing to the user
//	    }
//	    return err
//	}
//
// # Strategies
//
// Clustering, projection and rule mining sit behind the Clusterer, Projector
// and RuleMiner interfaces and can be replaced with WithSegmenter and
// WithRuleMiner.
//
// # Error Handling
//
// MissingColumnsError, DateParseError and ParseError abort a run.
// ErrInsufficientDataForClustering is never returned by Run; it becomes a
// warning on the result and the segmentation stage is reported as skipped.
// An empty rule set is a valid result.
package dataprocessing
