package domain

// CustomerSegment holds the RFM metrics of one customer and, when segmentation
// ran, the cluster label and 2-D projection. The optional fields stay nil when
// there were too few customers to cluster.
type CustomerSegment struct {
	CustomerID string   `json:"customer_id"`
	Recency    int      `json:"recency"`
	Frequency  int      `json:"frequency"`
	Monetary   float64  `json:"monetary"`
	Cluster    *int     `json:"cluster,omitempty"`
	PCA1       *float64 `json:"pca1,omitempty"`
	PCA2       *float64 `json:"pca2,omitempty"`
}

// Features returns the recency, frequency and monetary values as a vector.
func (c CustomerSegment) Features() []float64 {
	return []float64{float64(c.Recency), float64(c.Frequency), c.Monetary}
}

// ClusterSummary aggregates the customers assigned to one cluster.
type ClusterSummary struct {
	Cluster       int     `json:"cluster"`
	MeanRecency   float64 `json:"mean_recency"`
	MeanFrequency float64 `json:"mean_frequency"`
	MeanMonetary  float64 `json:"mean_monetary"`
	Size          int     `json:"size"`
}

// ScatterPoint is one customer in the projected plane.
type ScatterPoint struct {
	CustomerID string  `json:"customer_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Cluster    int     `json:"cluster"`
}
