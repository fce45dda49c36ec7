package dataprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"rfmbasket/internal/config"
	"rfmbasket/pkg/contracts/domain"
)

// Segmentation is the clustered copy of the RFM table plus its summaries.
type Segmentation struct {
	Customers []domain.CustomerSegment
	Summary   []domain.ClusterSummary
	Scatter   []domain.ScatterPoint
}

// Segmenter standardizes RFM features, clusters them and projects them to
// two dimensions. The projection never influences the labels.
type Segmenter struct {
	Clusterer    Clusterer
	Projector    Projector
	MinCustomers int
}

// NewSegmenter wires the default k-means and PCA strategies.
func NewSegmenter() *Segmenter {
	return &Segmenter{
		Clusterer:    NewKMeans(),
		Projector:    NewPCA(),
		MinCustomers: config.ClusterCount,
	}
}

// Segment returns ErrInsufficientDataForClustering when there are fewer
// customers than clusters; the input is left untouched in that case.
func (s *Segmenter) Segment(customers []domain.CustomerSegment) (*Segmentation, error) {
	if len(customers) < s.MinCustomers {
		return nil, fmt.Errorf("%d customers, need at least %d: %w",
			len(customers), s.MinCustomers, ErrInsufficientDataForClustering)
	}

	features := make([][]float64, len(customers))
	for i, c := range customers {
		features[i] = c.Features()
	}
	scaled := Standardize(features)

	labels, err := s.Clusterer.Cluster(scaled)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}
	if len(labels) != len(customers) {
		return nil, fmt.Errorf("clusterer returned %d labels for %d customers", len(labels), len(customers))
	}

	coords, err := s.Projector.Project(scaled)
	if err != nil {
		return nil, fmt.Errorf("projection failed: %w", err)
	}

	out := &Segmentation{
		Customers: make([]domain.CustomerSegment, len(customers)),
		Scatter:   make([]domain.ScatterPoint, len(customers)),
	}
	for i, c := range customers {
		label := labels[i]
		x, y := coords[i][0], coords[i][1]
		c.Cluster = &label
		c.PCA1 = &x
		c.PCA2 = &y
		out.Customers[i] = c
		out.Scatter[i] = domain.ScatterPoint{CustomerID: c.CustomerID, X: x, Y: y, Cluster: label}
	}
	out.Summary = SummarizeClusters(out.Customers)

	return out, nil
}

// Standardize rescales every column to zero mean and unit population
// variance. Constant columns are only centered.
func Standardize(features [][]float64) [][]float64 {
	if len(features) == 0 {
		return nil
	}
	dim := len(features[0])
	out := make([][]float64, len(features))
	for i := range out {
		out[i] = make([]float64, dim)
	}

	col := make([]float64, len(features))
	for j := 0; j < dim; j++ {
		for i, row := range features {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := range features {
			out[i][j] = (col[i] - mean) / std
		}
	}
	return out
}

// SummarizeClusters averages recency, frequency and monetary per cluster,
// rounded to two decimals. Only non-empty clusters appear, in label order.
func SummarizeClusters(customers []domain.CustomerSegment) []domain.ClusterSummary {
	type acc struct {
		r, f, m float64
		n       int
	}
	byLabel := make(map[int]*acc)
	maxLabel := -1
	for _, c := range customers {
		if c.Cluster == nil {
			continue
		}
		a, ok := byLabel[*c.Cluster]
		if !ok {
			a = &acc{}
			byLabel[*c.Cluster] = a
		}
		a.r += float64(c.Recency)
		a.f += float64(c.Frequency)
		a.m += c.Monetary
		a.n++
		if *c.Cluster > maxLabel {
			maxLabel = *c.Cluster
		}
	}

	summary := make([]domain.ClusterSummary, 0, len(byLabel))
	for label := 0; label <= maxLabel; label++ {
		a, ok := byLabel[label]
		if !ok {
			continue
		}
		n := float64(a.n)
		summary = append(summary, domain.ClusterSummary{
			Cluster:       label,
			MeanRecency:   round2(a.r / n),
			MeanFrequency: round2(a.f / n),
			MeanMonetary:  round2(a.m / n),
			Size:          a.n,
		})
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
