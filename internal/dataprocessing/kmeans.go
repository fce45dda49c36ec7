package dataprocessing

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rfmbasket/internal/config"
)

// Clusterer assigns every feature row a cluster label in [0, k).
type Clusterer interface {
	Cluster(features [][]float64) ([]int, error)
}

// KMeans is Lloyd's algorithm with k-means++ seeding. A fixed Seed makes the
// labels reproducible for identical input.
type KMeans struct {
	K         int
	Seed      int64
	MaxIter   int
	Tolerance float64
}

// NewKMeans returns the pipeline's clusterer: four clusters, seed 42.
func NewKMeans() *KMeans {
	return &KMeans{
		K:         config.ClusterCount,
		Seed:      config.ClusterSeed,
		MaxIter:   config.KMeansMaxIter,
		Tolerance: config.KMeansTolerance,
	}
}

// Cluster implements Clusterer.
func (km *KMeans) Cluster(features [][]float64) ([]int, error) {
	labels, _, err := km.fit(features)
	return labels, err
}

func (km *KMeans) fit(features [][]float64) ([]int, [][]float64, error) {
	n := len(features)
	if km.K <= 0 {
		return nil, nil, fmt.Errorf("kmeans: cluster count must be positive, got %d", km.K)
	}
	if n < km.K {
		return nil, nil, fmt.Errorf("kmeans: %d samples for %d clusters: %w", n, km.K, ErrInsufficientDataForClustering)
	}
	dim := len(features[0])
	for i, row := range features {
		if len(row) != dim {
			return nil, nil, fmt.Errorf("kmeans: row %d has %d features, want %d", i, len(row), dim)
		}
	}

	rng := rand.New(rand.NewSource(km.Seed))
	centers := seedPlusPlus(features, km.K, rng)
	labels := make([]int, n)
	tol := km.Tolerance * meanVariance(features)

	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = config.KMeansMaxIter
	}

	for iter := 0; iter < maxIter; iter++ {
		assign(features, centers, labels)
		next := recompute(features, labels, km.K, centers)

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}
	assign(features, centers, labels)

	return labels, centers, nil
}

// seedPlusPlus picks initial centers with probability proportional to the
// squared distance from the nearest center already chosen.
func seedPlusPlus(features [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(features)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(features[rng.Intn(n)]))

	d2 := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, p := range features {
			d2[i] = nearest(p, centers)
			total += d2[i]
		}

		idx := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		}
		centers = append(centers, clone(features[idx]))
	}
	return centers
}

// assign labels every point with its nearest center; ties go to the lower label.
func assign(features, centers [][]float64, labels []int) {
	for i, p := range features {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}
}

// recompute returns the cluster means. A cluster left empty takes over the
// point farthest from its current center.
func recompute(features [][]float64, labels []int, k int, prev [][]float64) [][]float64 {
	dim := len(features[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range features {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range features {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := sqDist(p, prev[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			copy(sums[c], prev[c])
			counts[c] = 1
			continue
		}
		old := labels[far]
		floats.Sub(sums[old], features[far])
		counts[old]--
		copy(sums[c], features[far])
		counts[c] = 1
		labels[far] = c
	}

	for c := range sums {
		floats.Scale(1/float64(counts[c]), sums[c])
	}
	return sums
}

func nearest(p []float64, centers [][]float64) float64 {
	best := math.Inf(1)
	for _, c := range centers {
		if d := sqDist(p, c); d < best {
			best = d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func meanVariance(features [][]float64) float64 {
	dim := len(features[0])
	col := make([]float64, len(features))
	total := 0.0
	for j := 0; j < dim; j++ {
		for i, row := range features {
			col[i] = row[j]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		total += std * std
	}
	return total / float64(dim)
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
