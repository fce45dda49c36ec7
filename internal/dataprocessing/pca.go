package dataprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"rfmbasket/internal/config"
)

// Projector maps feature rows onto a lower-dimensional plane.
type Projector interface {
	Project(features [][]float64) ([][]float64, error)
}

// PCA projects onto the leading principal components. Each component's sign
// is fixed so that its largest-magnitude loading is positive.
type PCA struct {
	Components int
}

// NewPCA returns the two-component projector used for the scatter plot.
func NewPCA() *PCA {
	return &PCA{Components: config.PCAComponents}
}

// Project implements Projector.
func (p *PCA) Project(features [][]float64) ([][]float64, error) {
	n := len(features)
	if n == 0 {
		return nil, fmt.Errorf("pca: no samples")
	}
	d := len(features[0])
	if p.Components <= 0 || p.Components > d {
		return nil, fmt.Errorf("pca: %d components requested for %d features", p.Components, d)
	}
	if n < p.Components {
		return nil, fmt.Errorf("pca: %d samples for %d components", n, p.Components)
	}

	x := mat.NewDense(n, d, nil)
	for i, row := range features {
		if len(row) != d {
			return nil, fmt.Errorf("pca: row %d has %d features, want %d", i, len(row), d)
		}
		x.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("pca: decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	basis := mat.DenseCopyOf(vecs.Slice(0, d, 0, p.Components))
	flipSigns(basis)

	centered := mat.NewDense(n, d, nil)
	centered.Copy(x)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(centered, basis)

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &proj)
	}
	return out, nil
}

func flipSigns(basis *mat.Dense) {
	rows, cols := basis.Dims()
	for j := 0; j < cols; j++ {
		maxAbs, sign := 0.0, 1.0
		for i := 0; i < rows; i++ {
			if v := basis.At(i, j); math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
				sign = math.Copysign(1, v)
			}
		}
		if sign < 0 {
			for i := 0; i < rows; i++ {
				basis.Set(i, j, -basis.At(i, j))
			}
		}
	}
}
