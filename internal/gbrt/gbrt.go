// Package gbrt implements least-squares gradient boosting over
// depth-limited regression trees. It is deliberately small and fully
// deterministic: no subsampling, no feature sampling, exact greedy
// splits, so repeated fits on the same rows produce the same model.
package gbrt

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Params are the boosting hyperparameters.
type Params struct {
	NumTrees       int
	MaxDepth       int
	LearningRate   float64
	MinSamplesLeaf int
}

// DefaultParams mirrors the hyperparameters the offline training jobs
// use: 300 trees of depth 4 with a 0.05 learning rate.
func DefaultParams() Params {
	return Params{
		NumTrees:       300,
		MaxDepth:       4,
		LearningRate:   0.05,
		MinSamplesLeaf: 2,
	}
}

// Model is a fitted boosting ensemble.
type Model struct {
	base  float64
	lr    float64
	trees []*node
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Fit trains an ensemble on a feature matrix X and targets y.
func Fit(x [][]float64, y []float64, params Params) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("gbrt: need matching non-empty x (%d) and y (%d)", len(x), len(y))
	}
	if params.NumTrees <= 0 || params.MaxDepth <= 0 || params.LearningRate <= 0 {
		return nil, fmt.Errorf("gbrt: invalid params %+v", params)
	}
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}

	m := &Model{
		base: stat.Mean(y, nil),
		lr:   params.LearningRate,
	}

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.base
	}

	residual := make([]float64, len(y))
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}

	for t := 0; t < params.NumTrees; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}

		tree := buildTree(x, residual, indices, params.MaxDepth, params.MinSamplesLeaf)
		m.trees = append(m.trees, tree)

		for i := range pred {
			pred[i] += m.lr * tree.predict(x[i])
		}
	}

	return m, nil
}

// Predict evaluates the ensemble on a single feature vector.
func (m *Model) Predict(features []float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.lr * t.predict(features)
	}
	return out
}

func (n *node) predict(features []float64) float64 {
	for !n.leaf {
		if features[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func buildTree(x [][]float64, y []float64, indices []int, depth, minLeaf int) *node {
	if depth == 0 || len(indices) < 2*minLeaf {
		return &node{leaf: true, value: meanAt(y, indices)}
	}

	feature, threshold, ok := bestSplit(x, y, indices, minLeaf)
	if !ok {
		return &node{leaf: true, value: meanAt(y, indices)}
	}

	var left, right []int
	for _, i := range indices {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(x, y, left, depth-1, minLeaf),
		right:     buildTree(x, y, right, depth-1, minLeaf),
	}
}

// bestSplit scans every feature and every distinct boundary for the
// split minimizing the summed squared error of the two children.
func bestSplit(x [][]float64, y []float64, indices []int, minLeaf int) (int, float64, bool) {
	nFeatures := len(x[indices[0]])

	bestScore := sseAt(y, indices)
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, len(indices))
	totalSum, totalSq := sumsAt(y, indices)

	for f := 0; f < nFeatures; f++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		// Running sums from the left end let each candidate split be
		// scored in O(1).
		var leftSum, leftSq float64

		for pos := 0; pos < len(order)-1; pos++ {
			yi := y[order[pos]]
			leftSum += yi
			leftSq += yi * yi

			cur, next := x[order[pos]][f], x[order[pos+1]][f]
			if cur == next {
				continue
			}
			nLeft, nRight := pos+1, len(order)-pos-1
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			score := (leftSq - leftSum*leftSum/float64(nLeft)) +
				(rightSq - rightSum*rightSum/float64(nRight))

			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	total := 0.0
	for _, i := range indices {
		total += y[i]
	}
	return total / float64(len(indices))
}

func sseAt(y []float64, indices []int) float64 {
	mean := meanAt(y, indices)
	sse := 0.0
	for _, i := range indices {
		d := y[i] - mean
		sse += d * d
	}
	return sse
}

func sumsAt(y []float64, indices []int) (sum, sq float64) {
	for _, i := range indices {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sum, sq
}
