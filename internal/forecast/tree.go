package forecast

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// TreeOptions bounds regression tree growth. Zero values grow the tree until
// every leaf is pure or holds a single sample.
type TreeOptions struct {
	MaxDepth       int // 0 = unlimited
	MinSamplesLeaf int // minimum samples per leaf, default 1
}

// Tree fits a CART regression tree on the zero-based week index. Indices past
// the training window fall into the right-most leaf, so forecasts are flat at
// that leaf's mean.
type Tree struct {
	opts TreeOptions
}

// NewTree returns a tree model with opts, filling defaults.
func NewTree(opts TreeOptions) Tree {
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	return Tree{opts: opts}
}

type treeNode struct {
	value     float64 // mean of training targets in this node
	samples   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

// TreeFit is a fitted regression tree.
type TreeFit struct {
	root      *treeNode
	lastIndex int
	lastDate  time.Time
}

func (t Tree) Fit(training domain.WeeklySeries) (Fitted, error) {
	xs, ys, err := observations(training)
	if err != nil {
		return nil, err
	}
	return &TreeFit{
		root:      t.grow(xs, ys, 0),
		lastIndex: len(training) - 1,
		lastDate:  training.Last(),
	}, nil
}

// grow builds a subtree over xs (strictly increasing) and ys.
func (t Tree) grow(xs, ys []float64, depth int) *treeNode {
	n := len(ys)
	sum := floats.Sum(ys)
	node := &treeNode{value: sum / float64(n), samples: n}

	if n < 2*t.opts.MinSamplesLeaf || (t.opts.MaxDepth > 0 && depth >= t.opts.MaxDepth) {
		return node
	}

	sumSq := floats.Dot(ys, ys)
	parentSSE := sumSq - sum*sum/float64(n)
	if parentSSE <= 1e-12 {
		return node
	}

	best, bestSSE := -1, parentSSE
	var leftSum, leftSq float64
	for i := 1; i < n; i++ {
		leftSum += ys[i-1]
		leftSq += ys[i-1] * ys[i-1]
		if i < t.opts.MinSamplesLeaf || n-i < t.opts.MinSamplesLeaf {
			continue
		}
		nl, nr := float64(i), float64(n-i)
		rightSum, rightSq := sum-leftSum, sumSq-leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < bestSSE-1e-12 {
			best, bestSSE = i, sse
		}
	}
	if best < 0 {
		return node
	}

	node.threshold = (xs[best-1] + xs[best]) / 2
	node.left = t.grow(xs[:best], ys[:best], depth+1)
	node.right = t.grow(xs[best:], ys[best:], depth+1)
	return node
}

func (f *TreeFit) predictAt(x float64) float64 {
	n := f.root
	for !n.isLeaf() {
		if x <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Predict evaluates the tree at indices past the training window.
func (f *TreeFit) Predict(horizon int) []Prediction {
	dates := futureDates(f.lastDate, horizon)
	out := make([]Prediction, len(dates))
	for h, d := range dates {
		out[h] = Prediction{Date: d, Value: f.predictAt(float64(f.lastIndex + h + 1))}
	}
	return out
}

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (f *TreeFit) Depth() int {
	return depth(f.root)
}

// Leaves returns the number of leaves.
func (f *TreeFit) Leaves() int {
	return leaves(f.root)
}

func depth(n *treeNode) int {
	if n.isLeaf() {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

func leaves(n *treeNode) int {
	if n.isLeaf() {
		return 1
	}
	return leaves(n.left) + leaves(n.right)
}
