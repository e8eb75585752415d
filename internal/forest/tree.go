package forest

import (
	"math/rand"
	"sort"
)

// node is either a split (left/right set) or a leaf carrying value.
// Regression leaves hold one mean; classification leaves hold class fractions.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     []float64
}

func (n *node) leaf() bool {
	return n.left == nil
}

func (n *node) predict(x []float64) []float64 {
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// criterion scores candidate partitions for one task.
type criterion interface {
	// leafValue summarises the samples that reach a leaf.
	leafValue(samples []int) []float64
	// pure reports whether no split can improve the samples.
	pure(samples []int) bool
	// bestSplit scans the distinct values of one feature and returns the
	// threshold with the highest proxy score, or ok=false if none is valid.
	bestSplit(X [][]float64, samples []int, feature int, minLeaf int) (threshold, score float64, ok bool)
}

type treeBuilder struct {
	X           [][]float64
	crit        criterion
	maxFeatures int
	minSplit    int
	minLeaf     int
	rng         *rand.Rand
	features    []int
}

func (b *treeBuilder) build(samples []int) *node {
	if len(samples) < b.minSplit || len(samples) < 2*b.minLeaf || b.crit.pure(samples) {
		return &node{value: b.crit.leafValue(samples)}
	}

	feature, threshold, ok := b.chooseSplit(samples)
	if !ok {
		return &node{value: b.crit.leafValue(samples)}
	}

	// Partition in place: left keeps values <= threshold.
	i, j := 0, len(samples)-1
	for i <= j {
		if b.X[samples[i]][feature] <= threshold {
			i++
		} else {
			samples[i], samples[j] = samples[j], samples[i]
			j--
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.build(samples[:i]),
		right:     b.build(samples[i:]),
	}
}

// chooseSplit draws features in random order until maxFeatures non-constant
// ones have been evaluated, keeping the best split seen.
func (b *treeBuilder) chooseSplit(samples []int) (int, float64, bool) {
	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})

	bestFeature, bestThreshold, bestScore := -1, 0.0, 0.0
	visited := 0
	for _, f := range b.features {
		if visited >= b.maxFeatures {
			break
		}
		if constant(b.X, samples, f) {
			continue
		}
		visited++

		threshold, score, ok := b.crit.bestSplit(b.X, samples, f, b.minLeaf)
		if ok && (bestFeature < 0 || score > bestScore) {
			bestFeature, bestThreshold, bestScore = f, threshold, score
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func constant(X [][]float64, samples []int, feature int) bool {
	first := X[samples[0]][feature]
	for _, s := range samples[1:] {
		if X[s][feature] != first {
			return false
		}
	}
	return true
}

// distinctValues groups samples by feature value, ascending.
func distinctValues(X [][]float64, samples []int, feature int) ([]float64, map[float64][]int) {
	groups := make(map[float64][]int)
	for _, s := range samples {
		v := X[s][feature]
		groups[v] = append(groups[v], s)
	}
	values := make([]float64, 0, len(groups))
	for v := range groups {
		values = append(values, v)
	}
	sort.Float64s(values)
	return values, groups
}

// squaredError is the regression criterion; maximising
// sumL²/nL + sumR²/nR minimises the summed within-child variance.
type squaredError struct {
	y []float64
}

func (c squaredError) leafValue(samples []int) []float64 {
	var sum float64
	for _, s := range samples {
		sum += c.y[s]
	}
	return []float64{sum / float64(len(samples))}
}

func (c squaredError) pure(samples []int) bool {
	first := c.y[samples[0]]
	for _, s := range samples[1:] {
		if c.y[s] != first {
			return false
		}
	}
	return true
}

func (c squaredError) bestSplit(X [][]float64, samples []int, feature int, minLeaf int) (float64, float64, bool) {
	values, groups := distinctValues(X, samples, feature)

	var total float64
	for _, s := range samples {
		total += c.y[s]
	}

	n := len(samples)
	var leftSum float64
	leftN := 0
	best, bestThreshold, found := 0.0, 0.0, false
	for k := 0; k < len(values)-1; k++ {
		for _, s := range groups[values[k]] {
			leftSum += c.y[s]
		}
		leftN += len(groups[values[k]])
		rightN := n - leftN
		if leftN < minLeaf || rightN < minLeaf {
			continue
		}
		rightSum := total - leftSum
		score := leftSum*leftSum/float64(leftN) + rightSum*rightSum/float64(rightN)
		if !found || score > best {
			best, bestThreshold, found = score, midpoint(values[k], values[k+1]), true
		}
	}
	return bestThreshold, best, found
}

// gini is the classification criterion over integer class codes; maximising
// Σ countL²/nL + Σ countR²/nR minimises the weighted child impurity.
type gini struct {
	y       []int
	classes int
}

func (c gini) leafValue(samples []int) []float64 {
	dist := make([]float64, c.classes)
	for _, s := range samples {
		dist[c.y[s]]++
	}
	n := float64(len(samples))
	for i := range dist {
		dist[i] /= n
	}
	return dist
}

func (c gini) pure(samples []int) bool {
	first := c.y[samples[0]]
	for _, s := range samples[1:] {
		if c.y[s] != first {
			return false
		}
	}
	return true
}

func (c gini) bestSplit(X [][]float64, samples []int, feature int, minLeaf int) (float64, float64, bool) {
	values, groups := distinctValues(X, samples, feature)

	right := make([]float64, c.classes)
	for _, s := range samples {
		right[c.y[s]]++
	}
	left := make([]float64, c.classes)

	// Running Σ count² for both sides, updated per moved sample.
	var leftSq, rightSq float64
	for _, v := range right {
		rightSq += v * v
	}

	n := len(samples)
	leftN := 0
	best, bestThreshold, found := 0.0, 0.0, false
	for k := 0; k < len(values)-1; k++ {
		for _, s := range groups[values[k]] {
			cls := c.y[s]
			leftSq += 2*left[cls] + 1
			left[cls]++
			rightSq -= 2*right[cls] - 1
			right[cls]--
		}
		leftN += len(groups[values[k]])
		rightN := n - leftN
		if leftN < minLeaf || rightN < minLeaf {
			continue
		}
		score := leftSq/float64(leftN) + rightSq/float64(rightN)
		if !found || score > best {
			best, bestThreshold, found = score, midpoint(values[k], values[k+1]), true
		}
	}
	return bestThreshold, best, found
}

func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	// Guard against rounding up to b for adjacent floats.
	if m >= b {
		return a
	}
	return m
}
