package ml

import (
	"fmt"
	"math"

	"loan-predictor/internal/features"
)

// leafChild marks a node without children.
const leafChild = -1

// TreeNode is one node of a fitted binary decision tree. Splits send a
// sample left when x[Feature] <= Threshold. Leaves have Left == Right == -1
// and carry the class weights [rejected, approved] in Value.
type TreeNode struct {
	Feature   int       `json:"feature" yaml:"feature"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Left      int       `json:"left" yaml:"left"`
	Right     int       `json:"right" yaml:"right"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

func (n TreeNode) isLeaf() bool {
	return n.Left == leafChild && n.Right == leafChild
}

// TreeParams holds the nodes of a fitted tree, root first.
type TreeParams struct {
	Nodes []TreeNode `json:"nodes" yaml:"nodes"`
}

// TreeModel scores P(approved) as the approved share of the reached leaf.
type TreeModel struct {
	name  string
	pre   Preprocessor
	nodes []TreeNode
}

// NewTreeModel checks that the node table forms a tree rooted at node 0
// whose splits address the preprocessed vector.
func NewTreeModel(name string, pre Preprocessor, params TreeParams) (*TreeModel, error) {
	if err := pre.Validate(); err != nil {
		return nil, fmt.Errorf("preprocessor: %w", err)
	}
	if len(params.Nodes) == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}

	width := pre.Width()
	nodes := params.Nodes
	visited := make([]bool, len(nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			return nil, fmt.Errorf("node %d reached twice", i)
		}
		visited[i] = true

		n := nodes[i]
		if n.isLeaf() {
			if err := checkLeaf(n); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			continue
		}
		if n.Left < 0 || n.Left >= len(nodes) || n.Right < 0 || n.Right >= len(nodes) {
			return nil, fmt.Errorf("node %d: children (%d, %d) out of range", i, n.Left, n.Right)
		}
		if n.Feature < 0 || n.Feature >= width {
			return nil, fmt.Errorf("node %d: feature index %d out of range [0, %d)", i, n.Feature, width)
		}
		if math.IsNaN(n.Threshold) {
			return nil, fmt.Errorf("node %d: threshold is NaN", i)
		}
		stack = append(stack, n.Left, n.Right)
	}

	return &TreeModel{name: name, pre: pre, nodes: nodes}, nil
}

func checkLeaf(n TreeNode) error {
	if len(n.Value) != 2 {
		return fmt.Errorf("leaf value must have 2 classes, got %d", len(n.Value))
	}
	if n.Value[0] < 0 || n.Value[1] < 0 || math.IsNaN(n.Value[0]) || math.IsNaN(n.Value[1]) {
		return fmt.Errorf("leaf value must be non-negative")
	}
	if n.Value[0]+n.Value[1] <= 0 {
		return fmt.Errorf("leaf value sums to zero")
	}
	return nil
}

func (m *TreeModel) Name() string { return m.name }

func (m *TreeModel) PredictProbability(row features.Row) (float64, error) {
	x, err := m.pre.Transform(row)
	if err != nil {
		return 0, err
	}

	i := 0
	for steps := 0; steps <= len(m.nodes); steps++ {
		n := m.nodes[i]
		if n.isLeaf() {
			return n.Value[1] / (n.Value[0] + n.Value[1]), nil
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, fmt.Errorf("tree walk did not terminate")
}
