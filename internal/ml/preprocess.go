package ml

import (
	"fmt"
	"math"

	"loan-predictor/internal/features"
)

// NumericSpec standardizes one numeric column as (x - mean) / scale.
// A zero scale passes the value through unchanged.
type NumericSpec struct {
	Column string  `json:"column" yaml:"column"`
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Scale  float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// CategoricalSpec one-hot encodes a categorical column over Categories.
// Values outside Categories encode to all zeros.
type CategoricalSpec struct {
	Column     string   `json:"column" yaml:"column"`
	Categories []string `json:"categories" yaml:"categories"`
}

// Preprocessor maps a feature row onto the dense vector a model was fitted
// on: numeric columns first, in order, then each categorical one-hot block.
type Preprocessor struct {
	Numeric     []NumericSpec     `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Categorical []CategoricalSpec `json:"categorical,omitempty" yaml:"categorical,omitempty"`
}

// Width is the length of the encoded vector.
func (p Preprocessor) Width() int {
	w := len(p.Numeric)
	for _, c := range p.Categorical {
		w += len(c.Categories)
	}
	return w
}

// Validate checks that every column exists in the feature schema with the
// right kind and that nothing is encoded twice.
func (p Preprocessor) Validate() error {
	seen := make(map[string]bool)
	for i, n := range p.Numeric {
		if features.KindOf(n.Column) != features.NumericColumn {
			return fmt.Errorf("numeric[%d]: %q is not a numeric feature column", i, n.Column)
		}
		if seen[n.Column] {
			return fmt.Errorf("numeric[%d]: column %q encoded twice", i, n.Column)
		}
		if n.Scale < 0 || math.IsNaN(n.Scale) || math.IsNaN(n.Mean) {
			return fmt.Errorf("numeric[%d]: invalid scaling mean=%g scale=%g", i, n.Mean, n.Scale)
		}
		seen[n.Column] = true
	}
	for i, c := range p.Categorical {
		if features.KindOf(c.Column) != features.CategoricalColumn {
			return fmt.Errorf("categorical[%d]: %q is not a categorical feature column", i, c.Column)
		}
		if seen[c.Column] {
			return fmt.Errorf("categorical[%d]: column %q encoded twice", i, c.Column)
		}
		if len(c.Categories) == 0 {
			return fmt.Errorf("categorical[%d]: column %q has no categories", i, c.Column)
		}
		seen[c.Column] = true
	}
	if p.Width() == 0 {
		return fmt.Errorf("preprocessor encodes no columns")
	}
	return nil
}

// Transform encodes row.
func (p Preprocessor) Transform(row features.Row) ([]float64, error) {
	x := make([]float64, 0, p.Width())
	for _, n := range p.Numeric {
		v, ok := row.Numeric(n.Column)
		if !ok {
			return nil, fmt.Errorf("row has no numeric column %q", n.Column)
		}
		if n.Scale != 0 {
			v = (v - n.Mean) / n.Scale
		}
		x = append(x, v)
	}
	for _, c := range p.Categorical {
		v, ok := row.Categorical(c.Column)
		if !ok {
			return nil, fmt.Errorf("row has no categorical column %q", c.Column)
		}
		for _, cat := range c.Categories {
			if v == cat {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}
	return x, nil
}
