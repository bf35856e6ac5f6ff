// Package model contains the scoring capabilities used to rank dataset instances.
// Models are opaque in-memory handles; nothing here is trained or persisted.
package model

import (
	"github.com/tensorplex-labs/fastrank/internal/dataset"
)

// Linear scores an instance as the dot product of its features with Weights,
// indexed by FeatureID.
type Linear struct {
	Weights []float64
}

var _ dataset.Model = (*Linear)(nil)

func NewLinear(weights []float64) *Linear {
	return &Linear{Weights: weights}
}

func (m *Linear) Score(features dataset.FeatureRead) float64 {
	return features.DotP(m.Weights)
}

// SingleFeature scores an instance by one feature value, optionally negated.
// Instances without the feature score 0.
type SingleFeature struct {
	Feature dataset.FeatureID
	Negate  bool
}

var _ dataset.Model = SingleFeature{}

func (m SingleFeature) Score(features dataset.FeatureRead) float64 {
	v, ok := features.Get(m.Feature)
	if !ok {
		return 0
	}
	if m.Negate {
		return -v
	}
	return v
}

// ForFeature looks up nameOrNum in ds and returns a SingleFeature model for it.
func ForFeature(ds dataset.RankingDataset, nameOrNum string) (SingleFeature, error) {
	fid, err := ds.TryLookupFeature(nameOrNum)
	if err != nil {
		return SingleFeature{}, err
	}
	return SingleFeature{Feature: fid}, nil
}
