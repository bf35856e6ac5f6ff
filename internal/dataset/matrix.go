package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FeatureMatrix copies the visible features into a gonum matrix with one row
// per entry of Instances and one column per entry of Features. Features not
// visible for an instance are stored as 0. It returns nil for an empty dataset.
func FeatureMatrix(ds RankingDataset) *mat.Dense {
	instances := ds.Instances()
	features := ds.Features()
	if len(instances) == 0 || len(features) == 0 {
		return nil
	}

	m := mat.NewDense(len(instances), len(features), nil)
	for r, id := range instances {
		for c, fid := range features {
			if v, ok := ds.GetFeatureValue(id, fid); ok {
				m.Set(r, c, v)
			}
		}
	}
	return m
}

// FeatureSummary holds the distribution of one feature column.
type FeatureSummary struct {
	ID     FeatureID `json:"id"`
	Name   string    `json:"name"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"std_dev"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
}

// Describe summarizes every visible feature of ds, in Features order. The
// standard deviation of a single instance is 0.
func Describe(ds RankingDataset) []FeatureSummary {
	m := FeatureMatrix(ds)
	if m == nil {
		return nil
	}

	rows, _ := m.Dims()
	out := make([]FeatureSummary, 0, len(ds.Features()))
	for c, fid := range ds.Features() {
		col := mat.Col(nil, c, m)
		mean, std := stat.MeanStdDev(col, nil)
		if rows < 2 {
			std = 0
		}
		out = append(out, FeatureSummary{
			ID:     fid,
			Name:   ds.FeatureName(fid),
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(col),
			Max:    floats.Max(col),
		})
	}
	return out
}
