package dataset

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

type SampledDatasetTestSuite struct {
	suite.Suite
	dense *DenseDataset
}

func (s *SampledDatasetTestSuite) SetupTest() {
	s.dense = newTestDense(s.T(), WithFeatureNames(map[FeatureID]string{0: "a", 1: "b", 2: "c"}))
}

func (s *SampledDatasetTestSuite) TestSampleQueries() {
	sample, err := SampleQueries(s.dense, []string{"7"})
	s.Require().NoError(err)

	s.True(sample.IsSampled())
	s.Equal(2, sample.NInstances())
	s.Equal([]InstanceID{0, 2}, sample.Instances())
	s.Equal(map[string][]InstanceID{"7": {0, 2}}, sample.InstancesByQuery())
	s.Equal([]float32{0, 2}, sample.Gains())
	s.Equal([]string{"7", "7"}, sample.QueryIDs())
	s.Equal([]string{"7"}, sample.Queries())
	s.Equal(3, sample.NDim())

	_, ok := sample.GetFeatureValue(1, 0)
	s.False(ok, "instance of an excluded query must not be visible")

	m := ModelFunc(func(fr FeatureRead) float64 { return fr.DotP([]float64{1, 1, 1}) })
	s.Equal([]float64{6, 24}, sample.ScoreAll(m))
}

func (s *SampledDatasetTestSuite) TestSampleQueriesUnknown() {
	_, err := SampleQueries(s.dense, []string{"7", "nope"})
	s.ErrorIs(err, rankerr.ErrNotFound)
}

func (s *SampledDatasetTestSuite) TestSampleFeatures() {
	sample, err := SampleFeatures(s.dense, []FeatureID{2, 0, 2})
	s.Require().NoError(err)

	s.Equal([]FeatureID{0, 2}, sample.Features())
	s.Equal(2, sample.NDim())
	s.Equal(4, sample.NInstances())

	_, ok := sample.GetFeatureValue(0, 1)
	s.False(ok)
	v, ok := sample.GetFeatureValue(1, 2)
	s.True(ok)
	s.Equal(6.0, v)

	// Weights stay indexed by the parent feature id; feature 1 is masked out.
	m := ModelFunc(func(fr FeatureRead) float64 { return fr.DotP([]float64{1, 100, 1}) })
	s.Equal([]float64{4, 10, 16, 22}, sample.ScoreAll(m))

	fid, err := sample.TryLookupFeature("c")
	s.Require().NoError(err)
	s.Equal(FeatureID(2), fid)

	_, err = sample.TryLookupFeature("b")
	s.ErrorIs(err, rankerr.ErrNotFound)
	_, err = sample.TryLookupFeature("1")
	s.ErrorIs(err, rankerr.ErrNotFound)

	_, err = SampleFeatures(s.dense, []FeatureID{5})
	s.ErrorIs(err, rankerr.ErrNotFound)
}

func (s *SampledDatasetTestSuite) TestNestedSampling() {
	byQuery, err := SampleQueries(s.dense, []string{"3"})
	s.Require().NoError(err)
	both, err := SampleFeatures(byQuery, []FeatureID{1})
	s.Require().NoError(err)

	s.Equal([]InstanceID{1, 3}, both.Instances())
	s.Equal([]FeatureID{1}, both.Features())

	m := ModelFunc(func(fr FeatureRead) float64 { return fr.DotP([]float64{1, 1, 1}) })
	s.Equal([]float64{5, 11}, both.ScoreAll(m))

	matrix := FeatureMatrix(both)
	r, c := matrix.Dims()
	s.Equal(2, r)
	s.Equal(1, c)
	s.Equal(11.0, matrix.At(1, 0))
}

func TestSampledDatasetTestSuite(t *testing.T) {
	suite.Run(t, new(SampledDatasetTestSuite))
}
