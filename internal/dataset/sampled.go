package dataset

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

// SampledDataset is a view over a subset of another dataset's instances
// and/or features. Instance and feature ids keep the parent's numbering, so
// model weights stay indexed by the parent's FeatureID.
type SampledDataset struct {
	parent     RankingDataset
	instances  []InstanceID
	features   []FeatureID
	instanceIn map[InstanceID]struct{}
	featureIn  map[FeatureID]struct{}
	allFeats   bool
}

var _ RankingDataset = (*SampledDataset)(nil)

func newSampled(parent RankingDataset, instances []InstanceID, features []FeatureID, allFeats bool) *SampledDataset {
	s := &SampledDataset{
		parent:     parent,
		instances:  instances,
		features:   features,
		instanceIn: make(map[InstanceID]struct{}, len(instances)),
		featureIn:  make(map[FeatureID]struct{}, len(features)),
		allFeats:   allFeats,
	}
	for _, id := range instances {
		s.instanceIn[id] = struct{}{}
	}
	for _, fid := range features {
		s.featureIn[fid] = struct{}{}
	}
	log.Debug().
		Int("instances", len(instances)).
		Int("features", len(features)).
		Msg("built sampled dataset")
	return s
}

// SampleQueries keeps only the instances of the given queries. Unknown
// query ids fail the whole sample.
func SampleQueries(ds RankingDataset, qids []string) (*SampledDataset, error) {
	groups := ds.InstancesByQuery()
	var instances []InstanceID
	seen := make(map[string]bool, len(qids))
	for _, qid := range qids {
		group, ok := groups[qid]
		if !ok {
			return nil, rankerr.NotFound("query %q", qid)
		}
		if seen[qid] {
			continue
		}
		seen[qid] = true
		instances = append(instances, group...)
	}
	slices.Sort(instances)
	return newSampled(ds, instances, ds.Features(), true), nil
}

// SampleFeatures hides every feature not listed. Unknown feature ids fail
// the whole sample.
func SampleFeatures(ds RankingDataset, fids []FeatureID) (*SampledDataset, error) {
	available := make(map[FeatureID]struct{})
	for _, fid := range ds.Features() {
		available[fid] = struct{}{}
	}
	features := make([]FeatureID, 0, len(fids))
	for _, fid := range fids {
		if _, ok := available[fid]; !ok {
			return nil, rankerr.NotFound("feature %d", fid)
		}
		features = append(features, fid)
	}
	slices.Sort(features)
	features = slices.Compact(features)
	return newSampled(ds, ds.Instances(), features, len(features) == len(available)), nil
}

// sampledInstance masks the parent view down to the sampled features.
type sampledInstance struct {
	dataset *SampledDataset
	id      InstanceID
}

func (s sampledInstance) Get(fid FeatureID) (float64, bool) {
	return s.dataset.GetFeatureValue(s.id, fid)
}

func (s sampledInstance) DotP(weights []float64) float64 {
	var sum float64
	for _, fid := range s.dataset.features {
		if fid.Index() >= len(weights) {
			break
		}
		if v, ok := s.dataset.parent.GetFeatureValue(s.id, fid); ok {
			sum += weights[fid.Index()] * v
		}
	}
	return sum
}

func (s *SampledDataset) IsSampled() bool         { return true }
func (s *SampledDataset) NDim() int               { return len(s.features) }
func (s *SampledDataset) NInstances() int         { return len(s.instances) }
func (s *SampledDataset) Features() []FeatureID   { return slices.Clone(s.features) }
func (s *SampledDataset) Instances() []InstanceID { return slices.Clone(s.instances) }

func (s *SampledDataset) InstancesByQuery() map[string][]InstanceID {
	groups := make(map[string][]InstanceID)
	for _, id := range s.instances {
		qid := s.parent.QueryID(id)
		groups[qid] = append(groups[qid], id)
	}
	return groups
}

func (s *SampledDataset) Queries() []string {
	return sortedKeys(s.InstancesByQuery())
}

func (s *SampledDataset) Score(id InstanceID, model Model) float64 {
	if s.allFeats {
		return s.parent.Score(id, model)
	}
	return model.Score(sampledInstance{dataset: s, id: id})
}

func (s *SampledDataset) ScoreAll(model Model) []float64 {
	out := make([]float64, len(s.instances))
	for i, id := range s.instances {
		out[i] = s.Score(id, model)
	}
	return out
}

func (s *SampledDataset) Gain(id InstanceID) float32 { return s.parent.Gain(id) }

func (s *SampledDataset) Gains() []float32 {
	out := make([]float32, len(s.instances))
	for i, id := range s.instances {
		out[i] = s.parent.Gain(id)
	}
	return out
}

func (s *SampledDataset) QueryID(id InstanceID) string { return s.parent.QueryID(id) }

func (s *SampledDataset) QueryIDs() []string {
	out := make([]string, len(s.instances))
	for i, id := range s.instances {
		out[i] = s.parent.QueryID(id)
	}
	return out
}

func (s *SampledDataset) DocumentName(id InstanceID) (string, bool) {
	return s.parent.DocumentName(id)
}

func (s *SampledDataset) FeatureName(fid FeatureID) string {
	return s.parent.FeatureName(fid)
}

func (s *SampledDataset) GetFeatureValue(id InstanceID, fid FeatureID) (float64, bool) {
	if _, ok := s.instanceIn[id]; !ok {
		return 0, false
	}
	if _, ok := s.featureIn[fid]; !ok {
		return 0, false
	}
	return s.parent.GetFeatureValue(id, fid)
}

func (s *SampledDataset) TryLookupFeature(nameOrNum string) (FeatureID, error) {
	return tryLookupFeature(
		s.features,
		func(fid FeatureID) bool {
			_, ok := s.featureIn[fid]
			return ok
		},
		s.parent.FeatureName,
		nameOrNum,
	)
}
