package dataset

import "strconv"

// FeatureID is a zero-based column index into a feature matrix.
type FeatureID uint32

func (f FeatureID) Index() int     { return int(f) }
func (f FeatureID) String() string { return strconv.Itoa(int(f)) }

// InstanceID is a zero-based row index into a feature matrix.
type InstanceID uint32

func (i InstanceID) Index() int     { return int(i) }
func (i InstanceID) String() string { return strconv.Itoa(int(i)) }

// FeatureRead is the view of a single instance handed to a Model.
type FeatureRead interface {
	// Get returns the feature value, or false if the feature is out of range or not visible.
	Get(fid FeatureID) (float64, bool)
	// DotP returns the dot product of weights with the instance's feature row.
	DotP(weights []float64) float64
}

// Model is any scoring capability that turns a feature view into a score.
type Model interface {
	Score(features FeatureRead) float64
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(FeatureRead) float64

func (f ModelFunc) Score(features FeatureRead) float64 { return f(features) }

// RankingDataset is the capability shared by every dataset representation.
// Implementations are immutable after construction and safe for concurrent reads.
type RankingDataset interface {
	IsSampled() bool
	Features() []FeatureID
	NDim() int
	NInstances() int
	Instances() []InstanceID
	// InstancesByQuery groups instance ids by query id; each group is in ascending id order.
	InstancesByQuery() map[string][]InstanceID
	// Queries returns the distinct query ids present, sorted.
	Queries() []string
	Score(id InstanceID, model Model) float64
	// ScoreAll returns one score per entry of Instances, in the same order.
	ScoreAll(model Model) []float64
	Gain(id InstanceID) float32
	// Gains returns one gain per entry of Instances, in the same order.
	Gains() []float32
	QueryID(id InstanceID) string
	// QueryIDs returns one query id per entry of Instances, in the same order.
	QueryIDs() []string
	DocumentName(id InstanceID) (string, bool)
	FeatureName(fid FeatureID) string
	GetFeatureValue(id InstanceID, fid FeatureID) (float64, bool)
	TryLookupFeature(nameOrNum string) (FeatureID, error)
}
