// Package dataset implements the ranking dataset abstraction over typed numeric buffers.
package dataset

import (
	"math"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
	"github.com/tensorplex-labs/fastrank/pkg/typedarray"
)

// DenseDataset is a row-major feature matrix with one label and one numeric
// query id per row. The feature value of (instance, feature) lives at
// instance*NDim()+feature.
type DenseDataset struct {
	numInstances int
	numFeatures  int
	xs           typedarray.Array
	ys           typedarray.Array
	qids         typedarray.Array
	qidStrings   map[int64]string
	featureNames map[FeatureID]string
	docNames     []string
}

var _ RankingDataset = (*DenseDataset)(nil)

type denseOptions struct {
	qidStrings   map[int64]string
	featureNames map[FeatureID]string
	docNames     []string
}

type DenseOption func(*denseOptions)

// WithQueryStrings overrides the decimal rendering of numeric query ids.
// Every query id in the dataset must be present in the map.
func WithQueryStrings(m map[int64]string) DenseOption {
	return func(o *denseOptions) {
		o.qidStrings = m
	}
}

func WithFeatureNames(names map[FeatureID]string) DenseOption {
	return func(o *denseOptions) {
		o.featureNames = names
	}
}

// WithDocumentNames attaches one document name per instance.
func WithDocumentNames(names []string) DenseOption {
	return func(o *denseOptions) {
		o.docNames = names
	}
}

// NewDense validates the buffers and builds a dataset. Any violation fails
// the whole construction.
func NewDense(numInstances, numFeatures int, xs, ys, qids typedarray.Array, opts ...DenseOption) (*DenseDataset, error) {
	o := &denseOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if numInstances < 0 || numFeatures < 0 {
		return nil, rankerr.Invalid("negative dimensions n=%d d=%d", numInstances, numFeatures)
	}
	if ys.Len() != numInstances {
		return nil, &rankerr.ShapeError{Field: "ys", Expected: numInstances, Actual: ys.Len()}
	}
	if qids.Len() != numInstances {
		return nil, &rankerr.ShapeError{Field: "qids", Expected: numInstances, Actual: qids.Len()}
	}
	if xs.Len() != numInstances*numFeatures {
		return nil, &rankerr.ShapeError{Field: "xs", Expected: numInstances * numFeatures, Actual: xs.Len()}
	}
	if o.docNames != nil && len(o.docNames) != numInstances {
		return nil, &rankerr.ShapeError{Field: "document names", Expected: numInstances, Actual: len(o.docNames)}
	}
	if numInstances > 0 && qids.Kind().IsFloat() {
		return nil, rankerr.Invalid("qids must be integer-typed, got %s", qids.Kind())
	}

	for i := range numInstances {
		y, _ := ys.GetF32(i)
		if math.IsNaN(float64(y)) {
			return nil, rankerr.Invalid("NaN label at instance %d", i)
		}
	}

	qidStrings := o.qidStrings
	if qidStrings != nil {
		for i := range numInstances {
			qid, _ := qids.GetI64(i)
			if _, ok := qidStrings[qid]; !ok {
				return nil, rankerr.NotFound("query id %d at instance %d has no string mapping", qid, i)
			}
		}
	} else {
		// First occurrence assigns the string; repeats reuse it.
		qidStrings = make(map[int64]string)
		for i := range numInstances {
			qid, _ := qids.GetI64(i)
			if _, ok := qidStrings[qid]; !ok {
				qidStrings[qid] = strconv.FormatInt(qid, 10)
			}
		}
	}

	featureNames := o.featureNames
	if featureNames == nil {
		featureNames = make(map[FeatureID]string)
	}

	log.Debug().
		Int("instances", numInstances).
		Int("features", numFeatures).
		Str("xs", xs.Kind().String()).
		Int("queries", len(qidStrings)).
		Msg("built dense dataset")

	return &DenseDataset{
		numInstances: numInstances,
		numFeatures:  numFeatures,
		xs:           xs,
		ys:           ys,
		qids:         qids,
		qidStrings:   qidStrings,
		featureNames: featureNames,
		docNames:     o.docNames,
	}, nil
}

// denseInstance is the feature view of a single row; it is a value type so
// scoring never allocates a feature vector.
type denseInstance struct {
	dataset *DenseDataset
	id      InstanceID
}

func (d denseInstance) Get(fid FeatureID) (float64, bool) {
	return d.dataset.GetFeatureValue(d.id, fid)
}

func (d denseInstance) DotP(weights []float64) float64 {
	nf := d.dataset.numFeatures
	if len(weights) > nf {
		weights = weights[:nf]
	}
	return d.dataset.xs.Dot(weights, d.id.Index()*nf)
}

func (ds *DenseDataset) IsSampled() bool { return false }
func (ds *DenseDataset) NDim() int       { return ds.numFeatures }
func (ds *DenseDataset) NInstances() int { return ds.numInstances }

func (ds *DenseDataset) Features() []FeatureID {
	out := make([]FeatureID, ds.numFeatures)
	for i := range out {
		out[i] = FeatureID(i)
	}
	return out
}

func (ds *DenseDataset) Instances() []InstanceID {
	out := make([]InstanceID, ds.numInstances)
	for i := range out {
		out[i] = InstanceID(i)
	}
	return out
}

func (ds *DenseDataset) qidString(index int) (string, bool) {
	qid, ok := ds.qids.GetI64(index)
	if !ok {
		return "", false
	}
	s, ok := ds.qidStrings[qid]
	return s, ok
}

func (ds *DenseDataset) InstancesByQuery() map[string][]InstanceID {
	groups := make(map[string][]InstanceID)
	for i := range ds.numInstances {
		qid := ds.QueryID(InstanceID(i))
		groups[qid] = append(groups[qid], InstanceID(i))
	}
	return groups
}

func (ds *DenseDataset) Queries() []string {
	return sortedKeys(ds.InstancesByQuery())
}

func (ds *DenseDataset) Score(id InstanceID, model Model) float64 {
	return model.Score(denseInstance{dataset: ds, id: id})
}

func (ds *DenseDataset) ScoreAll(model Model) []float64 {
	out := make([]float64, ds.numInstances)
	for i := range out {
		out[i] = model.Score(denseInstance{dataset: ds, id: InstanceID(i)})
	}
	return out
}

// Gain panics if the label is missing; construction guarantees it exists.
func (ds *DenseDataset) Gain(id InstanceID) float32 {
	y, ok := ds.ys.GetF32(id.Index())
	if !ok {
		panic("dataset: no label for instance " + id.String() + "; only valid instances should exist")
	}
	return y
}

func (ds *DenseDataset) Gains() []float32 {
	out := make([]float32, ds.numInstances)
	for i := range out {
		out[i] = ds.Gain(InstanceID(i))
	}
	return out
}

// QueryID panics if the query id cannot be resolved; construction guarantees it can.
func (ds *DenseDataset) QueryID(id InstanceID) string {
	s, ok := ds.qidString(id.Index())
	if !ok {
		panic("dataset: unresolved query id for instance " + id.String())
	}
	return s
}

func (ds *DenseDataset) QueryIDs() []string {
	out := make([]string, ds.numInstances)
	for i := range out {
		out[i] = ds.QueryID(InstanceID(i))
	}
	return out
}

func (ds *DenseDataset) DocumentName(id InstanceID) (string, bool) {
	if ds.docNames == nil || id.Index() >= len(ds.docNames) {
		return "", false
	}
	return ds.docNames[id.Index()], true
}

func (ds *DenseDataset) FeatureName(fid FeatureID) string {
	return featureName(ds.featureNames, fid)
}

// GetFeatureValue returns the widened value at the row-major offset, or false
// when either index is outside the declared shape.
func (ds *DenseDataset) GetFeatureValue(id InstanceID, fid FeatureID) (float64, bool) {
	if id.Index() >= ds.numInstances || fid.Index() >= ds.numFeatures {
		return 0, false
	}
	return ds.xs.GetF64(id.Index()*ds.numFeatures + fid.Index())
}

func (ds *DenseDataset) TryLookupFeature(nameOrNum string) (FeatureID, error) {
	return tryLookupFeature(
		ds.Features(),
		func(fid FeatureID) bool { return fid.Index() < ds.numFeatures },
		ds.FeatureName,
		nameOrNum,
	)
}
