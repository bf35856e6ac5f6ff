package dataset

import (
	"sort"
	"strconv"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

// tryLookupFeature resolves nameOrNum as a column number first and as a
// feature name second. Numbers outside the visible feature set fall through
// to the name lookup, so a feature literally named "12" still resolves.
func tryLookupFeature(features []FeatureID, visible func(FeatureID) bool, nameOf func(FeatureID) string, nameOrNum string) (FeatureID, error) {
	if n, err := strconv.ParseUint(nameOrNum, 10, 32); err == nil {
		if fid := FeatureID(n); visible(fid) {
			return fid, nil
		}
	}
	for _, fid := range features {
		if nameOf(fid) == nameOrNum {
			return fid, nil
		}
	}
	return 0, rankerr.NotFound("feature %q", nameOrNum)
}

func featureName(names map[FeatureID]string, fid FeatureID) string {
	if name, ok := names[fid]; ok {
		return name
	}
	return fid.String()
}

func sortedKeys(groups map[string][]InstanceID) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
