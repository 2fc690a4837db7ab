package rating

import (
	"errors"
	"fmt"
	"sort"
)

var ErrOutOfRange = errors.New("rating out of range")

// MergeDuplicates collapses repeated (reviewer, product) pairs into one
// rating holding their mean. The result is sorted by reviewer then product.
func MergeDuplicates(ratings []Rating) []Rating {
	type pair struct{ reviewer, product string }
	sums := make(map[pair]float64, len(ratings))
	counts := make(map[pair]int, len(ratings))
	for _, rt := range ratings {
		k := pair{rt.ReviewerID, rt.ProductID}
		sums[k] += rt.Value
		counts[k]++
	}

	out := make([]Rating, 0, len(sums))
	for k, s := range sums {
		out = append(out, Rating{ReviewerID: k.reviewer, ProductID: k.product, Value: s / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReviewerID != out[j].ReviewerID {
			return out[i].ReviewerID < out[j].ReviewerID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// CheckRange returns ErrOutOfRange for the first rating outside [min,max].
func CheckRange(ratings []Rating, min, max float64) error {
	for _, rt := range ratings {
		if rt.Value < min || rt.Value > max {
			return fmt.Errorf("%w: %s/%s rated %v, want [%v,%v]", ErrOutOfRange, rt.ReviewerID, rt.ProductID, rt.Value, min, max)
		}
	}
	return nil
}
