// Package model trains and serves a biased baseline rating predictor.
//
// Ratings are scaled into [0,1] using the configured rating bounds before
// fitting; predictions are clamped to that range and unscaled on the way out.
package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/wichananm65/recommender-web/internal/rating"
)

var (
	ErrNoRatings       = errors.New("no ratings to train on")
	ErrUnknownReviewer = errors.New("unknown reviewer")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrInvalidParams   = errors.New("invalid model params")
)

// Params are the training and scaling parameters.
type Params struct {
	MinRating      float64 `koanf:"min_rating"`
	MaxRating      float64 `koanf:"max_rating"`
	Regularization float64 `koanf:"regularization"`
	Iterations     int     `koanf:"iterations"`
	// ValidationSplit is the share of rating pairs held out for evaluation.
	// Zero disables evaluation.
	ValidationSplit float64 `koanf:"validation_split"`
	Seed            int64   `koanf:"seed"`
	NDCGAt          int     `koanf:"ndcg_at"`
}

func DefaultParams() Params {
	return Params{
		MinRating:       1,
		MaxRating:       5,
		Regularization:  5,
		Iterations:      10,
		ValidationSplit: 0.2,
		Seed:            1,
		NDCGAt:          10,
	}
}

func (p Params) validate() error {
	if p.MaxRating <= p.MinRating {
		return fmt.Errorf("%w: max_rating must be greater than min_rating", ErrInvalidParams)
	}
	if p.Regularization < 0 {
		return fmt.Errorf("%w: regularization must be >= 0", ErrInvalidParams)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be >= 1", ErrInvalidParams)
	}
	if p.ValidationSplit < 0 || p.ValidationSplit >= 1 {
		return fmt.Errorf("%w: validation_split must be in [0,1)", ErrInvalidParams)
	}
	if p.NDCGAt < 1 {
		return fmt.Errorf("%w: ndcg_at must be >= 1", ErrInvalidParams)
	}
	return nil
}

// Scale maps y from [min,max] onto [0,1].
func Scale(y, min, max float64) float64 {
	return (y - min) / (max - min)
}

// Unscale maps y from [0,1] back onto [min,max].
func Unscale(y, min, max float64) float64 {
	return y*(max-min) + min
}

// Model is an immutable trained predictor. It is safe for concurrent use.
type Model struct {
	params       Params
	mean         float64
	reviewerBias map[string]float64
	productBias  map[string]float64
	products     []string
	rated        map[string]map[string]bool
	pairs        int
	evaluation   *Evaluation
}

// Train merges repeated (reviewer, product) pairs by mean, scores a fit on
// a held-out split when ValidationSplit is set, then fits mu + b_reviewer +
// b_product to every pair by alternating regularized least squares.
func Train(ratings []rating.Rating, params Params) (*Model, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	merged := rating.MergeDuplicates(ratings)
	if len(merged) == 0 {
		return nil, ErrNoRatings
	}
	if err := rating.CheckRange(merged, params.MinRating, params.MaxRating); err != nil {
		return nil, err
	}

	var ev *Evaluation
	if train, val := split(merged, params.ValidationSplit, params.Seed); len(val) > 0 {
		e := evaluate(fit(train, params), val)
		ev = &e
	}

	m := fit(merged, params)
	m.evaluation = ev
	return m, nil
}

// split shuffles with seed and holds out ceil(share*n) pairs, always leaving
// at least one for training.
func split(ratings []rating.Rating, share float64, seed int64) (train, val []rating.Rating) {
	n := len(ratings)
	nVal := int(math.Ceil(share * float64(n)))
	if share <= 0 || n < 2 {
		nVal = 0
	}
	if nVal >= n {
		nVal = n - 1
	}

	train = make([]rating.Rating, 0, n-nVal)
	val = make([]rating.Rating, 0, nVal)
	for i, idx := range rand.New(rand.NewSource(seed)).Perm(n) {
		if i < nVal {
			val = append(val, ratings[idx])
		} else {
			train = append(train, ratings[idx])
		}
	}
	return train, val
}

func fit(ratings []rating.Rating, params Params) *Model {
	scaled := make([]float64, len(ratings))
	sum := 0.0
	m := &Model{
		params:       params,
		reviewerBias: map[string]float64{},
		productBias:  map[string]float64{},
		rated:        map[string]map[string]bool{},
		pairs:        len(ratings),
	}
	for i, rt := range ratings {
		scaled[i] = Scale(rt.Value, params.MinRating, params.MaxRating)
		sum += scaled[i]
		if _, ok := m.productBias[rt.ProductID]; !ok {
			m.productBias[rt.ProductID] = 0
			m.products = append(m.products, rt.ProductID)
		}
		m.reviewerBias[rt.ReviewerID] = 0
		if m.rated[rt.ReviewerID] == nil {
			m.rated[rt.ReviewerID] = map[string]bool{}
		}
		m.rated[rt.ReviewerID][rt.ProductID] = true
	}
	m.mean = sum / float64(len(ratings))
	sort.Strings(m.products)

	lambda := params.Regularization
	for it := 0; it < params.Iterations; it++ {
		m.reviewerBias = fitBias(ratings, scaled, lambda, func(rt rating.Rating) string { return rt.ReviewerID },
			func(rt rating.Rating) float64 { return m.mean + m.productBias[rt.ProductID] })
		m.productBias = fitBias(ratings, scaled, lambda, func(rt rating.Rating) string { return rt.ProductID },
			func(rt rating.Rating) float64 { return m.mean + m.reviewerBias[rt.ReviewerID] })
	}
	return m
}

func fitBias(ratings []rating.Rating, scaled []float64, lambda float64, key func(rating.Rating) string, base func(rating.Rating) float64) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]float64{}
	for i, rt := range ratings {
		k := key(rt)
		sums[k] += scaled[i] - base(rt)
		counts[k]++
	}
	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		out[k] = s / (lambda + counts[k])
	}
	return out
}

// scaledPredict returns the clamped scaled prediction. Reviewers or products
// missing from the fit contribute no bias.
func (m *Model) scaledPredict(reviewerID, productID string) float64 {
	y := m.mean + m.reviewerBias[reviewerID] + m.productBias[productID]
	if y < 0 {
		return 0
	}
	if y > 1 {
		return 1
	}
	return y
}

// Predict returns the unscaled predicted rating of product for reviewer.
func (m *Model) Predict(reviewerID, productID string) (float64, error) {
	if _, ok := m.reviewerBias[reviewerID]; !ok {
		return 0, ErrUnknownReviewer
	}
	if _, ok := m.productBias[productID]; !ok {
		return 0, ErrUnknownProduct
	}
	return Unscale(m.scaledPredict(reviewerID, productID), m.params.MinRating, m.params.MaxRating), nil
}

// KnownReviewer reports whether reviewerID appeared in the training data.
func (m *Model) KnownReviewer(reviewerID string) bool {
	_, ok := m.reviewerBias[reviewerID]
	return ok
}

// Unrated returns the catalog products reviewerID has not rated, sorted by ID.
func (m *Model) Unrated(reviewerID string) []string {
	seen := m.rated[reviewerID]
	out := make([]string, 0, len(m.products))
	for _, p := range m.products {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// Stats summarizes the training set after duplicate pairs were merged.
type Stats struct {
	Pairs     int
	Reviewers int
	Products  int
}

func (m *Model) Stats() Stats {
	return Stats{Pairs: m.pairs, Reviewers: len(m.reviewerBias), Products: len(m.products)}
}

// Evaluation returns the hold-out scores, or nil when none were computed.
func (m *Model) Evaluation() *Evaluation {
	if m.evaluation == nil {
		return nil
	}
	e := *m.evaluation
	return &e
}
