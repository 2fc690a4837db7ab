package recommended

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/wichananm65/recommender-web/internal/metrics"
	"github.com/wichananm65/recommender-web/internal/model"
	"github.com/wichananm65/recommender-web/internal/rating"
)

var ErrModelNotTrained = errors.New("model not trained")

// Service ranks unrated products for a reviewer using the current model.
type Service struct {
	repo    rating.Repository
	params  model.Params
	logger  zerolog.Logger
	current atomic.Pointer[model.Model]
}

func NewService(repo rating.Repository, params model.Params, logger zerolog.Logger) *Service {
	return &Service{repo: repo, params: params, logger: logger}
}

// Train refits the model on every stored rating and swaps it in.
func (s *Service) Train(ctx context.Context) (TrainResult, error) {
	ratings, err := s.repo.List(ctx)
	if err != nil {
		metrics.RecordTraining(err)
		return TrainResult{}, fmt.Errorf("list ratings: %w", err)
	}

	m, err := model.Train(ratings, s.params)
	metrics.RecordTraining(err)
	if err != nil {
		return TrainResult{}, err
	}
	s.current.Store(m)

	st := m.Stats()
	res := TrainResult{
		Ratings:    len(ratings),
		Pairs:      st.Pairs,
		Reviewers:  st.Reviewers,
		Products:   st.Products,
		Evaluation: m.Evaluation(),
	}
	event := s.logger.Info().Int("ratings", res.Ratings).Int("pairs", res.Pairs).Int("reviewers", res.Reviewers).Int("products", res.Products)
	if ev := res.Evaluation; ev != nil {
		event = event.Int("validation", ev.Validation).
			Float64("r2", ev.R2).
			Float64("mae", ev.MAE).
			Float64("mape", ev.MAPE).
			Float64("mse", ev.MSE).
			Float64("rmse", ev.RMSE).
			Float64("ndcg", ev.NDCG)
	}
	event.Msg("model trained")
	return res, nil
}

// Bounds returns the rating scale new ratings must fall in.
func (s *Service) Bounds() (min, max float64) {
	return s.params.MinRating, s.params.MaxRating
}

// Recommend returns up to numItems products the reviewer has not rated,
// ordered by predicted rating desc with product ID breaking ties.
func (s *Service) Recommend(ctx context.Context, reviewerID string, numItems int) ([]Recommendation, error) {
	m := s.current.Load()
	if m == nil {
		return nil, ErrModelNotTrained
	}
	if !m.KnownReviewer(reviewerID) {
		return nil, model.ErrUnknownReviewer
	}

	unrated := m.Unrated(reviewerID)
	out := make([]Recommendation, 0, len(unrated))
	for _, productID := range unrated {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		predicted, err := m.Predict(reviewerID, productID)
		if err != nil {
			return nil, err
		}
		out = append(out, Recommendation{RecommendedProductID: productID, PredictedRating: predicted})
	}

	// unrated is sorted by ID, so a stable sort keeps ties in ID order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedRating > out[j].PredictedRating
	})
	if numItems < len(out) {
		out = out[:numItems]
	}
	return out, nil
}

// Import stores new ratings. The model is not retrained.
func (s *Service) Import(ctx context.Context, ratings []rating.Rating) (int, error) {
	if err := rating.CheckRange(ratings, s.params.MinRating, s.params.MaxRating); err != nil {
		return 0, err
	}
	return s.repo.InsertMany(ctx, ratings)
}
