package model

import (
	"math"
	"sort"

	"github.com/wichananm65/recommender-web/internal/rating"
)

// mapeEpsilon keeps MAPE finite for targets at the bottom of the scale.
const mapeEpsilon = 2.220446049250313e-16

// Evaluation scores a fit against held-out pairs. Error metrics use scaled
// ratings; NDCG ranks each reviewer's held-out products by prediction and
// uses the unscaled ratings as relevance.
type Evaluation struct {
	Validation int     `json:"validation"`
	R2         float64 `json:"r2"`
	MAE        float64 `json:"mae"`
	MAPE       float64 `json:"mape"`
	MSE        float64 `json:"mse"`
	RMSE       float64 `json:"rmse"`
	NDCG       float64 `json:"ndcg"`
	NDCGAt     int     `json:"ndcgAt"`
}

func evaluate(m *Model, val []rating.Rating) Evaluation {
	p := m.params
	n := float64(len(val))
	ev := Evaluation{Validation: len(val), NDCGAt: p.NDCGAt}

	ys := make([]float64, len(val))
	preds := make([]float64, len(val))
	mean := 0.0
	for i, rt := range val {
		ys[i] = Scale(rt.Value, p.MinRating, p.MaxRating)
		preds[i] = m.scaledPredict(rt.ReviewerID, rt.ProductID)
		mean += ys[i]
	}
	mean /= n

	var absSum, pctSum, sqSum, totSum float64
	for i := range ys {
		d := ys[i] - preds[i]
		absSum += math.Abs(d)
		pctSum += math.Abs(d) / math.Max(math.Abs(ys[i]), mapeEpsilon)
		sqSum += d * d
		totSum += (ys[i] - mean) * (ys[i] - mean)
	}
	ev.MAE = absSum / n
	ev.MAPE = pctSum / n
	ev.MSE = sqSum / n
	ev.RMSE = math.Sqrt(ev.MSE)
	switch {
	case totSum > 0:
		ev.R2 = 1 - sqSum/totSum
	case sqSum == 0:
		ev.R2 = 1
	}
	ev.NDCG = meanNDCG(val, preds, p.NDCGAt)
	return ev
}

// meanNDCG averages NDCG@k over the reviewers present in val.
func meanNDCG(val []rating.Rating, preds []float64, k int) float64 {
	type scored struct {
		product   string
		relevance float64
		predicted float64
	}
	byReviewer := map[string][]scored{}
	for i, rt := range val {
		byReviewer[rt.ReviewerID] = append(byReviewer[rt.ReviewerID], scored{rt.ProductID, rt.Value, preds[i]})
	}

	total := 0.0
	for _, items := range byReviewer {
		sort.Slice(items, func(i, j int) bool {
			if items[i].predicted != items[j].predicted {
				return items[i].predicted > items[j].predicted
			}
			return items[i].product < items[j].product
		})
		ranked := make([]float64, len(items))
		for i, it := range items {
			ranked[i] = it.relevance
		}
		total += ndcg(ranked, k)
	}
	return total / float64(len(byReviewer))
}

func dcg(relevance []float64, k int) float64 {
	if len(relevance) > k {
		relevance = relevance[:k]
	}
	sum := 0.0
	for i, r := range relevance {
		sum += r / math.Log2(float64(i+2))
	}
	return sum
}

// ndcg is the DCG of relevance in the given order over the DCG of the ideal order.
func ndcg(relevance []float64, k int) float64 {
	ideal := append([]float64(nil), relevance...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	best := dcg(ideal, k)
	if best == 0 {
		return 0
	}
	return dcg(relevance, k) / best
}
