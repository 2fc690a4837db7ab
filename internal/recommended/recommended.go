package recommended

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/wichananm65/recommender-web/internal/model"
)

// Request is the payload accepted by POST /recommend.
type Request struct {
	ReviewerID string    `json:"reviewerId" validate:"required"`
	NumItems   ItemCount `json:"numItems" validate:"required,number"`
}

// ItemCount accepts the item count as a JSON string or number and keeps it
// as trimmed text until validation.
type ItemCount string

func (n *ItemCount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*n = ItemCount(strings.TrimSpace(s))
		return nil
	}
	if string(b) == "null" {
		*n = ""
		return nil
	}
	*n = ItemCount(b)
	return nil
}

// Int returns the parsed count. Call it only after validation.
func (n ItemCount) Int() (int, error) {
	return strconv.Atoi(string(n))
}

// Recommendation is one ranked product returned to the form.
type Recommendation struct {
	RecommendedProductID string  `json:"recommendedProductID"`
	PredictedRating      float64 `json:"predictedRating"`
}

// Response is the body of a successful POST /recommend.
type Response struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// TrainResult summarizes a training run. Ratings counts stored rows, Pairs
// the distinct (reviewer, product) pairs the model was fitted on.
type TrainResult struct {
	Ratings    int               `json:"ratings"`
	Pairs      int               `json:"pairs"`
	Reviewers  int               `json:"reviewers"`
	Products   int               `json:"products"`
	Evaluation *model.Evaluation `json:"evaluation,omitempty"`
}
