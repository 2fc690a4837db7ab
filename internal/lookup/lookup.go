// Package lookup is the recommendation lookup form: the reviewer and item
// count fields, the suggestion list under the reviewer field, and the results
// region that shows either recommendation rows or a single error message.
//
// The package holds the form state only. Rendering it is left to callers,
// which read a View snapshot after every event.
package lookup

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
)

const (
	// NoResultsMessage fills the single full-width row of an empty result.
	NoResultsMessage = "No recommendations found."
	// FailureMessage is the only error text ever shown to the user.
	FailureMessage = "An error occurred. Please try again."
)

// Phase is the state of the results region.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseResults
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseResults:
		return "results"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Query holds the raw field values read at submit time.
type Query struct {
	Identifier string
	ItemCount  string
}

// Score is a predicted rating as the server sent it. Numbers are printed the
// way a browser prints them, numeric strings are kept as written and null
// shows as an empty cell.
type Score struct {
	text string
}

func NewScore(text string) Score {
	return Score{text: text}
}

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case string(b) == "null":
		s.text = ""
	case len(b) > 0 && b[0] == '"':
		text, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		s.text = text
	default:
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		s.text = formatNumber(v)
	}
	return nil
}

// formatNumber renders v in the shortest round-trip form, switching to
// exponent notation below 1e-6 and from 1e21 up (4.5, 1e+21, 1e-7).
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

func (s Score) String() string {
	return s.text
}

// Recommendation is one row of the server response.
type Recommendation struct {
	RecommendedProductID string `json:"recommendedProductID"`
	PredictedRating      Score  `json:"predictedRating"`
}

// Recommender fetches recommendations for a query.
type Recommender interface {
	Recommend(ctx context.Context, q Query) ([]Recommendation, error)
}

// SuggestionSource offers candidate identifiers for the typed input.
type SuggestionSource interface {
	Suggest(ctx context.Context, input string) ([]string, error)
}

// Row is one rendered table row. A message row spans both columns.
type Row struct {
	ProductID string
	Rating    string
	Message   string
}

// FullWidth reports whether the row is a single spanning message cell.
func (r Row) FullWidth() bool {
	return r.Message != ""
}

// View is an immutable snapshot of the form.
type View struct {
	Identifier       string
	ItemCount        string
	Suggestions      []string
	Rows             []Row
	ErrorMessage     string
	TableVisible     bool
	ContainerVisible bool
	Phase            Phase
}

// HasError reports whether the error message is present.
func (v View) HasError() bool {
	return v.ErrorMessage != ""
}
