package lookup

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Outcome is what a Submit call did to the form.
type Outcome int

const (
	// OutcomeBlocked means a field was blank and nothing happened.
	OutcomeBlocked Outcome = iota
	OutcomeResults
	OutcomeEmpty
	OutcomeFailed
	// OutcomeStale means a newer reset superseded the request and its
	// response was dropped.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResults:
		return "results"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "blocked"
	}
}

// Controller owns the state of one lookup form.
//
// Every reset starts a new generation. A response is applied only when its
// generation is still current, so the most recently issued submission wins
// and an identifier edit discards responses still in flight.
type Controller struct {
	recommender Recommender
	suggestions SuggestionSource
	logger      zerolog.Logger

	mu         sync.Mutex
	query      Query
	suggested  []string
	rows       []Row
	errMsg     string
	table      bool
	container  bool
	phase      Phase
	generation uint64
	suggestSeq uint64
}

func NewController(r Recommender, s SuggestionSource, logger zerolog.Logger) *Controller {
	if s == nil {
		s = StaticSuggestions(DefaultSuggestions)
	}
	return &Controller{recommender: r, suggestions: s, logger: logger}
}

// IdentifierChanged handles an edit of the identifier field. A non-blank value
// refreshes the suggestions, a blank one clears them. The results area is
// reset either way.
func (c *Controller) IdentifierChanged(ctx context.Context, value string) {
	c.mu.Lock()
	c.query.Identifier = value
	c.resetLocked()
	c.suggestSeq++
	seq := c.suggestSeq
	if strings.TrimSpace(value) == "" {
		c.suggested = nil
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	list, err := c.suggestions.Suggest(ctx, value)
	if err != nil {
		c.logger.Warn().Err(err).Str("input", value).Msg("suggestion lookup failed")
		list = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.suggestSeq {
		return
	}
	c.suggested = list
}

// SelectSuggestion writes value into the identifier field and clears the
// suggestion list. It does not submit.
func (c *Controller) SelectSuggestion(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Identifier = value
	c.suggested = nil
	c.suggestSeq++
}

// SetItemCount records the item count field value.
func (c *Controller) SetItemCount(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.ItemCount = value
}

// Submit reads both fields and, when neither is blank, resets the results and
// issues one request with the values as entered. It blocks until the request
// finishes; other events may be handled meanwhile.
func (c *Controller) Submit(ctx context.Context, identifier, itemCount string) Outcome {
	c.mu.Lock()
	c.query = Query{Identifier: identifier, ItemCount: itemCount}
	if strings.TrimSpace(identifier) == "" || strings.TrimSpace(itemCount) == "" {
		c.mu.Unlock()
		return OutcomeBlocked
	}
	c.resetLocked()
	c.phase = PhaseLoading
	gen := c.generation
	q := c.query
	c.mu.Unlock()

	recs, err := c.recommender.Recommend(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug().Uint64("generation", gen).Msg("dropping stale response")
		return OutcomeStale
	}
	if err != nil {
		c.logger.Error().Err(err).Str("reviewerId", q.Identifier).Msg("recommendation request failed")
		c.showErrorLocked()
		return OutcomeFailed
	}
	return c.showResultsLocked(recs)
}

// Reset clears any rows and error message and hides the results.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// View returns a snapshot of the form.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Identifier:       c.query.Identifier,
		ItemCount:        c.query.ItemCount,
		ErrorMessage:     c.errMsg,
		TableVisible:     c.table,
		ContainerVisible: c.container,
		Phase:            c.phase,
	}
	if len(c.suggested) > 0 {
		v.Suggestions = append([]string(nil), c.suggested...)
	}
	if len(c.rows) > 0 {
		v.Rows = append([]Row(nil), c.rows...)
	}
	return v
}

func (c *Controller) resetLocked() {
	c.rows = nil
	c.errMsg = ""
	c.table = false
	c.container = false
	c.phase = PhaseIdle
	c.generation++
}

func (c *Controller) showErrorLocked() {
	c.rows = nil
	c.errMsg = FailureMessage
	c.table = false
	c.container = true
	c.phase = PhaseFailed
}

func (c *Controller) showResultsLocked(recs []Recommendation) Outcome {
	c.errMsg = ""
	c.table = true
	c.container = true
	c.phase = PhaseResults

	if len(recs) == 0 {
		c.rows = []Row{{Message: NoResultsMessage}}
		return OutcomeEmpty
	}
	c.rows = make([]Row, 0, len(recs))
	for _, r := range recs {
		c.rows = append(c.rows, Row{ProductID: r.RecommendedProductID, Rating: r.PredictedRating.String()})
	}
	return OutcomeResults
}
