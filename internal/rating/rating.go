package rating

// Rating is a single reviewer score for a product and maps to the `ratings` table.
type Rating struct {
	ReviewerID string  `json:"reviewerID"`
	ProductID  string  `json:"productID"`
	Value      float64 `json:"rating"`
}
