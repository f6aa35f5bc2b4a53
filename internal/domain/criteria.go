package domain

// Criteria is the campaign-side scoring input supplied by the caller.
// BudgetMin and BudgetMax travel with every discovery request but are not
// read by any scoring or filtering step; they are reserved for future
// budget filtering and must not be inferred into the ranking.
type Criteria struct {
	Niche       string   `json:"niche"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
	BudgetMin   *float64 `json:"budget_min,omitempty"`
	BudgetMax   *float64 `json:"budget_max,omitempty"`
}
