package domain

// CustomRule is a tenant-authored rule evaluated beside the static catalog.
// The expression is CEL and must return bool; a true result raises one flag
// with the configured severity and score.
type CustomRule struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Expression  string     `json:"expression"`
	Severity    Severity   `json:"severity"`
	Score       float64    `json:"score"`
	Verticals   []Vertical `json:"verticals,omitempty"` // empty = all
	Enabled     bool       `json:"enabled"`
}

// AppliesTo reports whether the custom rule runs for the given vertical.
func (r *CustomRule) AppliesTo(v Vertical) bool {
	if len(r.Verticals) == 0 {
		return true
	}
	for _, rv := range r.Verticals {
		if rv == v {
			return true
		}
	}
	return false
}
