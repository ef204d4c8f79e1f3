// Package badge implements the engagement badge notification engine: it
// merges badges reported directly by an action with badges discovered via
// the engagement summary, deduplicates them against the persistent ledger,
// and drives the toast and chime side effects.
package badge

// Badge represents a single awarded achievement. Immutable once received;
// Code is the stable identifier used for deduplication.
type Badge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Points      int    `json:"points,omitempty"`
}

// SummaryBadge is a catalog entry from the engagement summary: a badge plus
// whether the current identity has obtained it.
type SummaryBadge struct {
	Badge
	Obtained bool `json:"obtained"`
}

// Summary is the engagement summary returned by the backend. NewBadges lists
// awards the backend knows are fresh; Badges is the full catalog with
// obtained markers, from which recently awarded but unflagged entries are
// also picked up.
type Summary struct {
	Points    int            `json:"points"`
	Level     int            `json:"level"`
	Reports   int            `json:"reports"`
	Comments  int            `json:"comments"`
	NewBadges []Badge        `json:"newBadges"`
	Badges    []SummaryBadge `json:"badges"`
}

// ObtainedBadges returns the obtained subset of the catalog, in catalog order.
func (s *Summary) ObtainedBadges() []Badge {
	var out []Badge
	for _, b := range s.Badges {
		if b.Obtained {
			out = append(out, b.Badge)
		}
	}
	return out
}
