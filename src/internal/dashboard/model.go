package dashboard

import "time"

// Metrics summarizes the floor in one pass over open sessions and topology.
type Metrics struct {
	OccupiedPosts int   `json:"occupiedPosts"`
	TotalPosts    int   `json:"totalPosts"`
	QuantityToday int64 `json:"quantityToday"`
	ActiveWorkers int   `json:"activeWorkers"`
}

// Slot is one cell of the occupancy grid: either an occupied post with its
// labels or an explicit idle placeholder. Display numbers run sequentially
// across the whole grid, placeholders included.
type Slot struct {
	Number    int        `json:"number"`
	Occupied  bool       `json:"occupied"`
	PostID    string     `json:"postId,omitempty"`
	PostName  string     `json:"postName,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Worker    string     `json:"worker,omitempty"`
	Matricula string     `json:"matricula,omitempty"`
	Product   string     `json:"product,omitempty"`
	Operation string     `json:"operation,omitempty"`
	StartTs   *time.Time `json:"startTs,omitempty"`
}

type SubLineGrid struct {
	SubLineID string `json:"subLineId"`
	Name      string `json:"name"`
	Slots     []Slot `json:"slots"`
}

type Snapshot struct {
	Metrics     Metrics       `json:"metrics"`
	Grid        []SubLineGrid `json:"grid"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
