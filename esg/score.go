package esg

// Number of subtopics per topic and in total. Classifier outputs are
// ordered E0..E9, S0..S9, G0..G9.
const (
	TopicSubtopics = 10
	Subtopics      = 3 * TopicSubtopics
)

const (
	// Threshold is the probability below which a subtopic does not count.
	Threshold = 0.5
	// Weight scales every rescaled subtopic probability.
	Weight = 0.1
	// MaxScore bounds every topic score.
	MaxScore = 1.0
)

// Topic indexes a Score.
type Topic int

const (
	Environmental Topic = iota
	Social
	Governance
)

func (t Topic) String() string {
	switch t {
	case Environmental:
		return "environmental"
	case Social:
		return "social"
	case Governance:
		return "governance"
	default:
		return "unknown"
	}
}

// Score holds the E, S and G values, each in [0, 1].
type Score [3]float64

// EntryScore is the score of the course recorded by one block.
type EntryScore struct {
	BlockIndex uint64 `json:"block_index"`
	Score      Score  `json:"score"`
}

// Scores is the result of scoring a ledger.
type Scores struct {
	Total   Score        `json:"total"`
	Entries []EntryScore `json:"entries"`
}

// Matrix returns the cumulative score followed by one row per entry.
func (s *Scores) Matrix() [][3]float64 {
	matrix := make([][3]float64, 0, len(s.Entries)+1)
	matrix = append(matrix, s.Total)
	for _, entry := range s.Entries {
		matrix = append(matrix, entry.Score)
	}
	return matrix
}
