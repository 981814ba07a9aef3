package types

// Video is the immutable source descriptor resolved at ingestion.
type Video struct {
	ID        string
	SourceURL string
	Title     string
	Duration  float64 // seconds
}

// Segment is a contiguous window of one video's timeline. Segments of a
// video partition [0, duration) in increasing, non-overlapping order.
type Segment struct {
	Index      int
	Start      float64
	End        float64
	Transcript string
	Truncated  bool // transcription reported an incomplete result
	Features   AudioFeatures
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// AudioFeatures maps named audio signals to values in [0,10].
type AudioFeatures map[string]float64

// AIScores holds the six analysis dimensions, each in [0,10].
type AIScores struct {
	ViralPotential     float64 `json:"viral_score"`
	EmotionalIntensity float64 `json:"emotional_intensity"`
	Controversy        float64 `json:"controversy_level"`
	Relatability       float64 `json:"relatability"`
	EducationalValue   float64 `json:"educational_value"`
	Entertainment      float64 `json:"entertainment_factor"`
}

// Analysis is one successful AI-assisted scoring result, usage included.
type Analysis struct {
	Scores    AIScores
	Reasoning string
	Title     string
	Caption   string
	Tokens    int
	Cost      float64
}

// ScoreRecord collects every signal computed for a segment. AIScores is nil
// when the segment was scored in fallback mode.
type ScoreRecord struct {
	RuleScore     float64
	AIScores      *AIScores
	CombinedScore float64
	Reasoning     []string
	Title         string
	Caption       string
	Tokens        int
	Cost          float64
}

// Clip is the externally visible unit: a segment plus its score record under
// a stable identifier. Immutable once produced.
type Clip struct {
	ID           string
	VideoID      string
	SegmentIndex int
	Start        float64
	End          float64
	Transcript   string
	Score        ScoreRecord
	AIApplied    bool
}

type Manifest struct {
	Input    string         `json:"input"`
	VideoID  string         `json:"video_id"`
	Title    string         `json:"title,omitempty"`
	Fallback bool           `json:"fallback_mode"`
	Clips    []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID            string    `json:"id"`
	Rank          int       `json:"rank"`
	StartSec      float64   `json:"start_sec"`
	EndSec        float64   `json:"end_sec"`
	Transcript    string    `json:"transcript"`
	RuleScore     float64   `json:"rule_score"`
	AIScores      *AIScores `json:"ai_scores,omitempty"`
	CombinedScore float64   `json:"combined_score"`
	Reasoning     []string  `json:"reasoning"`
	Title         string    `json:"title,omitempty"`
	Caption       string    `json:"caption,omitempty"`
	Tokens        int       `json:"tokens,omitempty"`
	CostUSD       float64   `json:"cost_usd,omitempty"`
	AIApplied     bool      `json:"ai_applied"`
}
