package chat

// Sentiment holds the polarity split of a message.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Emotions holds per-emotion scores in [0, 1].
type Emotions struct {
	Joy      float64 `json:"joy"`
	Sadness  float64 `json:"sadness"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
	Disgust  float64 `json:"disgust"`
}

// EmotionalAnalysis is the heuristic read of the user's message.
type EmotionalAnalysis struct {
	Sentiment  Sentiment `json:"sentiment"`
	Emotions   Emotions  `json:"emotions"`
	KeyPhrases []string  `json:"keyPhrases"`
}

// Response is the structured reply returned for every processed message.
type Response struct {
	Response          string             `json:"response"`
	EmotionalAnalysis *EmotionalAnalysis `json:"emotionalAnalysis,omitempty"`
	SuggestedActions  []string           `json:"suggestedActions"`
	CrisisDetected    bool               `json:"crisisDetected"`
}
