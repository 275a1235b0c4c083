// Package analysis turns model output into sentiment and conversation analytics.
package analysis

// Sentiment labels.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentMixed    = "MIXED"
	SentimentError    = "ERROR"
)

// JSON field names requested from the model. Builders and parsers share them.
const (
	fieldSentiment        = "sentiment"
	fieldScore            = "score"
	fieldConfidence       = "confidence"
	fieldDominantEmotions = "dominant_emotions"
	fieldKeyPhrases       = "key_phrases"
	fieldInsights         = "insights"

	fieldMainTopics          = "main_topics"
	fieldUserIntents         = "user_intents"
	fieldKeyQuestions        = "key_questions"
	fieldIdentifiedIssues    = "identified_issues"
	fieldActionItems         = "action_items"
	fieldConversationSummary = "conversation_summary"
)

// DefaultImportance is assigned to every analyzed message.
const DefaultImportance = 5

// minAnalyzedLength is the trimmed length a message must exceed to get its own sentiment call.
const minAnalyzedLength = 5

// SentimentRequest is the input to a sentiment analysis.
type SentimentRequest struct {
	Text    string `json:"text" validate:"required"`
	Context string `json:"context,omitempty"`
	Source  string `json:"source,omitempty"`
}

// SentimentResult is the outcome of a sentiment analysis.
// When Sentiment is ERROR the numeric fields are zero and Insights describes the failure.
type SentimentResult struct {
	Sentiment        string   `json:"sentiment"`
	Score            float64  `json:"score"`
	Confidence       float64  `json:"confidence"`
	DominantEmotions []string `json:"dominant_emotions"`
	KeyPhrases       []string `json:"key_phrases"`
	Insights         string   `json:"insights"`
	OriginalText     string   `json:"originalText"`
	RequestID        string   `json:"requestId"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
}

// IsError reports whether the analysis failed.
func (r SentimentResult) IsError() bool {
	return r.Sentiment == SentimentError
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string `json:"role" validate:"required"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest is the input to a conversation analysis.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Context  string        `json:"context,omitempty"`
	UserID   string        `json:"userId,omitempty"`
}

// MessageAnalytics holds the per-message analysis of a conversation.
type MessageAnalytics struct {
	Sentiment        SentimentResult `json:"sentiment"`
	Topics           []string        `json:"topics"`
	Intent           string          `json:"intent"`
	Importance       int             `json:"importance"`
	ContainsQuestion bool            `json:"containsQuestion"`
}

// ChatResult is the outcome of a conversation analysis.
// MessageAnalytics is keyed by the 0-based index of the message in the request.
type ChatResult struct {
	OverallSentiment    *SentimentResult         `json:"overallSentiment"`
	MainTopics          []string                 `json:"mainTopics"`
	UserIntents         []string                 `json:"userIntents"`
	KeyQuestions        []string                 `json:"keyQuestions"`
	IdentifiedIssues    []string                 `json:"identifiedIssues"`
	ActionItems         []string                 `json:"actionItems"`
	ConversationSummary string                   `json:"conversationSummary"`
	MessageAnalytics    map[int]MessageAnalytics `json:"messageAnalytics"`
	RequestID           string                   `json:"requestId"`
	ProcessingTimeMs    int64                    `json:"processingTimeMs"`
}
