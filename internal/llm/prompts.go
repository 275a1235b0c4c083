package llm

// SystemPrompt is sent with every gateway call.
const SystemPrompt = "You are an AI assistant named Claude, developed by Anthropic. You are helpful, harmless, and honest. " +
	"Always provide clear, concise, and accurate responses to the best of your ability."

// Fixed failure texts returned in Completion.Text.
const (
	// ApologyText is returned when the backend answers without usable text content.
	ApologyText = "Sorry, I couldn't generate a response at this time."

	// ErrorPrefix prefixes the error message when the call itself fails.
	ErrorPrefix = "Error: "

	// InvalidResponseFormat is the metrics error for a response without text content.
	InvalidResponseFormat = "Invalid response format"
)

const (
	DefaultModel       = "claude-3-haiku-20240307"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)
