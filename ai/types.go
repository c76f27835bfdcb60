package ai

// MessageRole identifies the author of a conversation message.
type MessageRole int

const (
	// RoleVisitor is the website visitor talking to the chatbot.
	RoleVisitor MessageRole = iota + 1
	// RoleAssistant is the chatbot.
	RoleAssistant
)

// Message is one turn of recent conversation history.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionRequest carries everything the model needs to answer a
// visitor question: the chatbot's system instruction, the retrieved
// knowledge context, recent history, and the question itself.
type CompletionRequest struct {
	SystemPrompt string
	Context      string // retrieved knowledge, already tagged with source locators
	History      []Message
	Question     string
}

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error // set on the final chunk if the stream failed mid-flight
}
