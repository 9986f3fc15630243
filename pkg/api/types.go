package api

import "encoding/json"

// Roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message in the OpenAI-compatible format the
// backend accepts.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

// LoginRequest is the body of POST /auth.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// AuthResponse is returned by both /auth and /register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`

	// UserID is an int or a string depending on the backend's store.
	UserID json.RawMessage `json:"user_id,omitempty"`
	Status string          `json:"status,omitempty"`
}

// RelatedQuestionsRequest is the body of POST /v1/related_questions.
type RelatedQuestionsRequest struct {
	Question string `json:"question"`
}

// RelatedQuestionsResponse carries suggested follow-up questions. A failed
// generation is reported in-band with Status "error" and a Message.
type RelatedQuestionsResponse struct {
	RelatedQuestions []string `json:"related_questions"`
	Status           string   `json:"status,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// ReferenceFile is a knowledge base document related to a question.
type ReferenceFile struct {
	FileName    string  `json:"file_name"`
	FilePath    string  `json:"file_path,omitempty"`
	FileType    string  `json:"file_type,omitempty"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
	Source      string  `json:"source,omitempty"`
	DownloadURL string  `json:"download_url,omitempty"`
}

// ReferenceFilesRequest is folded into the query string of
// GET /v1/reference_files.
type ReferenceFilesRequest struct {
	Query      string `json:"query,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

// ReferenceFilesResponse is returned by GET /v1/reference_files.
type ReferenceFilesResponse struct {
	Status         string          `json:"status,omitempty"`
	Message        string          `json:"message,omitempty"`
	ReferenceFiles []ReferenceFile `json:"reference_files"`
	Source         string          `json:"source,omitempty"`
}

// ConversationMessage is a stored message inside a conversation.
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ConversationMessagesResponse is returned by
// GET /conversations/{id}/messages.
type ConversationMessagesResponse struct {
	Messages []ConversationMessage `json:"messages"`
}

// Conversation is an entry of GET /conversations.
type Conversation struct {
	ID       int                   `json:"conversation_id"`
	Title    string                `json:"title"`
	Messages []ConversationMessage `json:"messages"`
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// CreateConversationResponse is returned by POST /conversations.
type CreateConversationResponse struct {
	ConversationID int `json:"conversation_id"`
}

// UpdateConversationRequest is the body of PATCH /conversations/{id}.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// StatusResponse is the {"status", "message"} result of conversation updates
// and deletions.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// MessageCreateRequest is the body of POST /conversations/{id}/messages.
type MessageCreateRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QuestionRequest is the body of POST /v1/questions.
type QuestionRequest struct {
	Content        string `json:"content"`
	ConversationID *int   `json:"conversation_id,omitempty"`
}

// QuestionResponse is returned by POST /v1/questions.
type QuestionResponse struct {
	QuestionID string `json:"question_id"`
	Status     string `json:"status,omitempty"`
}

// APIKeyAction is the body of POST /api-keys.
type APIKeyAction struct {
	Action string `json:"action"` // "create" or "revoke"
	Key    string `json:"key,omitempty"`
}

// APIKey is one entry of GET /api-keys.
type APIKey struct {
	ID        string `json:"id"`
	Key       string `json:"api_key"`
	CreatedAt string `json:"created_at,omitempty"`
	LastUsed  string `json:"last_used,omitempty"`
}

// APIKeysResponse is returned by GET /api-keys.
type APIKeysResponse struct {
	Data []APIKey `json:"data"`
}

// UploadResponse is the JSON body returned by file upload endpoints.
type UploadResponse struct {
	Message string `json:"message"`
}
