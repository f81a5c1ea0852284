package types

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type BatchCreateUserRequest struct {
	Users []CreateUserRequest `json:"users"`
}

type UpdateUserRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type UploadRequest struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// QueryRequest asks the local engine for a heuristic answer.
type QueryRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// AskAIRequest routes retrieval output through the chat model instead of
// the heuristic synthesizer.
type AskAIRequest struct {
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

type ChatRequest struct {
	ChatId   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}
