package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type UploadResponse struct {
	DocumentID   string `json:"document_id"`
	OriginalName string `json:"original_name,omitempty"`
	Chunks       int    `json:"chunks"`
	Indexed      int    `json:"indexed"`
}

type ChatResponse struct {
	ChatId  string   `json:"chat_id"`
	Message *Message `json:"message"`
}

type ProcessingDocumentStatus struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Total    int     `json:"total"`
	Done     int     `json:"done"`
}

type PaginateResponse struct {
	Total    int64       `json:"total"`
	Elements interface{} `json:"elements"`
	Page     int64       `json:"page"`
	Limit    int64       `json:"limit"`
}

type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	Source     string `json:"source,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}
