package models

type JobRequest struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

type CandidateRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type ReplyRequest struct {
	Message string `json:"message"`
}

type ReplyResponse struct {
	Response ReplyMessage    `json:"response"`
	Status   InterviewStatus `json:"status"`
	IsEnded  bool            `json:"isEnded"`
	Progress ProgressState   `json:"progress"`
}

type ReplyMessage struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}

type CreateInterviewResponse struct {
	Message      string     `json:"message"`
	Interview    *Interview `json:"interview"`
	MessageCount int        `json:"messageCount"`
}

type InterviewDetailResponse struct {
	Interview    *Interview    `json:"interview"`
	Conversation *Conversation `json:"conversation"`
}

type VideoUploadResponse struct {
	Message   string     `json:"message"`
	VideoURL  string     `json:"videoUrl"`
	Interview *Interview `json:"interview"`
}

type TranscriptMatch struct {
	InterviewID string  `json:"interviewId"`
	JobID       string  `json:"jobId"`
	CandidateID string  `json:"candidateId"`
	Score       float32 `json:"score"`
	Excerpt     string  `json:"excerpt"`
}

type SearchResponse struct {
	Query   string            `json:"query"`
	Results []TranscriptMatch `json:"results"`
}

type ErrorResponse struct {
	Error      string       `json:"error"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"fields,omitempty"`
	ResourceID string       `json:"resource_id,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
