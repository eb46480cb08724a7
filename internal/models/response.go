package models

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SubmissionResult is the data payload of a successful submission
type SubmissionResult struct {
	Slug string        `json:"slug"`
	Idea SubmittedIdea `json:"idea"`
}

// SubmittedIdea is the short view of a freshly queued idea
type SubmittedIdea struct {
	Title  string     `json:"title"`
	Status IdeaStatus `json:"status"`
}
