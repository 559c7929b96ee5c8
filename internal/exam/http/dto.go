package http

import (
	"time"

	"github.com/AlibekovAA/examination-system/internal/exam/domain"
)

type createExamRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	QuestionIDs []string `json:"questionsIDs"`
}

type updateExamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type choiceRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type createQuestionRequest struct {
	Text    string          `json:"text"`
	Mark    int             `json:"mark"`
	Choices []choiceRequest `json:"choices"`
}

type answerRequest struct {
	QuestionID string `json:"questionID"`
	ChoiceID   string `json:"choiceID"`
}

type idResponse struct {
	ID string `json:"id"`
}

type examResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	QuestionIDs []string  `json:"questionsIDs"`
}

type choiceResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type questionResponse struct {
	ID      string           `json:"id"`
	Text    string           `json:"text"`
	Mark    int              `json:"mark"`
	Choices []choiceResponse `json:"choices"`
}

// attemptChoiceResponse never carries correctness.
type attemptChoiceResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type attemptQuestionResponse struct {
	ID      string                  `json:"id"`
	Text    string                  `json:"text"`
	Mark    int                     `json:"mark"`
	Choices []attemptChoiceResponse `json:"choices"`
}

type attemptResponse struct {
	ID          string     `json:"id"`
	ExamID      string     `json:"examID"`
	StudentID   string     `json:"studentID"`
	StartedAt   time.Time  `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type scoreResponse struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"`
}

func toExamResponse(e domain.Exam) examResponse {
	ids := e.QuestionIDs
	if ids == nil {
		ids = []string{}
	}
	return examResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		QuestionIDs: ids,
	}
}

func toQuestionResponse(q domain.Question) questionResponse {
	choices := make([]choiceResponse, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, choiceResponse{ID: c.ID, Text: c.Text, IsCorrect: c.IsCorrect})
	}
	return questionResponse{ID: q.ID, Text: q.Text, Mark: q.Mark, Choices: choices}
}

func toAttemptQuestionResponse(q domain.Question) attemptQuestionResponse {
	choices := make([]attemptChoiceResponse, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, attemptChoiceResponse{ID: c.ID, Text: c.Text})
	}
	return attemptQuestionResponse{ID: q.ID, Text: q.Text, Mark: q.Mark, Choices: choices}
}

func toAttemptResponse(a domain.Attempt) attemptResponse {
	return attemptResponse{
		ID:          a.ID,
		ExamID:      a.ExamID,
		StudentID:   a.StudentID,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
	}
}

func toScoreResponse(s domain.Score) scoreResponse {
	return scoreResponse{Correct: s.Correct, Total: s.Total, Score: s.Ratio()}
}
