package domain

import "time"

type Exam struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// QuestionIDs keeps the order the questions were attached in.
	QuestionIDs []string
}

type Choice struct {
	ID         string
	QuestionID string
	Text       string
	IsCorrect  bool
	Position   int
}

type Question struct {
	ID        string
	Text      string
	Mark      int
	CreatedBy string
	CreatedAt time.Time
	Choices   []Choice
}

func (q Question) CorrectChoices() int {
	n := 0
	for _, c := range q.Choices {
		if c.IsCorrect {
			n++
		}
	}
	return n
}

// Attempt is one student's sitting of one exam.
type Attempt struct {
	ID          string
	ExamID      string
	StudentID   string
	StartedAt   time.Time
	SubmittedAt *time.Time
	Score       *Score
}

func (a Attempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

type Answer struct {
	AttemptID  string
	QuestionID string
	ChoiceID   string
	AnsweredAt time.Time
}

// GradedAnswer is an answer joined with the correctness of the chosen choice.
type GradedAnswer struct {
	QuestionID string
	ChoiceID   string
	IsCorrect  bool
}

type Score struct {
	Correct int
	Total   int
}

func (s Score) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// ComputeScore counts correct answers to questions that belong to the exam.
// Total is the number of distinct exam questions, answered or not.
func ComputeScore(questionIDs []string, answers []GradedAnswer) Score {
	inExam := make(map[string]bool, len(questionIDs))
	for _, id := range questionIDs {
		inExam[id] = true
	}

	counted := make(map[string]bool, len(answers))
	correct := 0
	for _, a := range answers {
		if !inExam[a.QuestionID] || counted[a.QuestionID] {
			continue
		}
		counted[a.QuestionID] = true
		if a.IsCorrect {
			correct++
		}
	}

	return Score{Correct: correct, Total: len(inExam)}
}
