package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/exam/domain"
	examrepo "github.com/AlibekovAA/examination-system/internal/exam/repository"
	"github.com/AlibekovAA/examination-system/internal/exam/service"
)

// memExamRepo mirrors the postgres repository closely enough for service
// tests. The xxxFunc fields override single operations.
type memExamRepo struct {
	mu        sync.Mutex
	exams     map[string]domain.Exam
	questions map[string]domain.Question
	attempts  map[string]domain.Attempt
	answers   map[string]map[string]string

	createExamFunc    func(ctx context.Context, exam domain.Exam) error
	listExamsFunc     func(ctx context.Context) ([]domain.Exam, error)
	findAttemptFunc   func(ctx context.Context, examID, studentID string) (domain.Attempt, error)
	createAttemptFunc func(ctx context.Context, attempt domain.Attempt) error
}

func newMemExamRepo() *memExamRepo {
	return &memExamRepo{
		exams:     make(map[string]domain.Exam),
		questions: make(map[string]domain.Question),
		attempts:  make(map[string]domain.Attempt),
		answers:   make(map[string]map[string]string),
	}
}

func (r *memExamRepo) CreateExam(ctx context.Context, exam domain.Exam) error {
	if r.createExamFunc != nil {
		return r.createExamFunc(ctx, exam)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qid := range exam.QuestionIDs {
		if _, ok := r.questions[qid]; !ok {
			return fmt.Errorf("foreign key violation: question %s", qid)
		}
	}
	r.exams[exam.ID] = exam
	return nil
}

func (r *memExamRepo) GetExam(ctx context.Context, id string) (domain.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return domain.Exam{}, examrepo.ErrExamNotFound
	}
	return exam, nil
}

func (r *memExamRepo) ListExams(ctx context.Context) ([]domain.Exam, error) {
	if r.listExamsFunc != nil {
		return r.listExamsFunc(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Exam, 0, len(r.exams))
	for _, e := range r.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memExamRepo) UpdateExam(ctx context.Context, exam domain.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.exams[exam.ID]
	if !ok {
		return examrepo.ErrExamNotFound
	}
	current.Name = exam.Name
	current.Description = exam.Description
	current.UpdatedAt = exam.UpdatedAt
	r.exams[exam.ID] = current
	return nil
}

func (r *memExamRepo) DeleteExam(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return examrepo.ErrExamNotFound
	}
	delete(r.exams, id)
	return nil
}

func (r *memExamRepo) CreateQuestion(ctx context.Context, question domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions[question.ID] = question
	return nil
}

func (r *memExamRepo) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return domain.Question{}, examrepo.ErrQuestionNotFound
	}
	return q, nil
}

func (r *memExamRepo) ListExamQuestions(ctx context.Context, examID string) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[examID]
	if !ok {
		return []domain.Question{}, nil
	}
	out := make([]domain.Question, 0, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		out = append(out, r.questions[id])
	}
	return out, nil
}

func (r *memExamRepo) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	if r.createAttemptFunc != nil {
		return r.createAttemptFunc(ctx, attempt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.ExamID == attempt.ExamID && a.StudentID == attempt.StudentID {
			return examrepo.ErrAttemptExists
		}
	}
	r.attempts[attempt.ID] = attempt
	return nil
}

func (r *memExamRepo) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return domain.Attempt{}, examrepo.ErrAttemptNotFound
	}
	return a, nil
}

func (r *memExamRepo) FindAttempt(ctx context.Context, examID, studentID string) (domain.Attempt, error) {
	if r.findAttemptFunc != nil {
		return r.findAttemptFunc(ctx, examID, studentID)
	}
	return r.findAttempt(examID, studentID)
}

func (r *memExamRepo) findAttempt(examID, studentID string) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			return a, nil
		}
	}
	return domain.Attempt{}, examrepo.ErrAttemptNotFound
}

func (r *memExamRepo) ChoiceInExam(ctx context.Context, examID, questionID, choiceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[examID]
	if !ok {
		return false, nil
	}
	inExam := false
	for _, id := range exam.QuestionIDs {
		if id == questionID {
			inExam = true
		}
	}
	if !inExam {
		return false, nil
	}
	for _, c := range r.questions[questionID].Choices {
		if c.ID == choiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memExamRepo) UpsertAnswer(ctx context.Context, answer domain.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[answer.AttemptID].IsSubmitted() {
		return examrepo.ErrAttemptSubmitted
	}
	if r.answers[answer.AttemptID] == nil {
		r.answers[answer.AttemptID] = make(map[string]string)
	}
	r.answers[answer.AttemptID][answer.QuestionID] = answer.ChoiceID
	return nil
}

func (r *memExamRepo) SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time) (domain.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return domain.Score{}, examrepo.ErrAttemptNotFound
	}
	if attempt.IsSubmitted() {
		return domain.Score{}, examrepo.ErrAttemptSubmitted
	}

	var graded []domain.GradedAnswer
	for qid, cid := range r.answers[attemptID] {
		correct := false
		for _, c := range r.questions[qid].Choices {
			if c.ID == cid {
				correct = c.IsCorrect
			}
		}
		graded = append(graded, domain.GradedAnswer{QuestionID: qid, ChoiceID: cid, IsCorrect: correct})
	}
	score := domain.ComputeScore(r.exams[attempt.ExamID].QuestionIDs, graded)

	attempt.SubmittedAt = &submittedAt
	attempt.Score = &score
	r.attempts[attemptID] = attempt
	return score, nil
}

type sequenceIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", g.next), nil
}

type examFixture struct {
	svc   *service.ExamService
	repo  *memExamRepo
	clock *clock.MockClock
}

func setupExamService(t *testing.T) *examFixture {
	t.Helper()
	log, err := logger.New("", "test", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	repo := newMemExamRepo()
	clk := clock.NewMockClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return &examFixture{
		svc:   service.NewExamService(repo, &sequenceIDGenerator{}, clk, log),
		repo:  repo,
		clock: clk,
	}
}
