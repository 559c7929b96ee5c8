package service

import (
	"context"
	"errors"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/exam/domain"
	examrepo "github.com/AlibekovAA/examination-system/internal/exam/repository"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

type Service interface {
	AddExam(ctx context.Context, def ExamDefinition, createdBy string) (string, error)
	GetExam(ctx context.Context, id string) (domain.Exam, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
	UpdateExam(ctx context.Context, id string, update ExamUpdate) (domain.Exam, error)
	DeleteExam(ctx context.Context, id string) error

	AddQuestion(ctx context.Context, input QuestionInput, createdBy string) (domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)

	StartExam(ctx context.Context, examID, studentID string) (domain.Attempt, error)
	AttemptQuestions(ctx context.Context, attemptID, studentID string) ([]domain.Question, error)
	RecordAnswer(ctx context.Context, attemptID, studentID string, input AnswerInput) error
	SubmitExam(ctx context.Context, attemptID, studentID string) (domain.Score, error)
	GetResult(ctx context.Context, attemptID, studentID string) (domain.Score, error)
}

type ExamService struct {
	repo  examrepo.Repository
	ids   commoncrypto.IDGenerator
	clock clock.Clock
	log   *logger.Logger
}

func NewExamService(repo examrepo.Repository, ids commoncrypto.IDGenerator, clock clock.Clock, log *logger.Logger) *ExamService {
	return &ExamService{
		repo:  repo,
		ids:   ids,
		clock: clock,
		log:   log,
	}
}

func (s *ExamService) AddExam(ctx context.Context, def ExamDefinition, createdBy string) (string, error) {
	if err := validateInput(def); err != nil {
		return "", err
	}

	id, err := s.ids.NewID()
	if err != nil {
		return "", ErrPersistence.WithCause(err)
	}

	exam := domain.Exam{
		ID:          id,
		Name:        def.Name,
		Description: def.Description,
		CreatedBy:   createdBy,
		CreatedAt:   s.clock.Now(),
		QuestionIDs: def.QuestionIDs,
	}

	if err := s.repo.CreateExam(ctx, exam); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"exam_name":      def.Name,
			"question_count": len(def.QuestionIDs),
			"action":         "create_exam_failed",
		}).Errorf("create exam failed: %v", err)
		return "", ErrPersistence.WithCause(err)
	}

	metrics.ExamsCreated.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"exam_id":        id,
		"question_count": len(def.QuestionIDs),
		"action":         "exam_created",
	}).Info("exam created")
	return id, nil
}

func (s *ExamService) GetExam(ctx context.Context, id string) (domain.Exam, error) {
	exam, err := s.repo.GetExam(ctx, id)
	if err != nil {
		return domain.Exam{}, s.mapRepoError(ctx, "get_exam", err)
	}
	return exam, nil
}

func (s *ExamService) ListExams(ctx context.Context) ([]domain.Exam, error) {
	exams, err := s.repo.ListExams(ctx)
	if err != nil {
		return nil, s.mapRepoError(ctx, "list_exams", err)
	}
	return exams, nil
}

func (s *ExamService) UpdateExam(ctx context.Context, id string, update ExamUpdate) (domain.Exam, error) {
	if err := validateInput(update); err != nil {
		return domain.Exam{}, err
	}

	err := s.repo.UpdateExam(ctx, domain.Exam{
		ID:          id,
		Name:        update.Name,
		Description: update.Description,
		UpdatedAt:   s.clock.Now(),
	})
	if err != nil {
		return domain.Exam{}, s.mapRepoError(ctx, "update_exam", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"exam_id": id,
		"action":  "exam_updated",
	}).Info("exam updated")
	return s.GetExam(ctx, id)
}

func (s *ExamService) DeleteExam(ctx context.Context, id string) error {
	if err := s.repo.DeleteExam(ctx, id); err != nil {
		return s.mapRepoError(ctx, "delete_exam", err)
	}

	metrics.ExamsDeleted.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"exam_id": id,
		"action":  "exam_deleted",
	}).Info("exam deleted")
	return nil
}

func (s *ExamService) AddQuestion(ctx context.Context, input QuestionInput, createdBy string) (domain.Question, error) {
	if err := validateInput(input); err != nil {
		return domain.Question{}, err
	}

	id, err := s.ids.NewID()
	if err != nil {
		return domain.Question{}, ErrPersistence.WithCause(err)
	}

	question := domain.Question{
		ID:        id,
		Text:      input.Text,
		Mark:      input.Mark,
		CreatedBy: createdBy,
		CreatedAt: s.clock.Now(),
	}
	if question.Mark == 0 {
		question.Mark = 1
	}
	for i, c := range input.Choices {
		choiceID, err := s.ids.NewID()
		if err != nil {
			return domain.Question{}, ErrPersistence.WithCause(err)
		}
		question.Choices = append(question.Choices, domain.Choice{
			ID:         choiceID,
			QuestionID: id,
			Text:       c.Text,
			IsCorrect:  c.IsCorrect,
			Position:   i,
		})
	}

	if len(question.Choices) < 2 || question.CorrectChoices() != 1 {
		return domain.Question{}, ErrInvalidQuestion
	}

	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return domain.Question{}, s.mapRepoError(ctx, "create_question", err)
	}

	metrics.QuestionsCreated.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"question_id": id,
		"choices":     len(question.Choices),
		"action":      "question_created",
	}).Info("question created")
	return question, nil
}

func (s *ExamService) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, s.mapRepoError(ctx, "get_question", err)
	}
	return q, nil
}

// StartExam returns the student's open attempt, creating it on first call.
func (s *ExamService) StartExam(ctx context.Context, examID, studentID string) (domain.Attempt, error) {
	if _, err := s.repo.GetExam(ctx, examID); err != nil {
		return domain.Attempt{}, s.mapRepoError(ctx, "start_exam", err)
	}

	attempt, err := s.repo.FindAttempt(ctx, examID, studentID)
	switch {
	case err == nil:
		return openAttempt(attempt)
	case !errors.Is(err, examrepo.ErrAttemptNotFound):
		return domain.Attempt{}, s.mapRepoError(ctx, "start_exam", err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return domain.Attempt{}, ErrPersistence.WithCause(err)
	}
	attempt = domain.Attempt{
		ID:        id,
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: s.clock.Now(),
	}

	err = s.repo.CreateAttempt(ctx, attempt)
	if errors.Is(err, examrepo.ErrAttemptExists) {
		// A concurrent start won; hand back its attempt.
		existing, findErr := s.repo.FindAttempt(ctx, examID, studentID)
		if findErr != nil {
			return domain.Attempt{}, s.mapRepoError(ctx, "start_exam", findErr)
		}
		return openAttempt(existing)
	}
	if err != nil {
		return domain.Attempt{}, s.mapRepoError(ctx, "start_exam", err)
	}

	metrics.AttemptsStarted.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"exam_id":    examID,
		"attempt_id": id,
		"student_id": studentID,
		"action":     "attempt_started",
	}).Info("exam attempt started")
	return attempt, nil
}

func openAttempt(attempt domain.Attempt) (domain.Attempt, error) {
	if attempt.IsSubmitted() {
		return domain.Attempt{}, ErrAttemptSubmitted
	}
	return attempt, nil
}

// AttemptQuestions lists the questions of the attempt's exam for the student
// sitting it.
func (s *ExamService) AttemptQuestions(ctx context.Context, attemptID, studentID string) ([]domain.Question, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListExamQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, s.mapRepoError(ctx, "attempt_questions", err)
	}
	return questions, nil
}

func (s *ExamService) RecordAnswer(ctx context.Context, attemptID, studentID string, input AnswerInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if attempt.IsSubmitted() {
		return ErrAttemptSubmitted
	}

	ok, err := s.repo.ChoiceInExam(ctx, attempt.ExamID, input.QuestionID, input.ChoiceID)
	if err != nil {
		return s.mapRepoError(ctx, "record_answer", err)
	}
	if !ok {
		s.log.WithFields(ctx, logger.Fields{
			"attempt_id":  attemptID,
			"question_id": input.QuestionID,
			"action":      "record_answer_invalid",
		}).Warn("record answer rejected: choice not in exam")
		return ErrInvalidAnswer
	}

	err = s.repo.UpsertAnswer(ctx, domain.Answer{
		AttemptID:  attemptID,
		QuestionID: input.QuestionID,
		ChoiceID:   input.ChoiceID,
		AnsweredAt: s.clock.Now(),
	})
	if err != nil {
		return s.mapRepoError(ctx, "record_answer", err)
	}

	metrics.AnswersRecorded.Inc()
	return nil
}

func (s *ExamService) SubmitExam(ctx context.Context, attemptID, studentID string) (domain.Score, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return domain.Score{}, err
	}
	if attempt.IsSubmitted() {
		return domain.Score{}, ErrAttemptSubmitted
	}

	score, err := s.repo.SubmitAttempt(ctx, attemptID, s.clock.Now())
	if err != nil {
		return domain.Score{}, s.mapRepoError(ctx, "submit_exam", err)
	}

	metrics.AttemptsSubmitted.Inc()
	metrics.AttemptScoreRatio.Observe(score.Ratio())
	s.log.WithFields(ctx, logger.Fields{
		"attempt_id": attemptID,
		"exam_id":    attempt.ExamID,
		"correct":    score.Correct,
		"total":      score.Total,
		"action":     "attempt_submitted",
	}).Info("exam attempt submitted")
	return score, nil
}

func (s *ExamService) GetResult(ctx context.Context, attemptID, studentID string) (domain.Score, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return domain.Score{}, err
	}
	if !attempt.IsSubmitted() || attempt.Score == nil {
		return domain.Score{}, ErrAttemptNotSubmitted
	}
	return *attempt.Score, nil
}

// ownedAttempt hides other students' attempts behind NotFound.
func (s *ExamService) ownedAttempt(ctx context.Context, attemptID, studentID string) (domain.Attempt, error) {
	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, s.mapRepoError(ctx, "get_attempt", err)
	}
	if attempt.StudentID != studentID {
		s.log.WithFields(ctx, logger.Fields{
			"attempt_id": attemptID,
			"student_id": studentID,
			"action":     "attempt_owner_mismatch",
		}).Warn("attempt requested by another student")
		return domain.Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *ExamService) mapRepoError(ctx context.Context, action string, err error) error {
	switch {
	case errors.Is(err, examrepo.ErrExamNotFound):
		return ErrExamNotFound
	case errors.Is(err, examrepo.ErrQuestionNotFound):
		return ErrQuestionNotFound
	case errors.Is(err, examrepo.ErrAttemptNotFound):
		return ErrAttemptNotFound
	case errors.Is(err, examrepo.ErrAttemptSubmitted):
		return ErrAttemptSubmitted
	case commonerrors.IsDomainError(err):
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"action": action + "_failed",
	}).Errorf("%s failed: %v", action, err)
	return ErrPersistence.WithCause(err)
}
