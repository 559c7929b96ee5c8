package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/examination-system/internal/common/db"
	"github.com/AlibekovAA/examination-system/internal/exam/domain"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptExists    = errors.New("attempt already exists")
	ErrAttemptSubmitted = errors.New("attempt already submitted")
)

type Repository interface {
	CreateExam(ctx context.Context, exam domain.Exam) error
	GetExam(ctx context.Context, id string) (domain.Exam, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
	UpdateExam(ctx context.Context, exam domain.Exam) error
	DeleteExam(ctx context.Context, id string) error

	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	// ListExamQuestions returns the exam's questions with their choices in
	// exam order.
	ListExamQuestions(ctx context.Context, examID string) ([]domain.Question, error)

	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	FindAttempt(ctx context.Context, examID, studentID string) (domain.Attempt, error)
	// ChoiceInExam reports whether questionID is part of the exam and
	// choiceID is one of its choices.
	ChoiceInExam(ctx context.Context, examID, questionID, choiceID string) (bool, error)
	// UpsertAnswer fails with ErrAttemptSubmitted once the attempt is closed.
	UpsertAnswer(ctx context.Context, answer domain.Answer) error
	// SubmitAttempt grades and closes the attempt in one transaction.
	SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time) (domain.Score, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
	tx   db.TxManager
}

func NewPgRepository(pool *pgxpool.Pool, tx db.TxManager) *PgRepository {
	return &PgRepository{pool: pool, tx: tx}
}

func (r *PgRepository) CreateExam(ctx context.Context, exam domain.Exam) error {
	return r.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		_, err := tx.Exec(
			ctx,
			`INSERT INTO exams (id, name, description, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $5)`,
			exam.ID,
			exam.Name,
			exam.Description,
			exam.CreatedBy,
			exam.CreatedAt,
		)
		if err := db.HandleExecError(err, "create exam", start); err != nil {
			return err
		}
		return copyExamQuestions(ctx, tx, exam.ID, exam.QuestionIDs)
	})
}

func copyExamQuestions(ctx context.Context, tx pgx.Tx, examID string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(questionIDs))
	for i, qid := range questionIDs {
		rows = append(rows, []any{examID, qid, i})
	}

	start := time.Now()
	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"exam_questions"},
		[]string{"exam_id", "question_id", "position"},
		pgx.CopyFromRows(rows),
	)
	return db.HandleExecError(err, "attach exam questions", start)
}

func (r *PgRepository) GetExam(ctx context.Context, id string) (domain.Exam, error) {
	start := time.Now()
	var exam domain.Exam
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, name, description, created_by, created_at, updated_at FROM exams WHERE id = $1`,
		id,
	).Scan(&exam.ID, &exam.Name, &exam.Description, &exam.CreatedBy, &exam.CreatedAt, &exam.UpdatedAt)
	if err := db.HandleQueryError(err, ErrExamNotFound, "get exam", start); err != nil {
		return domain.Exam{}, err
	}

	ids, err := r.examQuestionIDs(ctx, r.pool, id)
	if err != nil {
		return domain.Exam{}, err
	}
	exam.QuestionIDs = ids
	return exam, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PgRepository) examQuestionIDs(ctx context.Context, q querier, examID string) ([]string, error) {
	start := time.Now()
	rows, err := q.Query(ctx, `SELECT question_id FROM exam_questions WHERE exam_id = $1 ORDER BY position`, examID)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam questions", start)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exam question: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam questions", start)
	}
	db.MeasureQueryDuration("list exam questions", start)
	return ids, nil
}

func (r *PgRepository) ListExams(ctx context.Context) ([]domain.Exam, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT e.id, e.name, e.description, e.created_by, e.created_at, e.updated_at,
		        COALESCE(array_agg(q.question_id::text ORDER BY q.position) FILTER (WHERE q.question_id IS NOT NULL), '{}')
		 FROM exams e
		 LEFT JOIN exam_questions q ON q.exam_id = e.id
		 GROUP BY e.id
		 ORDER BY e.created_at, e.id`,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list exams", start)
	}
	defer rows.Close()

	exams := []domain.Exam{}
	for rows.Next() {
		var exam domain.Exam
		if err := rows.Scan(
			&exam.ID,
			&exam.Name,
			&exam.Description,
			&exam.CreatedBy,
			&exam.CreatedAt,
			&exam.UpdatedAt,
			&exam.QuestionIDs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, exam)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list exams", start)
	}
	db.MeasureQueryDuration("list exams", start)
	return exams, nil
}

func (r *PgRepository) UpdateExam(ctx context.Context, exam domain.Exam) error {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE exams SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		exam.ID,
		exam.Name,
		exam.Description,
		exam.UpdatedAt,
	)
	if err := db.HandleExecError(err, "update exam", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (r *PgRepository) DeleteExam(ctx context.Context, id string) error {
	return r.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		_, err := tx.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, id)
		if err := db.HandleExecError(err, "detach exam questions", start); err != nil {
			return err
		}

		start = time.Now()
		tag, err := tx.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
		if err := db.HandleExecError(err, "delete exam", start); err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrExamNotFound
		}
		return nil
	})
}

func (r *PgRepository) CreateQuestion(ctx context.Context, question domain.Question) error {
	return r.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		_, err := tx.Exec(
			ctx,
			`INSERT INTO questions (id, text, mark, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`,
			question.ID,
			question.Text,
			question.Mark,
			question.CreatedBy,
			question.CreatedAt,
		)
		if err := db.HandleExecError(err, "create question", start); err != nil {
			return err
		}

		rows := make([][]any, 0, len(question.Choices))
		for _, c := range question.Choices {
			rows = append(rows, []any{c.ID, question.ID, c.Text, c.IsCorrect, c.Position})
		}

		start = time.Now()
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"choices"},
			[]string{"id", "question_id", "text", "is_correct", "position"},
			pgx.CopyFromRows(rows),
		)
		return db.HandleExecError(err, "create question choices", start)
	})
}

func (r *PgRepository) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	start := time.Now()
	var q domain.Question
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, text, mark, created_by, created_at FROM questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Text, &q.Mark, &q.CreatedBy, &q.CreatedAt)
	if err := db.HandleQueryError(err, ErrQuestionNotFound, "get question", start); err != nil {
		return domain.Question{}, err
	}

	start = time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, question_id, text, is_correct, position FROM choices WHERE question_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return domain.Question{}, db.HandleQueryError(err, nil, "list question choices", start)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect, &c.Position); err != nil {
			return domain.Question{}, fmt.Errorf("failed to scan choice: %w", err)
		}
		q.Choices = append(q.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return domain.Question{}, db.HandleQueryError(err, nil, "list question choices", start)
	}
	db.MeasureQueryDuration("list question choices", start)
	return q, nil
}

func (r *PgRepository) ListExamQuestions(ctx context.Context, examID string) ([]domain.Question, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT q.id, q.text, q.mark, q.created_by, q.created_at
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.position`,
		examID,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam question details", start)
	}

	questions := []domain.Question{}
	index := make(map[string]int)
	ids := []string{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Mark, &q.CreatedBy, &q.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan exam question: %w", err)
		}
		index[q.ID] = len(questions)
		ids = append(ids, q.ID)
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam question details", start)
	}
	db.MeasureQueryDuration("list exam question details", start)
	if len(ids) == 0 {
		return questions, nil
	}

	start = time.Now()
	choiceRows, err := r.pool.Query(
		ctx,
		`SELECT id, question_id, text, is_correct, position FROM choices
		 WHERE question_id = ANY($1::uuid[]) ORDER BY question_id, position`,
		ids,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list choices for exam", start)
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var c domain.Choice
		if err := choiceRows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		i := index[c.QuestionID]
		questions[i].Choices = append(questions[i].Choices, c)
	}
	if err := choiceRows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list choices for exam", start)
	}
	db.MeasureQueryDuration("list choices for exam", start)
	return questions, nil
}

const attemptColumns = `id, exam_id, student_id, started_at, submitted_at, correct, total`

func (r *PgRepository) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO exam_students (id, exam_id, student_id, started_at) VALUES ($1, $2, $3, $4)`,
		attempt.ID,
		attempt.ExamID,
		attempt.StudentID,
		attempt.StartedAt,
	)
	if _, ok := db.UniqueViolation(err); ok {
		db.MeasureQueryDuration("create attempt", start)
		return ErrAttemptExists
	}
	if db.IsForeignKeyViolation(err) {
		db.MeasureQueryDuration("create attempt", start)
		return ErrExamNotFound
	}
	return db.HandleExecError(err, "create attempt", start)
}

func (r *PgRepository) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	start := time.Now()
	attempt, err := scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM exam_students WHERE id = $1`, id))
	if err := db.HandleQueryError(err, ErrAttemptNotFound, "get attempt", start); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

func (r *PgRepository) FindAttempt(ctx context.Context, examID, studentID string) (domain.Attempt, error) {
	start := time.Now()
	attempt, err := scanAttempt(r.pool.QueryRow(
		ctx,
		`SELECT `+attemptColumns+` FROM exam_students WHERE exam_id = $1 AND student_id = $2`,
		examID,
		studentID,
	))
	if err := db.HandleQueryError(err, ErrAttemptNotFound, "find attempt", start); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

func (r *PgRepository) ChoiceInExam(ctx context.Context, examID, questionID, choiceID string) (bool, error) {
	start := time.Now()
	var ok bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		 	SELECT 1 FROM exam_questions eq
		 	JOIN choices c ON c.question_id = eq.question_id
		 	WHERE eq.exam_id = $1 AND eq.question_id = $2 AND c.id = $3
		 )`,
		examID,
		questionID,
		choiceID,
	).Scan(&ok)
	if err := db.HandleQueryError(err, nil, "check answer choice", start); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PgRepository) UpsertAnswer(ctx context.Context, answer domain.Answer) error {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`INSERT INTO exam_answers (exam_student_id, question_id, choice_id, answered_at)
		 SELECT $1, $2, $3, $4
		 WHERE EXISTS (SELECT 1 FROM exam_students WHERE id = $1 AND submitted_at IS NULL)
		 ON CONFLICT (exam_student_id, question_id)
		 DO UPDATE SET choice_id = EXCLUDED.choice_id, answered_at = EXCLUDED.answered_at`,
		answer.AttemptID,
		answer.QuestionID,
		answer.ChoiceID,
		answer.AnsweredAt,
	)
	if err := db.HandleExecError(err, "record exam answer", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptSubmitted
	}
	return nil
}

func (r *PgRepository) SubmitAttempt(ctx context.Context, attemptID string, submittedAt time.Time) (domain.Score, error) {
	var score domain.Score
	err := r.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		attempt, err := scanAttempt(tx.QueryRow(
			ctx,
			`SELECT `+attemptColumns+` FROM exam_students WHERE id = $1 FOR UPDATE`,
			attemptID,
		))
		if err := db.HandleQueryError(err, ErrAttemptNotFound, "lock attempt", start); err != nil {
			return err
		}
		if attempt.IsSubmitted() {
			return ErrAttemptSubmitted
		}

		questionIDs, err := r.examQuestionIDs(ctx, tx, attempt.ExamID)
		if err != nil {
			return err
		}

		answers, err := gradedAnswers(ctx, tx, attemptID)
		if err != nil {
			return err
		}

		score = domain.ComputeScore(questionIDs, answers)

		start = time.Now()
		_, err = tx.Exec(
			ctx,
			`UPDATE exam_students SET submitted_at = $2, correct = $3, total = $4 WHERE id = $1`,
			attemptID,
			submittedAt,
			score.Correct,
			score.Total,
		)
		return db.HandleExecError(err, "submit attempt", start)
	})
	return score, err
}

func gradedAnswers(ctx context.Context, tx pgx.Tx, attemptID string) ([]domain.GradedAnswer, error) {
	start := time.Now()
	rows, err := tx.Query(
		ctx,
		`SELECT a.question_id, a.choice_id, c.is_correct
		 FROM exam_answers a
		 JOIN choices c ON c.id = a.choice_id AND c.question_id = a.question_id
		 WHERE a.exam_student_id = $1`,
		attemptID,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam answers", start)
	}
	defer rows.Close()

	var answers []domain.GradedAnswer
	for rows.Next() {
		var a domain.GradedAnswer
		if err := rows.Scan(&a.QuestionID, &a.ChoiceID, &a.IsCorrect); err != nil {
			return nil, fmt.Errorf("failed to scan exam answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list exam answers", start)
	}
	db.MeasureQueryDuration("list exam answers", start)
	return answers, nil
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		correct *int
		total   *int
	)
	err := row.Scan(
		&attempt.ID,
		&attempt.ExamID,
		&attempt.StudentID,
		&attempt.StartedAt,
		&attempt.SubmittedAt,
		&correct,
		&total,
	)
	if err != nil {
		return domain.Attempt{}, err
	}
	if correct != nil && total != nil {
		attempt.Score = &domain.Score{Correct: *correct, Total: *total}
	}
	return attempt, nil
}
