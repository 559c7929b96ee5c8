package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExamsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exams_created_total",
			Help: "Total number of exams created",
		},
	)

	ExamsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exams_deleted_total",
			Help: "Total number of exams deleted",
		},
	)

	QuestionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_created_total",
			Help: "Total number of questions created",
		},
	)

	AttemptsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Total number of exam attempts started",
		},
	)

	AnswersRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_answers_recorded_total",
			Help: "Total number of answers recorded",
		},
	)

	AttemptsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_attempts_submitted_total",
			Help: "Total number of exam attempts submitted",
		},
	)

	AttemptScoreRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_attempt_score_ratio",
			Help:    "Distribution of submitted attempt scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
