package service

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
)

var (
	ErrExamNotFound     = commonerrors.ErrNotFound.WithMessage("exam not found")
	ErrQuestionNotFound = commonerrors.ErrNotFound.WithMessage("question not found")
	ErrAttemptNotFound  = commonerrors.ErrNotFound.WithMessage("attempt not found")

	ErrAttemptSubmitted = commonerrors.NewDomainError(
		"ATTEMPT_SUBMITTED",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"attempt has already been submitted",
	)

	ErrAttemptNotSubmitted = commonerrors.NewDomainError(
		"ATTEMPT_NOT_SUBMITTED",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"attempt has not been submitted yet",
	)

	ErrInvalidAnswer = commonerrors.NewDomainError(
		"INVALID_ANSWER",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"question is not part of the exam or choice does not belong to the question",
	)

	ErrInvalidQuestion = commonerrors.NewDomainError(
		"INVALID_QUESTION",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"question must have at least two choices and exactly one correct choice",
	)

	ErrValidation  = commonerrors.ErrValidation
	ErrPersistence = commonerrors.ErrPersistence
)
