package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ExamDefinition struct {
	Name        string   `validate:"required,max=50"`
	Description string   `validate:"required,max=500"`
	QuestionIDs []string `validate:"max=500,unique,dive,uuid"`
}

type ExamUpdate struct {
	Name        string `validate:"required,max=50"`
	Description string `validate:"required,max=500"`
}

type ChoiceInput struct {
	Text      string `validate:"required,max=500"`
	IsCorrect bool
}

type QuestionInput struct {
	Text    string        `validate:"required,max=1000"`
	Mark    int           `validate:"gte=0"`
	Choices []ChoiceInput `validate:"required,dive"`
}

type AnswerInput struct {
	QuestionID string `validate:"required,uuid"`
	ChoiceID   string `validate:"required,uuid"`
}

func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrValidation.WithCause(err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describeFieldError(fe))
	}
	return ErrValidation.WithMessage(strings.Join(messages, ","))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a uuid", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
