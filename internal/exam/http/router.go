package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	commonhttp "github.com/AlibekovAA/examination-system/internal/common/http"
	"github.com/AlibekovAA/examination-system/internal/common/jwtverify"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/exam/service"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
)

type Handler struct {
	exams  service.Service
	log    *logger.Logger
	errors *commonhttp.ErrorHandler
}

func NewHandler(exams service.Service, log *logger.Logger) *Handler {
	return &Handler{
		exams:  exams,
		log:    log,
		errors: commonhttp.NewErrorHandler(log),
	}
}

// Register mounts the exam routes on r. Every route requires a valid access
// token; writes require the Instructor role and attempts the Student role.
func (h *Handler) Register(r chi.Router, authenticate func(http.Handler) http.Handler) {
	instructor := jwtverify.RequireRole(userdomain.RoleInstructor)
	student := jwtverify.RequireRole(userdomain.RoleStudent)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/exams", func(r chi.Router) {
			r.Get("/", h.listExams)
			r.With(instructor).Post("/", h.addExam)
			r.Get("/{id}", h.getExam)
			r.With(instructor).Put("/{id}", h.updateExam)
			r.With(instructor).Delete("/{id}", h.deleteExam)
			r.With(student).Post("/{id}/attempts", h.startExam)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Use(instructor)
			r.Post("/", h.addQuestion)
			r.Get("/{id}", h.getQuestion)
		})

		r.Route("/attempts", func(r chi.Router) {
			r.Use(student)
			r.Get("/{id}/questions", h.attemptQuestions)
			r.Put("/{id}/answers", h.recordAnswer)
			r.Post("/{id}/submit", h.submitExam)
			r.Get("/{id}/result", h.getResult)
		})
	})
}

func (h *Handler) addExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.exams.AddExam(r.Context(), service.ExamDefinition{
		Name:        req.Name,
		Description: req.Description,
		QuestionIDs: req.QuestionIDs,
	}, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteResult(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) listExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.exams.ListExams(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	resp := make([]examResponse, 0, len(exams))
	for _, e := range exams {
		resp = append(resp, toExamResponse(e))
	}
	commonhttp.WriteResult(w, http.StatusOK, resp)
}

func (h *Handler) getExam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	exam, err := h.exams.GetExam(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toExamResponse(exam))
}

func (h *Handler) updateExam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateExamRequest
	if !h.decode(w, r, &req) {
		return
	}

	exam, err := h.exams.UpdateExam(r.Context(), id, service.ExamUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toExamResponse(exam))
}

func (h *Handler) deleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.exams.DeleteExam(r.Context(), id); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := service.QuestionInput{Text: req.Text, Mark: req.Mark}
	for _, c := range req.Choices {
		input.Choices = append(input.Choices, service.ChoiceInput{Text: c.Text, IsCorrect: c.IsCorrect})
	}

	question, err := h.exams.AddQuestion(r.Context(), input, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusCreated, toQuestionResponse(question))
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	question, err := h.exams.GetQuestion(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toQuestionResponse(question))
}

func (h *Handler) startExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	attempt, err := h.exams.StartExam(r.Context(), examID, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toAttemptResponse(attempt))
}

func (h *Handler) attemptQuestions(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	questions, err := h.exams.AttemptQuestions(r.Context(), attemptID, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	resp := make([]attemptQuestionResponse, 0, len(questions))
	for _, q := range questions {
		resp = append(resp, toAttemptQuestionResponse(q))
	}
	commonhttp.WriteResult(w, http.StatusOK, resp)
}

func (h *Handler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.exams.RecordAnswer(r.Context(), attemptID, callerID(r), service.AnswerInput{
		QuestionID: req.QuestionID,
		ChoiceID:   req.ChoiceID,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitExam(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	score, err := h.exams.SubmitExam(r.Context(), attemptID, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toScoreResponse(score))
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	score, err := h.exams.GetResult(r.Context(), attemptID, callerID(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteResult(w, http.StatusOK, toScoreResponse(score))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := commonhttp.DecodeJSON(r, v); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{
			"path":   r.URL.Path,
			"action": "exam_invalid_json",
		}).Warnf("invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := commonhttp.ValidateUUID(id); err != nil {
		h.errors.HandleError(w, r, err)
		return "", false
	}
	return id, true
}

func callerID(r *http.Request) string {
	claims, _ := jwtverify.FromContext(r.Context())
	return claims.UserID
}
