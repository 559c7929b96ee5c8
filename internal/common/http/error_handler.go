package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	"github.com/AlibekovAA/examination-system/internal/common/httpmetrics"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr)
		return
	}

	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	h.log.WithFields(ctx, logger.Fields{
		"error":  err.Error(),
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(http.StatusInternalServerError),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	WriteErrorEnvelope(w, http.StatusInternalServerError, commonerrors.ErrInternalError.Code(), "internal server error", nil, traceID)
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError) {
	h.RecordDomainError(r, err)
	WriteErrorEnvelope(w, err.HTTPStatus(), err.Code(), err.Message(), nil, TraceIDFromContext(r.Context()))
}

// RecordDomainError logs and counts err without writing a response, for
// handlers that render their own envelope.
func (h *ErrorHandler) RecordDomainError(r *http.Request, err commonerrors.DomainError) {
	ctx := r.Context()
	status := err.HTTPStatus()

	fields := logger.Fields{
		"error_code": err.Code(),
		"category":   string(err.Category()),
		"status":     status,
		"action":     "domain_error",
	}

	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, fields).Errorf("domain error: %s", err.Error())
	} else if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, fields).Debugf("domain error: %s", err.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(err.Category()),
		err.Code(),
		strconv.Itoa(status),
	).Inc()

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()
}
