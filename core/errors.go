package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	MailErrorBadInput         = "MAIL_BAD_INPUT"
	MailErrorSignatureInvalid = "MAIL_SIGNATURE_INVALID"
	MailErrorDuplicateEvent   = "MAIL_DUPLICATE_EVENT"
	MailErrorNotFound         = "MAIL_NOT_FOUND"
	MailErrorConflict         = "MAIL_CONFLICT"
	MailErrorGenerationFailed = "MAIL_GENERATION_FAILED"
	MailErrorTransportFailed  = "MAIL_TRANSPORT_FAILED"
	MailErrorInternal         = "MAIL_INTERNAL_ERROR"
)

// PipelineErrorMapper normalizes any error surfaced by the webhook pipeline
// into the MAIL_* envelope with a category, HTTP code, and text code.
func PipelineErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureMailErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"), strings.Contains(msg, "replay window"):
		return newMailError(err.Error(), goerrors.CategoryAuth, MailErrorSignatureInvalid)
	case strings.Contains(msg, "duplicate"):
		return newMailError(err.Error(), goerrors.CategoryConflict, MailErrorDuplicateEvent)
	case strings.Contains(msg, "not found"):
		return newMailError(err.Error(), goerrors.CategoryNotFound, MailErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"):
		return newMailError(err.Error(), goerrors.CategoryBadInput, MailErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureMailErrorEnvelope(mapped)
}

// HTTPStatus reports the response code for a pipeline error, defaulting to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	mapped := PipelineErrorMapper(err)
	if mapped == nil || mapped.Code == 0 {
		return http.StatusInternalServerError
	}
	return mapped.Code
}

func IsNotFound(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}

func IsConflict(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}
	return false
}

func newMailError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureMailErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureMailErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = mailHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultMailTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultMailTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return MailErrorBadInput
	case goerrors.CategoryNotFound:
		return MailErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return MailErrorSignatureInvalid
	case goerrors.CategoryConflict:
		return MailErrorConflict
	case goerrors.CategoryOperation:
		return MailErrorTransportFailed
	default:
		return MailErrorInternal
	}
}

func mailHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
