package webhook

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func webhookError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func webhookWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return webhookError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func webhookBadInput(message string, metadata map[string]any) error {
	return webhookError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		core.MailErrorBadInput,
		metadata,
	)
}

func webhookUnauthorized(source error, metadata map[string]any) error {
	return webhookWrapError(
		source,
		goerrors.CategoryAuth,
		"webhook: signature verification failed",
		http.StatusUnauthorized,
		core.MailErrorSignatureInvalid,
		metadata,
	)
}

func webhookInternal(source error, message string, metadata map[string]any) error {
	return webhookWrapError(
		source,
		goerrors.CategoryInternal,
		message,
		http.StatusInternalServerError,
		core.MailErrorInternal,
		metadata,
	)
}
