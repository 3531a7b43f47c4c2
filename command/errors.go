package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func commandDependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.MailErrorInternal)
}

func commandInvalidInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.MailErrorBadInput)
}
