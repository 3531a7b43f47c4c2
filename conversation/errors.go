package conversation

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func resolverBadInput(message string) error {
	return goerrors.NewValidation(message).
		WithTextCode(core.MailErrorBadInput)
}

func resolverInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(core.MailErrorInternal)
}

func serviceWrap(cause error, message string) error {
	return goerrors.Wrap(cause, goerrors.CategoryInternal, message).
		WithTextCode(core.MailErrorInternal)
}
