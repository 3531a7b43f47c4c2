package sqlstore

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func notFoundError(message string) error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(core.MailErrorNotFound)
}

func conflictError(message string) error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithTextCode(core.MailErrorConflict)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
