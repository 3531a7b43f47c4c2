package sweep

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

func sweepInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(core.MailErrorInternal)
}
