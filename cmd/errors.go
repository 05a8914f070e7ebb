package cmd

import (
	stderrors "errors"

	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUserAbort = 130
)

// exitCode reports err and maps it to the process exit code. An interrupt
// is a warning, everything else an error.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.IsCode(err, errors.CodeUserAbort) {
		logger.Warn("User Abort")
		return exitUserAbort
	}
	if tie, ok := errors.AsToolInvocation(err); ok {
		logger.Error(tie.Error())
		return exitFailure
	}
	logger.Error(message(err))
	return exitFailure
}

// message strips the code prefix from domain errors; users see the text
// they can act on.
func message(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
