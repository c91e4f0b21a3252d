package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tasknest/tasknest/internal/taskerr"
)

// errReported signals that the error was already written to stdout as
// a JSON envelope. Callers above cmd should exit non-zero without
// printing it again.
var errReported = errors.New("error already reported")

// Reported reports whether err was already emitted as a JSON error
// envelope.
func Reported(err error) bool {
	return errors.Is(err, errReported)
}

type response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *responseError `json:"error,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// emitJSON writes a success envelope to stdout.
func emitJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(response{Success: true, Data: data})
}

// fail reports err. In JSON mode it writes an error envelope to
// stdout and returns errReported; otherwise it returns err for the
// caller to print.
func fail(jsonOut bool, err error) error {
	if !jsonOut {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	encErr := enc.Encode(response{Success: false, Error: &responseError{
		Code:    string(taskerr.CodeOf(err)),
		Message: err.Error(),
	}})
	if encErr != nil {
		return fmt.Errorf("encoding error response: %w", encErr)
	}
	return errReported
}
