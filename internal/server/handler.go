// Package server provides the WebSocket command handling for the intake UI.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks a request struct against its validation tags.
func Validate(data any) error {
	return validate.Struct(data)
}

// DecodeAndValidate fills data from the command payload. It reports false
// after replying with the error when decoding or validation fails.
func DecodeAndValidate[T any](cmd WSCommand, send chan<- any, data *T) bool {
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, data); err != nil {
			SendError(send, cmd, fmt.Errorf("invalid JSON: %w", err))
			return false
		}
	}
	if err := validate.Struct(data); err != nil {
		SendValidationErrors(send, cmd, err)
		return false
	}
	return true
}

// HandleCommand decodes the payload into T, runs process and replies with
// its result.
func HandleCommand[T any](cmd WSCommand, send chan<- any, process func(*T) (any, error)) {
	var data T
	if !DecodeAndValidate(cmd, send, &data) {
		return
	}
	result, err := process(&data)
	reply(send, cmd, result, err)
}

// HandleActionAsync runs action on its own goroutine and replies when it
// returns. A panic is reported to the client as an internal error.
func HandleActionAsync(cmd WSCommand, send chan<- any, action func() (any, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("async command panicked", "command", cmd.Type, "panic", r)
				SendError(send, cmd, errors.New("internal error"))
			}
		}()
		result, err := action()
		reply(send, cmd, result, err)
	}()
}

func reply(send chan<- any, cmd WSCommand, data any, err error) {
	if err != nil {
		SendError(send, cmd, err)
		return
	}
	SendSuccess(send, cmd, data)
}

// SendSuccess sends a success response for a command.
func SendSuccess(send chan<- any, cmd WSCommand, data any) {
	trySend(send, cmd.Type, types.WSCommandResult{
		Type:    cmd.Type + "_result",
		ID:      cmd.ID,
		Success: true,
		Data:    data,
	})
}

// SendError sends an error response for a command. Capture failures carry
// their reason so the UI can pick the right message.
func SendError(send chan<- any, cmd WSCommand, err error) {
	result := types.WSCommandResult{
		Type:    cmd.Type + "_result",
		ID:      cmd.ID,
		Success: false,
		Error:   err.Error(),
	}
	if reason, ok := capture.ReasonOf(err); ok {
		result.Reason = string(reason)
	}
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		result.Error = verr
	}
	trySend(send, cmd.Type, result)
}

// SendValidationErrors replies with err as field errors.
func SendValidationErrors(send chan<- any, cmd WSCommand, err error) {
	SendError(send, cmd, ToValidationError(err))
}

// ToValidationError maps validator field errors to JSON field paths. Other
// errors become a single error with no field.
func ToValidationError(err error) *types.ValidationError {
	verr := &types.ValidationError{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("", err.Error(), nil)
		return verr
	}
	for _, e := range fieldErrs {
		verr.Add(e.Field(), config.FormatValidationMessage(e), e.Value())
	}
	return verr
}

// trySend drops msg when the client's buffer is full.
func trySend(send chan<- any, cmdType string, msg any) {
	select {
	case send <- msg:
	default:
		slog.Warn("client send buffer full, dropping message", "type", cmdType)
	}
}
