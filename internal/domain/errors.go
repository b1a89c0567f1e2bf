package domain

import (
	"errors"
)

var (
	// ErrValidation signals a malformed or incomplete client request.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration signals a missing deployment setting, usually a credential.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream signals a failure reported by the embedding, index or completion provider.
	ErrUpstream = errors.New("upstream error")
)

// Pipeline stages reported in UpstreamError.Stage.
const (
	StageInitialize = "initialize"
	StageEmbed      = "embed"
	StageRetrieve   = "retrieve"
	StageComplete   = "complete"
)

// ValidationError carries a client-facing validation message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// ConfigurationError names a missing or invalid deployment setting.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error with the given message.
func NewConfigurationError(msg string) error {
	return &ConfigurationError{Message: msg}
}

// UpstreamError wraps a provider failure with the pipeline stage that produced it.
// Its message is the cause's message unchanged: callers see what the provider client said.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return ErrUpstream.Error()
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// NewUpstreamError wraps err as a failure of the given stage.
func NewUpstreamError(stage string, err error) error {
	return &UpstreamError{Stage: stage, Err: err}
}
