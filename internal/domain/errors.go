package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Trigger errors
	ErrTriggerMismatch  = errors.New("trigger does not match")
	ErrUnauthorized     = errors.New("repository owner not allowed")
	ErrUnsupportedEvent = errors.New("unsupported event")

	// Target errors
	ErrInvalidTarget   = errors.New("invalid target")
	ErrPathTraversal   = errors.New("path traversal not allowed")
	ErrContentNotFound = errors.New("overview content not found")
	ErrEmptyContent    = errors.New("overview content is empty")
	ErrContentTooLarge = errors.New("overview content too large")

	// Publish errors
	ErrProviderNotFound   = errors.New("overview provider not found")
	ErrInvalidDestination = errors.New("invalid destination repository")
	ErrPublishFailed      = errors.New("failed to publish overview")
	ErrRegistryAuth       = errors.New("registry rejected credentials")
	ErrBatchTimeout       = errors.New("overview batch timed out")

	// Secret errors
	ErrSecretNotFound = errors.New("secret not found")

	// Config errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
