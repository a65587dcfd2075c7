package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeUtteranceInvalid ErrorCode = "UTTERANCE_INVALID"

	ErrCodeCatalogSearchFailed  ErrorCode = "CATALOG_SEARCH_FAILED"
	ErrCodeCatalogSearchTimeout ErrorCode = "CATALOG_SEARCH_TIMEOUT"

	ErrCodeDirectoryLoadFailed ErrorCode = "DIRECTORY_LOAD_FAILED"

	ErrCodeStateStoreFailed      ErrorCode = "STATE_STORE_FAILED"
	ErrCodeTranscriptStoreFailed ErrorCode = "TRANSCRIPT_STORE_FAILED"

	ErrCodeRecordCreateFailed    ErrorCode = "RECORD_CREATE_FAILED"
	ErrCodeDuplicateCounterparty ErrorCode = "DUPLICATE_COUNTERPARTY"
	ErrCodeDraftValidationFailed ErrorCode = "DRAFT_VALIDATION_FAILED"
	ErrCodeQueryExecutionFailed  ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeNotificationPublishFailed ErrorCode = "NOTIFICATION_PUBLISH_FAILED"

	ErrCodeOrchestratorUnavailable ErrorCode = "ORCHESTRATOR_UNAVAILABLE"
	ErrCodeOrchestratorRejected    ErrorCode = "ORCHESTRATOR_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after attaching a metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func NewInvalidInputError(details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Invalid job input", nil, false)
	e.Details = details
	return e
}

func NewUtteranceInvalidError(details string) *StandardError {
	e := newError(ErrCodeUtteranceInvalid, "Utterance could not be processed", nil, false)
	e.Details = details
	return e
}

func NewCatalogSearchFailedError(query string, err error) *StandardError {
	return newError(ErrCodeCatalogSearchFailed, "Event catalog search failed", err, true).
		WithMetadata("query", query)
}

func NewCatalogSearchTimeoutError(query string) *StandardError {
	e := newError(ErrCodeCatalogSearchTimeout, "Event catalog search timed out", nil, true)
	e.Details = fmt.Sprintf("query: %s", query)
	return e
}

func NewDirectoryLoadFailedError(directory string, err error) *StandardError {
	return newError(ErrCodeDirectoryLoadFailed, fmt.Sprintf("Failed to load %s directory", directory), err, true)
}

func NewStateStoreFailedError(conversationID string, err error) *StandardError {
	return newError(ErrCodeStateStoreFailed, "Clarification state store error", err, true).
		WithMetadata("conversationId", conversationID)
}

func NewTranscriptStoreFailedError(conversationID string, err error) *StandardError {
	return newError(ErrCodeTranscriptStoreFailed, "Transcript store error", err, true).
		WithMetadata("conversationId", conversationID)
}

func NewRecordCreateFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeRecordCreateFailed, fmt.Sprintf("Failed to create %s record", kind), err, true)
}

func NewDuplicateCounterpartyError(name string) *StandardError {
	e := newError(ErrCodeDuplicateCounterparty, "Counterparty already exists", nil, false)
	e.Details = fmt.Sprintf("name: %s", name)
	return e
}

func NewDraftValidationFailedError(problems []string) *StandardError {
	e := newError(ErrCodeDraftValidationFailed, "Draft validation failed", nil, false)
	e.Details = strings.Join(problems, "; ")
	return e
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, fmt.Sprintf("Failed to run %s query", queryType), err, true)
}

func NewNotificationPublishFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationPublishFailed, "Notification publish failed", err, true)
}

func NewOrchestratorUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeOrchestratorUnavailable, fmt.Sprintf("Zeebe operation %s failed", operation), err, true)
}

func NewOrchestratorRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeOrchestratorRejected, fmt.Sprintf("Zeebe rejected %s", operation), err, false)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:              "INVALID_INPUT",
	ErrCodeUtteranceInvalid:          "UTTERANCE_INVALID",
	ErrCodeCatalogSearchFailed:       "CATALOG_SEARCH_FAILED",
	ErrCodeCatalogSearchTimeout:      "CATALOG_SEARCH_TIMEOUT",
	ErrCodeDirectoryLoadFailed:       "DIRECTORY_LOAD_FAILED",
	ErrCodeStateStoreFailed:          "STATE_STORE_FAILED",
	ErrCodeTranscriptStoreFailed:     "TRANSCRIPT_STORE_FAILED",
	ErrCodeRecordCreateFailed:        "RECORD_CREATE_FAILED",
	ErrCodeDuplicateCounterparty:     "DUPLICATE_COUNTERPARTY",
	ErrCodeDraftValidationFailed:     "DRAFT_VALIDATION_FAILED",
	ErrCodeQueryExecutionFailed:      "QUERY_EXECUTION_FAILED",
	ErrCodeNotificationPublishFailed: "NOTIFICATION_PUBLISH_FAILED",
	ErrCodeOrchestratorUnavailable:   "ORCHESTRATOR_UNAVAILABLE",
	ErrCodeOrchestratorRejected:      "ORCHESTRATOR_REJECTED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryLoadFailed,
		ErrCodeStateStoreFailed,
		ErrCodeTranscriptStoreFailed,
		ErrCodeRecordCreateFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCatalogSearchFailed,
		ErrCodeOrchestratorUnavailable:
		return 3
	case ErrCodeCatalogSearchTimeout,
		ErrCodeNotificationPublishFailed:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// AsStandard unwraps err to a *StandardError, wrapping unknown errors as internal.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "DIRECTORY"), strings.Contains(codeStr, "RECORD"),
		strings.Contains(codeStr, "QUERY"), strings.Contains(codeStr, "COUNTERPARTY"):
		return "DATABASE"
	case strings.Contains(codeStr, "STORE"):
		return "STATE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ORCHESTRATOR"):
		return "ORCHESTRATION"
	case strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
