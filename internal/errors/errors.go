// Package errors defines the error kinds surfaced by the CloudWatch Logs layer
// and the structured form they take when returned to MCP clients.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// Kind tags an Error with the class of failure it represents.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidParameter: malformed timestamp, XOR violation, unknown query type.
	KindInvalidParameter
	// KindClient: any failure of the remote CloudWatch Logs API.
	KindClient
	// KindTimeout: a query did not reach a terminal state within the poll budget.
	KindTimeout
	// KindNotFound: unknown documentation key.
	KindNotFound
)

// String returns the stable code used in JSON output.
func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "INVALID_PARAMETER"
	case KindClient:
		return "AWS_CLIENT_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Category groups kinds by who is expected to fix the problem.
type Category string

const (
	// ClientCategory is caused by the caller's input
	ClientCategory Category = "CLIENT_ERROR"
	// ExternalCategory is caused by CloudWatch Logs or the network
	ExternalCategory Category = "EXTERNAL_ERROR"
	// InternalCategory is a bug in this server
	InternalCategory Category = "SERVER_ERROR"
)

// Category returns the category the kind belongs to.
func (k Kind) Category() Category {
	switch k {
	case KindInvalidParameter, KindNotFound:
		return ClientCategory
	case KindClient, KindTimeout:
		return ExternalCategory
	default:
		return InternalCategory
	}
}

// Error is the single error type returned by the internal packages.
type Error struct {
	Kind       Kind
	Message    string
	Err        error
	Details    map[string]interface{}
	Suggestion string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails merges key/value details into the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithSuggestion sets a recovery suggestion
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

type jsonError struct {
	Code       string                 `json:"code"`
	Category   Category               `json:"category"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

// ToJSON converts the error to a JSON string
func (e *Error) ToJSON() string {
	bytes, err := json.Marshal(jsonError{
		Code:       e.Kind.String(),
		Category:   e.Kind.Category(),
		Message:    e.Error(),
		Details:    e.Details,
		Suggestion: e.Suggestion,
	})
	if err != nil {
		return fmt.Sprintf(`{"code":%q,"message":%q}`, e.Kind.String(), e.Error())
	}
	return string(bytes)
}

// InvalidParameter creates an error for rejected input.
func InvalidParameter(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for an unknown lookup key.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Timeout creates an error for an exhausted wait budget.
func Timeout(format string, args ...interface{}) *Error {
	return &Error{
		Kind:       KindTimeout,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: "Retrieve the results later with the returned query id or raise the timeout",
	}
}

// Client wraps a remote failure. The message reads "Failed to <operation>".
func Client(operation string, cause error) *Error {
	e := &Error{Kind: KindClient, Message: "Failed to " + operation, Err: cause}
	classifyAWS(e, cause)
	return e
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is a shorthand for extracting the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// HTTPStatus returns the HTTP status code of an AWS response error, or 0.
func HTTPStatus(err error) int {
	var re *awshttp.ResponseError
	if stderrors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

// APIErrorCode returns the AWS error code (e.g. ThrottlingException), or "".
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func classifyAWS(e *Error, cause error) {
	if cause == nil {
		return
	}
	details := map[string]interface{}{}
	code := APIErrorCode(cause)
	if code != "" {
		details["aws_error_code"] = code
	}
	status := HTTPStatus(cause)
	if status != 0 {
		details["http_status"] = status
	}
	var re *awshttp.ResponseError
	if stderrors.As(cause, &re) && re.ServiceRequestID() != "" {
		details["request_id"] = re.ServiceRequestID()
	}
	if len(details) > 0 {
		e.WithDetails(details)
	}

	switch {
	case code == "AccessDeniedException" || code == "UnrecognizedClientException" ||
		code == "ExpiredTokenException" || status == http.StatusForbidden || status == http.StatusUnauthorized:
		e.Suggestion = "Check the AWS credentials and the IAM permissions for CloudWatch Logs"
	case code == "ThrottlingException" || code == "LimitExceededException" || status == http.StatusTooManyRequests:
		e.Suggestion = "CloudWatch Logs is throttling requests, wait a moment and try again"
	case code == "ResourceNotFoundException":
		e.Suggestion = "Verify the log group, query id and region"
	case code == "MalformedQueryException" || code == "InvalidParameterException":
		e.Suggestion = "Check the query syntax with get_query_syntax_documentation"
	}
}
