package planner

import "fmt"

// Kind classifies a planning failure so the API layer can map it to a
// transport status without string matching.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInput         Kind = "input"
	KindUpstream      Kind = "upstream"
	KindPlanParse     Kind = "plan_parse"
	KindUnsafeQuery   Kind = "unsafe_query"
	KindExecution     Kind = "execution"
)

// Error is the single error type produced by the planning pipeline.
// Message is safe to return to callers; Detail carries the specific
// reason (rejected keyword, unknown table, upstream excerpt) and Err
// the wrapped cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func newInputError(message string) *Error {
	return &Error{Kind: KindInput, Message: message}
}

func newUpstreamError(err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: "completion service request failed",
		Detail:  err.Error(),
		Err:     err,
	}
}

func newUpstreamTimeoutError(err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: "completion service unreachable",
		Detail:  err.Error(),
		Err:     err,
	}
}

func newPlanParseError(detail string, err error) *Error {
	return &Error{
		Kind:    KindPlanParse,
		Message: "completion did not contain a usable plan",
		Detail:  detail,
		Err:     err,
	}
}

// newUnanswerableError covers the model declining a question by
// returning an empty sql field; the model's own explanation travels in
// Detail so the caller sees why.
func newUnanswerableError(summary string) *Error {
	return &Error{
		Kind:    KindInput,
		Message: "question cannot be answered from the available data",
		Detail:  summary,
	}
}

func newUnsafeQueryError(detail string) *Error {
	return &Error{
		Kind:    KindUnsafeQuery,
		Message: "proposed query was rejected",
		Detail:  detail,
	}
}

func newExecutionError(sqlText string, err error) *Error {
	return &Error{
		Kind:    KindExecution,
		Message: "query execution failed",
		Detail:  sqlText,
		Err:     err,
	}
}
