package kbservice

import "fmt"

// Code is one of the fixed error codes the write-path facade returns,
// per the service contract's {error: {code, message, hint?}} shape.
type Code string

const (
	CodeKBNotFound        Code = "KB_NOT_FOUND"
	CodeKBReadOnly        Code = "KB_READONLY"
	CodeEntryNotFound     Code = "ENTRY_NOT_FOUND"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeIndexEmpty        Code = "INDEX_EMPTY"
)

// ResultError is the failure half of Result.
type ResultError struct {
	Code    Code
	Message string
	Hint    string
}

// Result is the structured outcome of every write-path operation:
// {ok, id, warnings?, qa_issues?} on success, {error} on failure. Exactly
// one of (OK, Error) is meaningful for a given Result — a failed result
// leaves ID empty.
type Result struct {
	OK       bool
	ID       string
	Warnings []string
	QAIssues []string
	Error    *ResultError
}

func fail(code Code, format string, args ...any) Result {
	return Result{Error: &ResultError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

func failWithHint(code Code, hint string, format string, args ...any) Result {
	return Result{Error: &ResultError{Code: code, Message: fmt.Sprintf(format, args...), Hint: hint}}
}

func ok(id string, warnings, qaIssues []string) Result {
	return Result{OK: true, ID: id, Warnings: warnings, QAIssues: qaIssues}
}
