package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies an error so that callers can present a stable message
// while logs keep the technical detail.
type Kind int

// Error kinds. The numeric value is the machine readable code.
const (
	Unknown    Kind = 99999
	Network    Kind = 1000
	Parse      Kind = 2000
	IO         Kind = 3000
	Download   Kind = 4000
	Config     Kind = 5000
	JSON       Kind = 6000
	Archive    Kind = 7000
	Validation Kind = 8000
	NotFound   Kind = 9000
	Permission Kind = 10000
	Execution  Kind = 11000
)

var kindNames = map[Kind]string{
	Unknown:    "unknown",
	Network:    "network",
	Parse:      "parse",
	IO:         "io",
	Download:   "download",
	Config:     "config",
	JSON:       "json",
	Archive:    "archive",
	Validation: "validation",
	NotFound:   "not_found",
	Permission: "permission",
	Execution:  "execution",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Code returns the numeric error code.
func (k Kind) Code() int {
	if _, ok := kindNames[k]; !ok {
		return int(Unknown)
	}
	return int(k)
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is an error carrying a Kind, the operation that failed and a
// technical detail string.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

// New creates a kinded error with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates a kinded error with a formatted detail message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// E wraps err with a kind and the name of the failing operation.
// It returns nil when err is nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Detail != "" && e.Err != nil:
		b.WriteString(e.Detail)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Detail != "":
		b.WriteString(e.Detail)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String() + " error")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Code returns the numeric code of the error kind.
func (e *Error) Code() int {
	return e.Kind.Code()
}

// UserMessage returns a message suitable for display to end users.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case Network:
		return "Network request failed, check your connection and try again"
	case Parse:
		return "Could not parse data returned by the catalog"
	case IO:
		return "File operation failed, check disk space and permissions"
	case Download:
		return "Download failed, please try again later"
	case Config:
		return "Configuration is invalid or corrupted"
	case JSON:
		return "Data format error, could not decode JSON"
	case Archive:
		return "Archive is corrupted or not supported"
	case Validation:
		return "Validation failed: " + e.detail()
	case NotFound:
		return "Resource not found: " + e.detail()
	case Permission:
		return "Permission denied"
	case Execution:
		return "Failed to start the program"
	default:
		return "An unknown error occurred"
	}
}

func (e *Error) detail() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// KindOf returns the kind of the outermost kinded error in the chain,
// or Unknown when there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// CodeOf returns the numeric code for err.
func CodeOf(err error) int {
	return KindOf(err).Code()
}

// UserMessage returns the user facing message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.UserMessage()
	}
	return (&Error{Kind: Unknown}).UserMessage()
}

// Is forwards to the standard library so callers only import this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library so callers only import this package.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
