package storage

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"

	"github.com/aws/smithy-go"
)

// ErrorKind is the coarse failure class of a storage operation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAccessDenied
	KindInvalidArgument
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrNotFound        = errors.New("storage: not found")
	ErrAccessDenied    = errors.New("storage: access denied")
	ErrInvalidArgument = errors.New("storage: invalid argument")
	ErrTransient       = errors.New("storage: transient failure")
	ErrUnknown         = errors.New("storage: unknown failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindAccessDenied:
		return ErrAccessDenied
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindTransient:
		return ErrTransient
	default:
		return ErrUnknown
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   ErrorKind
	Code   string // vendor error code, if the SDK reported one
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Bucket != "" {
		msg += " " + e.Bucket
		if e.Key != "" {
			msg += "/" + e.Key
		}
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf reports the kind of err, or KindUnknown if err is not a *Error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

var codeKinds = map[string]ErrorKind{
	"NoSuchBucket":               KindNotFound,
	"NoSuchKey":                  KindNotFound,
	"NotFound":                   KindNotFound,
	"NoSuchBucketPolicy":         KindNotFound,
	"NoSuchWebsiteConfiguration": KindNotFound,
	"NoSuchCORSConfiguration":    KindNotFound,
	"NoSuchUpload":               KindNotFound,
	"NoSuchVersion":              KindNotFound,

	"AccessDenied":          KindAccessDenied,
	"AllAccessDisabled":     KindAccessDenied,
	"InvalidAccessKeyId":    KindAccessDenied,
	"SignatureDoesNotMatch": KindAccessDenied,
	"ExpiredToken":          KindAccessDenied,
	"Forbidden":             KindAccessDenied,

	"InvalidArgument":                    KindInvalidArgument,
	"InvalidRequest":                     KindInvalidArgument,
	"InvalidBucketName":                  KindInvalidArgument,
	"InvalidLocationConstraint":          KindInvalidArgument,
	"IllegalLocationConstraintException": KindInvalidArgument,
	"MalformedPolicy":                    KindInvalidArgument,
	"MalformedXML":                       KindInvalidArgument,
	"MalformedACLError":                  KindInvalidArgument,
	"BucketAlreadyExists":                KindInvalidArgument,
	"BucketAlreadyOwnedByYou":            KindInvalidArgument,
	"BucketNotEmpty":                     KindInvalidArgument,
	"EntityTooLarge":                     KindInvalidArgument,
	"EntityTooSmall":                     KindInvalidArgument,

	"SlowDown":             KindTransient,
	"InternalError":        KindTransient,
	"ServiceUnavailable":   KindTransient,
	"RequestTimeout":       KindTransient,
	"RequestTimeTooSkewed": KindTransient,
}

type httpStatusError interface {
	HTTPStatusCode() int
}

// classify maps err onto a kind and, when available, the vendor error code.
func classify(err error) (ErrorKind, string) {
	var code string
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
		if kind, ok := codeKinds[code]; ok {
			return kind, code
		}
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch status := statusErr.HTTPStatusCode(); {
		case status == http.StatusNotFound:
			return KindNotFound, code
		case status == http.StatusForbidden || status == http.StatusUnauthorized:
			return KindAccessDenied, code
		case status == http.StatusBadRequest || status == http.StatusConflict:
			return KindInvalidArgument, code
		case status == http.StatusTooManyRequests || status >= 500:
			return KindTransient, code
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound, code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient, code
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient, code
	}
	return KindUnknown, code
}

func newError(op, bucket, key string, err error) *Error {
	kind, code := classify(err)
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: kind, Code: code, Err: err}
}

func invalidArgument(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: KindInvalidArgument, Err: err}
}

// isErrorCode reports whether the SDK reported the given vendor code.
func isErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
