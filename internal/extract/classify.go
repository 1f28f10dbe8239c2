package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// ErrFatalBackend marks an error that makes falling back meaningless.
var ErrFatalBackend = errors.New("fatal backend error")

// ErrorKind is the recoverability class of a backend failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindQuota
	KindInvalidCredential
	KindPermission
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// BackendError lets a backend report its own classification.
type BackendError struct {
	Kind  ErrorKind
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s (%s): %v", e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

var (
	reStatusForbidden = regexp.MustCompile(`(?:^|[\s\[(])403\b|\b(?:status|error|code)[ :=]*403\b`)
	reStatusQuota     = regexp.MustCompile(`(?:^|[\s\[(])429\b|\b(?:status|error|code)[ :=]*429\b`)
	reStatusNotFound  = regexp.MustCompile(`(?:^|[\s\[(])404\b|\b(?:status|error|code)[ :=]*404\b`)
)

// ClassifyError prefers a BackendError kind and falls back to matching the
// message. Transport failures and timeouts are always KindUnknown: their
// messages carry addresses and ports that look like status codes.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var be *BackendError
	if errors.As(err, &be) && be.Kind != KindUnknown {
		return be.Kind
	}
	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api_key_invalid"), strings.Contains(msg, "api key not valid"), strings.Contains(msg, "invalid api key"):
		return KindInvalidCredential
	case strings.Contains(msg, "permission_denied"), strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "has not been used in project"), reStatusForbidden.MatchString(msg):
		return KindPermission
	case strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"),
		reStatusQuota.MatchString(msg):
		return KindQuota
	case strings.Contains(msg, "is not found"), strings.Contains(msg, "not_found"), reStatusNotFound.MatchString(msg):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// Decision is what the fallback loop does after a failed candidate.
type Decision int

const (
	Continue Decision = iota
	AbandonPass
	AbortFatal
)

func (d Decision) String() string {
	switch d {
	case AbandonPass:
		return "abandon_pass"
	case AbortFatal:
		return "abort_fatal"
	default:
		return "continue"
	}
}

// Policy maps a failure kind to a decision; last reports whether the failed
// candidate was the final one in the list.
type Policy func(kind ErrorKind, last bool) Decision

// VisionPolicy: credential and permission failures abort the whole extraction.
func VisionPolicy(kind ErrorKind, last bool) Decision {
	switch kind {
	case KindInvalidCredential, KindPermission:
		return AbortFatal
	case KindQuota:
		if last {
			return AbandonPass
		}
	}
	return Continue
}

// TextPolicy: the parsing pass is never fatal since the regex pass follows it.
func TextPolicy(kind ErrorKind, last bool) Decision {
	switch kind {
	case KindInvalidCredential, KindPermission:
		return AbandonPass
	case KindQuota:
		if last {
			return AbandonPass
		}
	}
	return Continue
}
