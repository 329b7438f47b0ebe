package videocom

import (
	"fmt"
	"strings"
)

// NetworkError reports a transport failure or a non-2xx response.
type NetworkError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString("videocom: ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
		if body := strings.TrimSpace(e.Body); body != "" {
			b.WriteString(": ")
			b.WriteString(body)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response or message that is not valid JSON.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("videocom: %s: malformed payload: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HandshakeError reports an interactive sign-in that ended without a terminal payload.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("videocom: %s: %v", e.Op, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// AuthError reports a well-formed response that the server marked unsuccessful or that
// lacks a required token.
type AuthError struct {
	Op     string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("videocom: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("videocom: %s: %s", e.Op, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }
