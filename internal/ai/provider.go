package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrCompletionFailed is the only error kind a Provider surfaces. Network
// failures, non-2xx responses and malformed bodies all wrap it.
var ErrCompletionFailed = errors.New("completion request failed")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Provider turns an ordered history into one assistant reply.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// WireRole maps a role onto the upstream chat schema. Anything that is not
// the assistant is sent as the user.
func WireRole(r Role) string {
	if r == RoleAssistant {
		return "assistant"
	}
	return "user"
}

// RoleFromWire is the inverse of WireRole.
func RoleFromWire(s string) Role {
	if s == "assistant" {
		return RoleAssistant
	}
	return RoleUser
}

// failed wraps cause so that errors.Is(err, ErrCompletionFailed) holds while
// the cause is still printed in logs.
func failed(provider string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", provider, ErrCompletionFailed)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrCompletionFailed, cause)
}
