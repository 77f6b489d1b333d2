package record

import (
	"errors"
	"fmt"
)

// LedgerError is the typed failure returned by every core operation.
//
// All errors are local to a single operation and returned to the
// caller; none are retried internally and none are fatal to the
// process. A failed submit or seal leaves all internal state unchanged.
type LedgerError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Rule names the failing rule for contract violations.
	Rule string

	// Details carries additional context (ids, limits).
	Details map[string]string
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeInvalidRole indicates a role outside the fixed set.
	ErrCodeInvalidRole ErrorCode = "INVALID_ROLE"

	// ErrCodeDuplicateNode indicates re-registration of an existing id.
	ErrCodeDuplicateNode ErrorCode = "DUPLICATE_NODE"

	// ErrCodeUnknownNode indicates a submit referencing an unregistered node.
	ErrCodeUnknownNode ErrorCode = "UNKNOWN_NODE"

	// ErrCodeInactiveNode indicates a submit from a deactivated node.
	ErrCodeInactiveNode ErrorCode = "INACTIVE_NODE"

	// ErrCodeForbidden indicates the node lacks the required capability.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrCodeContractViolation indicates a rule rejected the candidate event.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"

	// ErrCodeEmptyPool indicates a seal attempt with nothing to seal.
	ErrCodeEmptyPool ErrorCode = "EMPTY_POOL"

	// ErrCodeNotFound indicates a block, event, or batch lookup miss.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a
// LedgerError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsContractViolation reports whether err is a rule rejection.
func IsContractViolation(err error) bool { return CodeOf(err) == ErrCodeContractViolation }

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsEmptyPool reports whether err is an empty-pool seal rejection.
func IsEmptyPool(err error) bool { return CodeOf(err) == ErrCodeEmptyPool }

// NewInvalidRoleError creates the failure for an unrecognized role.
func NewInvalidRoleError(role Role) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeInvalidRole,
		Message: fmt.Sprintf("role %q is not a recognized participant role", role),
	}
}

// NewDuplicateNodeError creates the failure for id re-registration.
// Re-registration is rejected rather than overwritten: silent
// overwrite risks capability drift on a live identity.
func NewDuplicateNodeError(id string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeDuplicateNode,
		Message: fmt.Sprintf("node %q is already registered", id),
		Details: map[string]string{"node_id": id},
	}
}

// NewUnknownNodeError creates the failure for an unregistered node id.
func NewUnknownNodeError(id string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeUnknownNode,
		Message: fmt.Sprintf("node %q is not registered", id),
		Details: map[string]string{"node_id": id},
	}
}

// NewInactiveNodeError creates the failure for a deactivated node.
func NewInactiveNodeError(id string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeInactiveNode,
		Message: fmt.Sprintf("node %q is deactivated", id),
		Details: map[string]string{"node_id": id},
	}
}

// NewForbiddenError creates the failure for a missing capability.
func NewForbiddenError(id string, kind EventKind, missing Capability) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("node %q may not submit %s events", id, kind),
		Details: map[string]string{
			"node_id":    id,
			"kind":       string(kind),
			"capability": string(missing),
		},
	}
}

// NewContractViolationError creates the failure for a rule rejection.
// Rule names the specific failing rule; reason is the human-readable
// explanation produced by the rule engine.
func NewContractViolationError(rule, reason string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeContractViolation,
		Message: reason,
		Rule:    rule,
	}
}

// NewEmptyPoolError creates the failure for sealing an empty pool.
// Sealing an empty block is disallowed by policy.
func NewEmptyPoolError() *LedgerError {
	return &LedgerError{
		Code:    ErrCodeEmptyPool,
		Message: "transaction pool is empty, nothing to seal",
	}
}

// NewNotFoundError creates the failure for a lookup miss.
func NewNotFoundError(what, id string) *LedgerError {
	return &LedgerError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", what, id),
		Details: map[string]string{what: id},
	}
}
