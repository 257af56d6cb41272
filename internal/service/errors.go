package service

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError reports malformed input per field. Nothing has been
// mutated when one is returned.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, messages := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(messages, "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

// Business rule reasons.
const (
	ReasonWithdrawNotMultiple = "withdraw_not_multiple"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonDestinationNotFound = "destination_not_found"
	ReasonRangeTooLarge       = "range_too_large"
	ReasonDuplicateEntry      = "duplicate_entry"
)

// BusinessRuleError rejects a well-formed request that violates a money
// rule. Nothing has been mutated when one is returned.
type BusinessRuleError struct {
	Reason  string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// PersistenceError reports a store write failure. Any ledger entry written
// earlier in the same operation has been compensated before it is
// returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConsistencyError means a compensation itself failed: the stores may hold
// a debited source without its matching credit. This is fatal for the
// operation and must be surfaced loudly.
type ConsistencyError struct {
	Op  string
	Err error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent state after failed %s: %v", e.Op, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}
