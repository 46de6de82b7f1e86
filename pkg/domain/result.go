package domain

import "fmt"

// OpResult is returned by every mutating core operation instead of an error.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// Count is the number of lessons or items affected, when meaningful.
	Count int `json:"count,omitempty"`
}

// OK builds a successful result.
func OK(count int, format string, args ...any) OpResult {
	return OpResult{Success: true, Count: count, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed result.
func Fail(format string, args ...any) OpResult {
	return OpResult{Success: false, Message: fmt.Sprintf(format, args...)}
}
