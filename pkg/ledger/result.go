package ledger

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of a Client call: exactly one of Data or Failure is
// meaningful. Expected failure modes are reported here and never as panics.
type Result[T any] struct {
	Data    T
	Failure *Failure
}

// Succeed wraps data in a successful Result.
func Succeed[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

// Fail wraps f in a failed Result.
func Fail[T any](f *Failure) Result[T] {
	return Result[T]{Failure: f}
}

// Success reports whether the call succeeded.
func (r Result[T]) Success() bool {
	return r.Failure == nil
}

// Unwrap returns the data and a nil error, or the zero value and the Failure.
func (r Result[T]) Unwrap() (T, error) {
	if r.Failure != nil {
		var zero T
		return zero, r.Failure
	}

	return r.Data, nil
}

// Kind returns the failure kind, or "" on success.
func (r Result[T]) Kind() ErrorKind {
	if r.Failure == nil {
		return ""
	}

	return r.Failure.Kind
}

// Decode converts a raw JSON result into a typed one. A body that does not
// decode into T becomes a parse failure.
func Decode[T any](raw Result[json.RawMessage]) Result[T] {
	if raw.Failure != nil {
		return Fail[T](raw.Failure)
	}

	var out T
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return Succeed(out)
	}

	if err := json.Unmarshal(raw.Data, &out); err != nil {
		return Fail[T](NewFailure(KindParseError, 0, fmt.Sprintf("decoding %T: %v", out, err)).WithCause(err))
	}

	return Succeed(out)
}

// Discard drops the data of a result, keeping only its outcome.
func Discard[T any](r Result[T]) Result[struct{}] {
	if r.Failure != nil {
		return Fail[struct{}](r.Failure)
	}

	return Succeed(struct{}{})
}
