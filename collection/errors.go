package collection

import "fmt"

// WriteError reports a failed document write. The raw object write is never
// retried automatically, so the caller decides whether to re-put.
type WriteError struct {
	// ID is the identifier of the document that failed to write.
	ID string
	// Err is the underlying storage failure.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write document %s: %v", e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// DecodeError reports stored data that failed to parse. It is fatal to the
// call that triggered the read and is never retried.
type DecodeError struct {
	// Key is the object key whose body failed to decode.
	Key string
	// Err is the underlying parse failure.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode object %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
