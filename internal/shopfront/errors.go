package shopfront

import "fmt"

// TransportError indicates the upstream shopfront was unreachable or answered
// with a non-2xx status. It aborts the current fetch cycle only; the previous
// snapshot is preserved and the cycle is retried at the next scheduled
// interval.
type TransportError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("shopfront: page %d request failed with status %d", e.Page, e.StatusCode)
	}
	return fmt.Sprintf("shopfront: page %d request failed: %v", e.Page, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError indicates a page payload was not parseable as the expected
// structure. It is handled identically to TransportError.
type FormatError struct {
	Page int
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("shopfront: page %d payload not parseable: %v", e.Page, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
