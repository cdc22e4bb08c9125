package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned for any input that does not match the query grammar.
	ErrSyntax = errors.New("invalid syntax for query")
	// ErrDateOutOfRange is matched by *DateRangeError.
	ErrDateOutOfRange = errors.New("date out of range")

	errUnexpectedCharacter = errors.New("unexpected character")
	errUnterminatedString  = errors.New("unterminated string literal")
)

// DateRangeError reports a well formed date literal naming a day that does not exist.
type DateRangeError struct {
	Year, Month, Day int
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("Date %d-%d-%d is out of range", e.Year, e.Month, e.Day)
}

// Is lets errors.Is match ErrDateOutOfRange.
func (e *DateRangeError) Is(target error) bool {
	return target == ErrDateOutOfRange
}
