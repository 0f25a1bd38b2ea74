package booking

import "fmt"

// BookingError is a typed service error callers can branch on by Code
// without string matching.
type BookingError struct {
	Code    string
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newBookingError(code, msg string) error {
	return &BookingError{Code: code, Message: msg}
}

// Error codes.
const (
	CodeRideCancelled      = "rideCancelled"
	CodeUnknownPickupPoint = "unknownPickupPoint"
	CodeSeatsUnavailable   = "seatsUnavailable"
	CodeSeatReduction      = "seatReductionNotAllowed"
	CodeNotBookingOwner    = "notBookingOwner"
	CodeAlreadyVerified    = "alreadyVerified"
	CodeBookingNotActive   = "bookingNotActive"
	CodeInvalidSeatCount   = "invalidSeatCount"
)
