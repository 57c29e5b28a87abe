package repository

import (
	stderrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campusmart/pkg/errors"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	listingsCollection      = "listings"
	usersCollection         = "users"
)

// storeError converts a Firestore failure into an AppError. Errors that are already
// AppErrors, such as guard failures raised inside a transaction, pass through.
func storeError(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return errors.Unavailable(message, err)
	default:
		return errors.Internal(message, err)
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
