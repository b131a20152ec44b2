// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrKioskNotFound      = errors.New("kiosk not found")
	ErrKioskInactive      = errors.New("kiosk is inactive")
	ErrAlreadyMember      = errors.New("user is already a member of this kiosk")
	ErrMemberNotFound     = errors.New("kiosk member not found")
	ErrNotAuthorized      = errors.New("not authorized for this kiosk")
	ErrOwnerOnly          = errors.New("only the kiosk owner may perform this action")

	ErrNetworkNotFound     = errors.New("network not found")
	ErrRateNotFound        = errors.New("commission rate not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrOpeningBalanceNotFound = errors.New("opening balance not found")
	ErrReportNotFound         = errors.New("report not found")
	ErrNotificationNotFound   = errors.New("notification not found")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
