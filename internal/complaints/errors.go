package complaints

import "errors"

var (
	// ErrMissingUser is returned when a complaint has no owner.
	ErrMissingUser = errors.New("user_id is required")

	// ErrMissingDescription is returned when the complaint text is empty
	ErrMissingDescription = errors.New("complaint text is required")

	// ErrComplaintNotFound is returned when a complaint is not found
	ErrComplaintNotFound = errors.New("complaint not found")
)

// ErrOwnerNotFound is returned when a dashboard is requested for an unknown user.
var ErrOwnerNotFound = errors.New("User not found")

// ErrInvalidStatus is returned for status values outside the known set.
var ErrInvalidStatus = errors.New("invalid complaint status")
