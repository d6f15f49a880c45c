package asset

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores that surface missing objects. Callers
// deleting an object treat it as success.
var ErrNotFound = errors.New("remote object not found")

// ValidationError reports a self-inconsistent request. Nothing is committed.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// UploadError reports a required upload the remote store rejected.
type UploadError struct {
	Filename string
	Err      error
}

func (e UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e UploadError) Unwrap() error {
	return e.Err
}

var (
	errLinkRequired = ValidationError{
		Code:    "link_required",
		Message: "external link required",
	}
	errFileOrLinkRequired = ValidationError{
		Code:    "file_or_link_required",
		Message: "file or link required",
	}
	errFileRequiredOnSwitch = ValidationError{
		Code:    "file_required_on_switch",
		Message: "file required when switching from link to upload",
	}
)

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func IsUpload(err error) bool {
	var u UploadError
	return errors.As(err, &u)
}
