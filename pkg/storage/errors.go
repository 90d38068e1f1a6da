package storage

import (
	"errors"

	"github.com/marmos91/larder/pkg/path"
)

// ============================================================================
// Storage Error Taxonomy
// ============================================================================

// ErrorCode represents the category of a storage error.
//
// Callers branch on the code to decide whether to create, retry or abort:
//   - ErrPathDoesNotExist: nothing stored at the path (create it)
//   - ErrPathIsDirectory: the path only has descendants (pick a leaf)
//   - ErrStore/ErrRemove/ErrRetrieve: the medium failed (retry or abort)
//   - ErrUnsupportedOperation: the backend can't do this (permanent)
type ErrorCode int

const (
	// ErrPathDoesNotExist indicates the target path is absent from the backend.
	ErrPathDoesNotExist ErrorCode = iota

	// ErrPathIsDirectory indicates the target path denotes a directory and
	// cannot be retrieved as content.
	ErrPathIsDirectory

	// ErrStore indicates the backend failed to persist content.
	// The underlying I/O error is available through errors.Unwrap.
	ErrStore

	// ErrRemove indicates the backend failed to delete content.
	ErrRemove

	// ErrRetrieve indicates the backend failed to read content.
	ErrRetrieve

	// ErrUnsupportedOperation indicates the backend does not implement the
	// requested capability.
	ErrUnsupportedOperation
)

// String returns the name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrPathDoesNotExist:
		return "PathDoesNotExist"
	case ErrPathIsDirectory:
		return "PathIsDirectory"
	case ErrStore:
		return "StoreError"
	case ErrRemove:
		return "RemoveError"
	case ErrRetrieve:
		return "RetrieveError"
	case ErrUnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// StorageError is the single error type returned by backends.
//
// Error Matching:
// StorageError implements Is by comparing codes, so the sentinels below work
// with errors.Is regardless of message, path or cause:
//
//	content, err := st.Retrieve(ctx, "secrets/db")
//	if errors.Is(err, storage.PathDoesNotExist) {
//	    // create it
//	}
//
// The original I/O error of a StoreError/RemoveError/RetrieveError is kept as
// Cause and exposed through Unwrap, so errors.Is(err, fs.ErrPermission) still
// works for diagnostics.
type StorageError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the resolved path the operation targeted (zero if not applicable)
	Path path.Path

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if !e.Path.IsZero() {
		msg += ": " + e.Path.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a StorageError with the same code.
func (e *StorageError) Is(target error) bool {
	var t *StorageError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for use with errors.Is. They carry no path or cause.
var (
	PathDoesNotExist     = &StorageError{Code: ErrPathDoesNotExist, Message: "path does not exist"}
	PathIsDirectory      = &StorageError{Code: ErrPathIsDirectory, Message: "path is a directory"}
	StoreFailed          = &StorageError{Code: ErrStore, Message: "failed to store"}
	RemoveFailed         = &StorageError{Code: ErrRemove, Message: "failed to remove"}
	RetrieveFailed       = &StorageError{Code: ErrRetrieve, Message: "failed to retrieve"}
	UnsupportedOperation = &StorageError{Code: ErrUnsupportedOperation, Message: "operation not supported"}
)

// NewPathDoesNotExistError reports that nothing is stored at p.
func NewPathDoesNotExistError(p path.Path) error {
	return &StorageError{
		Code:    ErrPathDoesNotExist,
		Message: "path not in storage",
		Path:    p,
	}
}

// NewPathIsDirectoryError reports that p is a directory.
func NewPathIsDirectoryError(p path.Path) error {
	return &StorageError{
		Code:    ErrPathIsDirectory,
		Message: "can't retrieve content as path is a directory",
		Path:    p,
	}
}

// NewStoreError wraps an I/O failure raised while storing at p.
func NewStoreError(p path.Path, cause error) error {
	return &StorageError{Code: ErrStore, Message: "failed to store at path", Path: p, Cause: cause}
}

// NewRemoveError wraps an I/O failure raised while removing p.
func NewRemoveError(p path.Path, cause error) error {
	return &StorageError{Code: ErrRemove, Message: "failed to remove from path", Path: p, Cause: cause}
}

// NewRetrieveError wraps an I/O failure raised while retrieving p.
func NewRetrieveError(p path.Path, cause error) error {
	return &StorageError{Code: ErrRetrieve, Message: "failed to retrieve from path", Path: p, Cause: cause}
}

// NewUnsupportedOperationError reports that op is not implemented.
func NewUnsupportedOperationError(op string) error {
	return &StorageError{Code: ErrUnsupportedOperation, Message: op + " not supported"}
}

// IsPathDoesNotExist reports whether err is (or wraps) a PathDoesNotExist error.
func IsPathDoesNotExist(err error) bool {
	return errors.Is(err, PathDoesNotExist)
}

// IsPathIsDirectory reports whether err is (or wraps) a PathIsDirectory error.
func IsPathIsDirectory(err error) bool {
	return errors.Is(err, PathIsDirectory)
}

// IsUnsupportedOperation reports whether err is (or wraps) an
// UnsupportedOperation error.
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, UnsupportedOperation)
}

// IsIOError reports whether err is one of the wrapped I/O kinds
// (StoreError, RemoveError, RetrieveError). These are the only kinds worth
// retrying.
func IsIOError(err error) bool {
	return errors.Is(err, StoreFailed) || errors.Is(err, RemoveFailed) || errors.Is(err, RetrieveFailed)
}

// CodeOf returns the code of the first StorageError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StorageError
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code, true
}
