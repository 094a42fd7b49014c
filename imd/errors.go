package imd

import "fmt"

// Code is the stable numeric error code surfaced at the API boundary
// (spec section 6, "Error codes").
type Code int

const (
	CodeSectorNotFound Code = -10
	CodeTrackNotFound  Code = -11
	CodeReadError      Code = -12
	CodeWriteError     Code = -13
	CodeSeekError      Code = -14
	CodeInvalidArg     Code = -15
	CodeBufferTooSmall Code = -16
	CodeSizeMismatch   Code = -17
	CodeUnavailable    Code = -18
	CodeAlloc          Code = -19

	// Image-layer codes. InvalidArg, Unavailable and Alloc above are
	// reused by the image layer rather than duplicated.
	CodeWriteProtected Code = -20
	CodeGeometry       Code = -21
	CodeNotFound       Code = -22
	CodeIO             Code = -23
	CodeSectorSize     Code = -24
	CodeBufferSize     Code = -25
	CodeInternal       Code = -26
	CodeAlreadyOpen    Code = -27
	CodeCannotOpen     Code = -28
)

func (c Code) String() string {
	switch c {
	case CodeSectorNotFound:
		return "SectorNotFound"
	case CodeTrackNotFound:
		return "TrackNotFound"
	case CodeReadError:
		return "ReadError"
	case CodeWriteError:
		return "WriteError"
	case CodeSeekError:
		return "SeekError"
	case CodeInvalidArg:
		return "InvalidArg"
	case CodeBufferTooSmall:
		return "BufferTooSmall"
	case CodeSizeMismatch:
		return "SizeMismatch"
	case CodeUnavailable:
		return "Unavailable"
	case CodeAlloc:
		return "Alloc"
	case CodeWriteProtected:
		return "WriteProtected"
	case CodeGeometry:
		return "Geometry"
	case CodeNotFound:
		return "NotFound"
	case CodeIO:
		return "IO"
	case CodeSectorSize:
		return "SectorSize"
	case CodeBufferSize:
		return "BufferSize"
	case CodeInternal:
		return "Internal"
	case CodeAlreadyOpen:
		return "AlreadyOpen"
	case CodeCannotOpen:
		return "CannotOpen"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every public API in this package,
// apart from the plain io.EOF the track readers return at clean end of
// input. It carries the stable Code from spec section 6 alongside a wrapped
// cause, so callers can use errors.Is/errors.As against the Err*
// sentinels while %w-wrapping still works the way the rest of the
// codebase wraps errors.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("imd: %s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("imd: %s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, imd.ErrUnavailable) works against a plain sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Err: cause}
}

func newErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons against a specific code without
// caring about the message or cause.
var (
	ErrSectorNotFound = &Error{Code: CodeSectorNotFound, Msg: "sector not found"}
	ErrTrackNotFound  = &Error{Code: CodeTrackNotFound, Msg: "track not found"}
	ErrReadError      = &Error{Code: CodeReadError, Msg: "read error"}
	ErrWriteError     = &Error{Code: CodeWriteError, Msg: "write error"}
	ErrSeekError      = &Error{Code: CodeSeekError, Msg: "seek error"}
	ErrInvalidArg     = &Error{Code: CodeInvalidArg, Msg: "invalid argument"}
	ErrBufferTooSmall = &Error{Code: CodeBufferTooSmall, Msg: "buffer too small"}
	ErrSizeMismatch   = &Error{Code: CodeSizeMismatch, Msg: "size mismatch"}
	ErrUnavailable    = &Error{Code: CodeUnavailable, Msg: "sector unavailable"}
	ErrAlloc          = &Error{Code: CodeAlloc, Msg: "allocation failure"}
	ErrWriteProtected = &Error{Code: CodeWriteProtected, Msg: "image is write-protected"}
	ErrGeometry       = &Error{Code: CodeGeometry, Msg: "geometry violation"}
	ErrNotFound       = &Error{Code: CodeNotFound, Msg: "not found"}
	ErrIO             = &Error{Code: CodeIO, Msg: "I/O error"}
	ErrSectorSize     = &Error{Code: CodeSectorSize, Msg: "invalid sector size"}
	ErrBufferSize     = &Error{Code: CodeBufferSize, Msg: "buffer size mismatch"}
	ErrInternal       = &Error{Code: CodeInternal, Msg: "internal error"}
	ErrAlreadyOpen    = &Error{Code: CodeAlreadyOpen, Msg: "image already open"}
	ErrCannotOpen     = &Error{Code: CodeCannotOpen, Msg: "cannot open image"}
)
