package errors

import "fmt"

const (
	// The requested configuration is invalid or contradictory
	CodeConfig = "CONFIG"
	// No usable libtorch installation could be located
	CodeNotFound = "NOT_FOUND"
	// An installation was located but its version does not satisfy the request
	CodeVersionMismatch = "VERSION_MISMATCH"
	// Fetching a prebuilt archive failed in transport
	CodeNetwork = "NETWORK"
	// A fetched archive could not be extracted or had an unexpected layout
	CodeArchive = "ARCHIVE"
)

// Types ////////////////////////////////////////

type CodedError interface {
	Code() string
}

type codedError struct {
	code string
	msg  string
	err  error
}

func (e *codedError) Error() string {
	return e.msg
}

func (e *codedError) Code() string {
	return e.code
}

func (e *codedError) Unwrap() error {
	return e.err
}

// Error Creators ///////////////////////////////

func Config(msg string) error {
	return &codedError{code: CodeConfig, msg: msg}
}

func Configf(format string, v ...interface{}) error {
	return &codedError{code: CodeConfig, msg: fmt.Sprintf(format, v...)}
}

func NotFound(msg string) error {
	return &codedError{code: CodeNotFound, msg: msg}
}

func NotFoundf(format string, v ...interface{}) error {
	return &codedError{code: CodeNotFound, msg: fmt.Sprintf(format, v...)}
}

func VersionMismatchf(format string, v ...interface{}) error {
	return &codedError{code: CodeVersionMismatch, msg: fmt.Sprintf(format, v...)}
}

// Network wraps a transport failure, keeping the cause reachable for errors.Is.
func Network(msg string, err error) error {
	return &codedError{code: CodeNetwork, msg: fmt.Sprintf("%s: %s", msg, err), err: err}
}

func Networkf(format string, v ...interface{}) error {
	return &codedError{code: CodeNetwork, msg: fmt.Sprintf(format, v...)}
}

func Archive(msg string, err error) error {
	return &codedError{code: CodeArchive, msg: fmt.Sprintf("%s: %s", msg, err), err: err}
}

func Archivef(format string, v ...interface{}) error {
	return &codedError{code: CodeArchive, msg: fmt.Sprintf(format, v...)}
}

// Helpers //////////////////////////////////////

func IsConfig(err error) bool {
	return Code(err) == CodeConfig
}

func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

func IsVersionMismatch(err error) bool {
	return Code(err) == CodeVersionMismatch
}

func IsNetwork(err error) bool {
	return Code(err) == CodeNetwork
}

func IsArchive(err error) bool {
	return Code(err) == CodeArchive
}

// Return the error code, or the empty string
func Code(err error) string {
	if cerr, ok := err.(CodedError); ok {
		return cerr.Code()
	}

	return ""
}
