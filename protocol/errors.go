package protocol

import "fmt"

const (
	EcodeShutdown        = 0
	EcodeReadonly        = 1
	EcodePathNotFound    = 2
	EcodePathNotTree     = 3
	EcodePathExists      = 4
	EcodeInvalidPath     = 5
	EcodeInvalidParam    = 6
	EcodeInvalidValue    = 7
	EcodeInvalidMessage  = 8
	EcodeUnknownRequest  = 9
	EcodeMalformedAction = 10
	EcodeReducerFailure  = 11
	EcodeInternalError   = 12
)

var errs = map[int]string{
	EcodeShutdown:        "server shutdown",
	EcodeReadonly:        "tree readonly",
	EcodePathNotFound:    "not found",
	EcodePathNotTree:     "not tree",
	EcodePathExists:      "path exists",
	EcodeInvalidPath:     "invalid path",
	EcodeInvalidParam:    "invalid parameter",
	EcodeInvalidValue:    "invalid value",
	EcodeInvalidMessage:  "invalid message",
	EcodeUnknownRequest:  "unknown request",
	EcodeMalformedAction: "malformed action",
	EcodeReducerFailure:  "reducer failure",
	EcodeInternalError:   "server internal error",
}

type Error struct {
	Code int
	Info string
}

func (e *Error) Error() string {
	info := e.Info
	if info != "" {
		info = ", info: " + info
	}
	if str, ok := errs[e.Code]; ok {
		return "treestate: " + str + info
	}
	return fmt.Sprintf("treestate: unknown error code: %d%s", e.Code, info)
}
