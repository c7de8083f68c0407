// Package errors 定义统一错误码
package errors

import "fmt"

// Code 错误码
type Code string

// 错误码定义
const (
	// 通用错误
	CodeOK           Code = "OK"
	CodeUnknown      Code = "UNKNOWN"
	CodeInvalidParam Code = "INVALID_PARAM"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL"

	// 订单生命周期
	CodeTerminalState   Code = "TERMINAL_STATE"
	CodeOrderNotPlaced  Code = "ORDER_NOT_PLACED"
	CodeNoProvider      Code = "NO_PROVIDER"
	CodeNoResolver      Code = "NO_RESOLVER"
	CodeInvalidQuantity Code = "INVALID_QUANTITY"
	CodeInvalidPrice    Code = "INVALID_PRICE"
	CodeOverfill        Code = "OVERFILL"

	// 存储
	CodeStoreFailure Code = "STORE_FAILURE"
	CodeIDExhausted  Code = "ID_EXHAUSTED"
)

// Error 业务错误
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is 按错误码匹配，支持 errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建错误
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 创建格式化错误
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装底层错误，保留错误码
func Wrap(code Code, message string, err error) *Error {
	if err == nil {
		return New(code, message)
	}
	return New(code, fmt.Sprintf("%s: %v", message, err))
}

// CodeOf 提取错误码，非业务错误返回 UNKNOWN
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// 预定义错误
var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound      = New(CodeNotFound, "order not found")
	ErrConflict      = New(CodeConflict, "order id already exists")
	ErrTerminalState = New(CodeTerminalState, "order is in a terminal state")
	ErrNoProvider    = New(CodeNoProvider, "order has no routing provider")
	ErrNoResolver    = New(CodeNoResolver, "instrument resolver not configured")
	ErrStoreFailure  = New(CodeStoreFailure, "store operation failed")
)
