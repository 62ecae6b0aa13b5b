package apperror

import (
	"errors"
	"fmt"
)

// Kind 区分错误来源，决定调用方如何恢复。
type Kind string

const (
	// KindValidation 用户输入不合法，本地即可恢复。
	KindValidation Kind = "validation"
	// KindExternalService 外部引擎出错或返回了不合约定的结果。
	KindExternalService Kind = "external_service"
	// KindPrecondition 当前会话状态不允许该操作。
	KindPrecondition Kind = "precondition"
)

// Error 携带错误类别与发生位置。
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 构造输入校验错误。
func Validation(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// External 包装外部服务错误。
func External(op string, err error) error {
	return &Error{Kind: KindExternalService, Op: op, Err: err}
}

// Externalf 构造没有底层错误的外部服务错误，例如返回结构不合法。
func Externalf(op, format string, args ...any) error {
	return &Error{Kind: KindExternalService, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Precondition 构造状态前置条件错误，可选包装一个哨兵错误便于 errors.Is 判断。
func Precondition(op string, sentinel error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: sentinel}
}

// KindOf 返回错误链上第一个 *Error 的类别，未分类时返回空字符串。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsExternal(err error) bool {
	return KindOf(err) == KindExternalService
}

func IsPrecondition(err error) bool {
	return KindOf(err) == KindPrecondition
}

// UserMessage 返回适合直接展示给用户的错误描述。
func UserMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	if appErr.Err != nil {
		return appErr.Err.Error()
	}
	return string(appErr.Kind)
}
