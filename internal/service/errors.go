package service

import (
	"errors"
	"strings"
)

// 业务错误
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyDelivered  = errors.New("order already delivered")
	ErrLocked            = errors.New("too many failed attempts, try again later")
	ErrUnsupported       = errors.New("operation not supported")

	ErrCodeGeneration     = errors.New("order code generation failed")
	ErrReceiptUnavailable = errors.New("receipt renderer unavailable")
	ErrBackupFileMissing  = errors.New("backup file missing")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidPassword    = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrAdminDisabled      = errors.New("account disabled")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrCannotDeleteSelf   = errors.New("cannot delete the current account")
	ErrLastSuperAdmin     = errors.New("at least one super admin is required")
	ErrThrottleStore      = errors.New("login throttle store unavailable")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")

	ErrStorageConfigInvalid = errors.New("storage config invalid")
)

// 对外错误码
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAlreadyDelivered  = "ALREADY_DELIVERED"
	CodeLocked            = "LOCKED"
	CodeUnsupported       = "UNSUPPORTED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeServerError       = "SERVER_ERROR"
)

// ErrorCode 将错误映射为对外错误码，未识别的一律视为 SERVER_ERROR
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBackupFileMissing):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrCannotDeleteSelf),
		errors.Is(err, ErrLastSuperAdmin),
		errors.Is(err, ErrCaptchaRequired),
		errors.Is(err, ErrCaptchaInvalid),
		errors.Is(err, ErrStorageConfigInvalid):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrAlreadyDelivered):
		return CodeAlreadyDelivered
	case errors.Is(err, ErrLocked):
		return CodeLocked
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAdminDisabled):
		return CodeUnauthorized
	default:
		return CodeServerError
	}
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError 输入校验失败，携带字段明细
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// Is 使 errors.Is(err, ErrInvalidInput) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add 追加字段错误
func (e *ValidationError) Add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// OrNil 无字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, rule, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}

// FieldErrors 提取字段级错误
func FieldErrors(err error) []FieldError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
