package shared

import (
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// StatusForErrorCode 业务错误码到响应状态码
func StatusForErrorCode(errorCode string) int {
	switch errorCode {
	case service.CodeNotFound:
		return response.CodeNotFound
	case service.CodeInvalidInput:
		return response.CodeBadRequest
	case service.CodeInvalidTransition, service.CodeAlreadyDelivered:
		return response.CodeConflict
	case service.CodeLocked:
		return response.CodeTooManyRequests
	case service.CodeUnsupported:
		return response.CodeUnprocessable
	case service.CodeUnauthorized:
		return response.CodeUnauthorized
	default:
		return response.CodeInternal
	}
}

// RespondError 按业务错误映射返回响应；SERVER_ERROR 只返回通用消息并记录日志。
func RespondError(c *gin.Context, err error) {
	errorCode := service.ErrorCode(err)
	code := StatusForErrorCode(errorCode)
	if errorCode == service.CodeServerError {
		RespondErrorWithMsg(c, code, errorCode, "internal server error", err)
		return
	}
	data := gin.H{}
	if fields := service.FieldErrors(err); len(fields) > 0 {
		data["fields"] = fields
	}
	msg := err.Error()
	if len(data) > 0 {
		msg = service.ErrInvalidInput.Error()
	}
	response.ErrorWithCode(c, code, errorCode, msg, data)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, errorCode, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"error_code", errorCode,
			"message", msg,
			"error", err,
		)
	}
	response.ErrorWithCode(c, code, errorCode, msg, nil)
}

// RespondBindError 请求体解析失败
func RespondBindError(c *gin.Context, err error) {
	RequestLog(c).Debugw("handler_bind_failed", "error", err)
	response.ErrorWithCode(c, response.CodeBadRequest, service.CodeInvalidInput, "invalid request body", nil)
}
