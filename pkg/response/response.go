package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"TaskQuest/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// statusByCode 业务错误码到 HTTP 状态码的映射，未列出的按 500 处理
var statusByCode = map[string]int{
	errors.InvalidRequest.Code:       http.StatusBadRequest,
	errors.InvalidAmount.Code:        http.StatusBadRequest,
	errors.IncorrectAnswer.Code:      http.StatusBadRequest,
	errors.ConverterTypeInvalid.Code: http.StatusBadRequest,
	errors.EmailRequired.Code:        http.StatusBadRequest,
	errors.NoPendingQuestion.Code:    http.StatusBadRequest,
	errors.IdentityFailed.Code:       http.StatusBadRequest,

	errors.Unauthorized.Code:       http.StatusUnauthorized,
	errors.InvalidCredentials.Code: http.StatusUnauthorized,

	errors.InsufficientFunds.Code: http.StatusPaymentRequired,

	errors.FeatureRequired.Code: http.StatusForbidden,

	errors.AccountNotFound.Code: http.StatusNotFound,
	errors.FeatureNotFound.Code: http.StatusNotFound,
	errors.TaskNotFound.Code:    http.StatusNotFound,
	errors.TagNotFound.Code:     http.StatusNotFound,
	errors.PostNotFound.Code:    http.StatusNotFound,

	errors.AlreadyOwned.Code:     http.StatusConflict,
	errors.TagExists.Code:        http.StatusConflict,
	errors.TaskCompleted.Code:    http.StatusConflict,
	errors.UsernameTaken.Code:    http.StatusConflict,
	errors.EmailTaken.Code:       http.StatusConflict,
	errors.AnswerInProgress.Code: http.StatusConflict,

	errors.DailyLimitReached.Code: http.StatusTooManyRequests,
	errors.RateLimited.Code:       http.StatusTooManyRequests,

	errors.ProviderUnavailable.Code: http.StatusServiceUnavailable,
	errors.DispatchFailed.Code:      http.StatusServiceUnavailable,
}

// asDefinition 解开 %w 包装，取出业务错误
func asDefinition(err error) (errors.Definition, bool) {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return errors.Definition{}, false
}

// StatusOf 返回错误对应的 HTTP 状态码
func StatusOf(err error) int {
	def, ok := asDefinition(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, found := statusByCode[def.Code]; found {
		return status
	}
	return http.StatusInternalServerError
}

// Error 返回错误响应，非业务错误不向客户端暴露细节
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	detail := ErrorDetail{
		Code:    errors.Internal.Code,
		Message: errors.Internal.Message,
		Details: details,
	}
	if def, ok := asDefinition(err); ok {
		detail.Code = def.Code
		detail.Message = def.Message
	}

	c.JSON(StatusOf(err), ErrorResponse{Error: detail})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
