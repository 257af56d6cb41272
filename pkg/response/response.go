package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// Business codes.
const (
	CodeValidationFailed    = 1001
	CodeBusinessRule        = 1002
	CodeInsufficientBalance = 1003
	CodeDestinationNotFound = 1004
	CodeDuplicateEntry      = 1005
	CodeTransactionFailed   = 1006
	CodeInconsistentState   = 1007
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

// ValidationFailed reports per-field validation errors with a 422, the way
// the API reports malformed business input.
func ValidationFailed(c *gin.Context, fields interface{}) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Code:    CodeValidationFailed,
		Message: "validation failed",
		Errors:  fields,
	})
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, http.StatusOK, code, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeServerError, message)
}
