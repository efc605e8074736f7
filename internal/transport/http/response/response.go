package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeUnsupportedUpload  = 40003
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeNotFound           = 40400
	CodeDocumentNotFound   = 40401
	CodeTooManyRequests    = 42900
	CodeInternalServer     = 50000
)

type APIResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// RequestIDKey is the gin context key the request-id middleware stores under.
const RequestIDKey = "request_id"

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	Error(c, httpStatus, code, message)
	c.Abort()
}
