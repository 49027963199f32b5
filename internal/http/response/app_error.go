package response

import "github.com/gin-gonic/gin"

// AppError 处理器返回给客户端的错误
type AppError struct {
	Code    int
	Key     string // 国际化消息键，自定义消息时为空
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// LogFields 结构化日志字段
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{"code", e.Code, "message", e.Message}
	if e.Key != "" {
		fields = append(fields, "key", e.Key)
	}
	if e.Err != nil {
		fields = append(fields, "error", e.Err)
	}
	return fields
}

// Write 以统一信封输出
func (e *AppError) Write(c *gin.Context) {
	Error(c, e.Code, e.Message)
}

// WrapError 包装错误
func WrapError(code int, key, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Key:     key,
		Message: message,
		Err:     err,
	}
}
