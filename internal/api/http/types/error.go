// Package types provides HTTP error type definitions.
package types

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"`                // 错误码
	Message   string      `json:"message"`             // 错误消息
	Details   interface{} `json:"details,omitempty"`   // 详细信息
	RequestID string      `json:"requestId,omitempty"` // 请求ID
}

// 错误码常量
const (
	// 通用错误码（400-499）
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrNotFound        = "NOT_FOUND"

	// 链/区块错误码
	ErrChainNotInitialized = "CHAIN_NOT_INITIALIZED"
	ErrBlockNotFound       = "BLOCK_NOT_FOUND"
	ErrBlockRejected       = "BLOCK_REJECTED"

	// 交易错误码
	ErrTxDecode  = "TX_DECODE_FAILED"
	ErrTxInvalid = "TX_INVALID"

	// 服务器错误码（500-599）
	ErrInternal = "INTERNAL"
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithRequestID 添加请求ID
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.Error.RequestID = requestID
	return e
}

// APIError 处理器返回的错误，由 ErrorHandler 中间件统一写出
type APIError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap 返回底层错误
func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError 创建 API 错误
func NewAPIError(status int, code string, err error) *APIError {
	message := code
	if err != nil {
		message = err.Error()
	}
	return &APIError{Status: status, Code: code, Message: message, Err: err}
}

// WithDetails 附加详细信息
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}
