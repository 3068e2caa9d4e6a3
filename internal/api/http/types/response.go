// Package types provides HTTP response type definitions.
package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/executive/pkg/types"
)

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// ==================== 请求体 ====================

// ValidateTransactionRequest 交易校验请求
type ValidateTransactionRequest struct {
	// Transaction RLP 编码的交易（0x 前缀十六进制）
	Transaction hexutil.Bytes `json:"transaction" binding:"required"`
	// Source external | local | in_block，缺省为 external
	Source string `json:"source"`
}

// ImportBlockRequest 区块导入请求
type ImportBlockRequest struct {
	Block hexutil.Bytes `json:"block" binding:"required"`
}

// ProduceBlockRequest 出块请求
type ProduceBlockRequest struct {
	Transactions []hexutil.Bytes `json:"transactions"`
}

// ==================== 响应体 ====================

// BlockResponse 区块查询响应
type BlockResponse struct {
	Hash    types.Hash    `json:"hash"`
	Header  *types.Header `json:"header"`
	TxCount int           `json:"tx_count"`
	Encoded hexutil.Bytes `json:"encoded"`
}

// ImportResponse 区块导入响应
type ImportResponse struct {
	Hash           types.Hash        `json:"hash"`
	Number         types.BlockNumber `json:"number"`
	Outcomes       []types.Outcome   `json:"outcomes"`
	EventCount     int               `json:"event_count"`
	WeightConsumed types.Weight      `json:"weight_consumed"`
}

// DroppedResponse 出块时被丢弃的交易
type DroppedResponse struct {
	Index int                  `json:"index"`
	Error *types.ValidityError `json:"error"`
}

// ProduceResponse 出块响应
type ProduceResponse struct {
	Hash           types.Hash        `json:"hash"`
	Number         types.BlockNumber `json:"number"`
	Block          hexutil.Bytes     `json:"block"`
	Outcomes       []types.Outcome   `json:"outcomes"`
	Dropped        []DroppedResponse `json:"dropped"`
	WeightConsumed types.Weight      `json:"weight_consumed"`
	Exhausted      bool              `json:"exhausted"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"` // healthy, unhealthy
	Head    string `json:"head,omitempty"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}
