// Package handlers 提供链服务的 HTTP API 处理器
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/executive/internal/api/http/middleware"
	apitypes "github.com/weisyn/executive/internal/api/http/types"
	"github.com/weisyn/executive/internal/core/chain"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// ChainService 处理器依赖的链服务能力
type ChainService interface {
	Head(ctx context.Context) (types.ChainHead, error)
	HeaderByNumber(ctx context.Context, n types.BlockNumber) (*types.Header, error)
	BlockByNumber(ctx context.Context, n types.BlockNumber) (*types.Block, error)
	NumberByHash(ctx context.Context, hash types.Hash) (types.BlockNumber, error)
	Account(ctx context.Context, who types.AccountID) (*chain.AccountInfo, error)
	ValidateTransaction(ctx context.Context, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error)
	ImportBlock(ctx context.Context, block *types.Block) (*types.BlockResult, error)
	ProduceBlock(ctx context.Context, txs []*types.Transaction, preRuntime []types.DigestItem) (*types.AuthoredBlock, error)
	Codec() executiveif.Codec
}

// respond 写出成功响应
func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, apitypes.NewSuccessResponse(data).WithRequestID(middleware.GetRequestID(c)))
}

// fail 登记错误，由 ErrorHandler 中间件写出
func fail(c *gin.Context, err *apitypes.APIError) {
	middleware.WriteError(c, err)
}

// classify 把链服务错误映射为 API 错误
func classify(err error) *apitypes.APIError {
	if ve, ok := types.AsValidityError(err); ok && !errors.Is(err, types.ErrInvalidBlock) {
		return apitypes.NewAPIError(http.StatusUnprocessableEntity, apitypes.ErrTxInvalid, err).
			WithDetails(ve)
	}
	switch {
	case errors.Is(err, chain.ErrNoGenesis):
		return apitypes.NewAPIError(http.StatusServiceUnavailable, apitypes.ErrChainNotInitialized, err)
	case errors.Is(err, chain.ErrBlockNotFound):
		return apitypes.NewAPIError(http.StatusNotFound, apitypes.ErrBlockNotFound, err)
	case errors.Is(err, types.ErrInvalidBlock):
		return apitypes.NewAPIError(http.StatusUnprocessableEntity, apitypes.ErrBlockRejected, err)
	default:
		return apitypes.NewAPIError(http.StatusInternalServerError, apitypes.ErrInternal, err)
	}
}

func badRequest(code string, err error) *apitypes.APIError {
	return apitypes.NewAPIError(http.StatusBadRequest, code, err)
}
