package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/executive/internal/api/http/types"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/executive/pkg/types"
)

// ChainHandlers 链查询与区块导入处理器
type ChainHandlers struct {
	chain  ChainService
	logger log.Logger
}

// NewChainHandlers 创建链处理器
func NewChainHandlers(chain ChainService, logger log.Logger) *ChainHandlers {
	return &ChainHandlers{chain: chain, logger: logger}
}

// RegisterRoutes 注册链相关路由
//
//	GET  /chain/head
//	GET  /blocks/:id          id 为十进制高度或 0x 区块哈希
//	POST /blocks/import
//	POST /blocks/produce      仅在 allowProduce 时注册
//	GET  /accounts/:address
//	POST /transactions/validate
func (h *ChainHandlers) RegisterRoutes(r *gin.RouterGroup, allowProduce bool) {
	r.GET("/chain/head", h.GetHead)

	blocks := r.Group("/blocks")
	blocks.GET("/:id", h.GetBlock)
	blocks.POST("/import", h.ImportBlock)
	if allowProduce {
		blocks.POST("/produce", h.ProduceBlock)
	}

	r.GET("/accounts/:address", h.GetAccount)
	r.POST("/transactions/validate", h.ValidateTransaction)
}

// GetHead 当前链头
func (h *ChainHandlers) GetHead(c *gin.Context) {
	head, err := h.chain.Head(c.Request.Context())
	if err != nil {
		fail(c, classify(err))
		return
	}
	respond(c, head)
}

// GetBlock 按高度或哈希查询区块
func (h *ChainHandlers) GetBlock(c *gin.Context) {
	ctx := c.Request.Context()
	number, err := h.resolveNumber(c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	block, berr := h.chain.BlockByNumber(ctx, number)
	if berr != nil {
		fail(c, classify(berr))
		return
	}
	codec := h.chain.Codec()
	hash, berr := codec.HeaderHash(block.Header)
	if berr != nil {
		fail(c, classify(berr))
		return
	}
	encoded, berr := codec.EncodeBlock(block)
	if berr != nil {
		fail(c, classify(berr))
		return
	}
	respond(c, &apitypes.BlockResponse{
		Hash:    hash,
		Header:  block.Header,
		TxCount: len(block.Transactions),
		Encoded: encoded,
	})
}

func (h *ChainHandlers) resolveNumber(c *gin.Context, id string) (types.BlockNumber, *apitypes.APIError) {
	if strings.HasPrefix(id, "0x") {
		if len(id) != 2+2*common.HashLength {
			return 0, badRequest(apitypes.ErrInvalidArgument, fmt.Errorf("区块哈希长度不正确: %s", id))
		}
		number, err := h.chain.NumberByHash(c.Request.Context(), types.HexToHash(id))
		if err != nil {
			return 0, classify(err)
		}
		return number, nil
	}
	number, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, badRequest(apitypes.ErrInvalidArgument, fmt.Errorf("区块高度不正确: %s", id))
	}
	return number, nil
}

// GetAccount 查询账户余额与 nonce
func (h *ChainHandlers) GetAccount(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		fail(c, badRequest(apitypes.ErrInvalidArgument, fmt.Errorf("地址格式不正确: %s", address)))
		return
	}
	info, err := h.chain.Account(c.Request.Context(), common.HexToAddress(address))
	if err != nil {
		fail(c, classify(err))
		return
	}
	respond(c, info)
}

// ValidateTransaction 在链头状态上校验交易
func (h *ChainHandlers) ValidateTransaction(c *gin.Context) {
	var req apitypes.ValidateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest(apitypes.ErrInvalidArgument, err))
		return
	}
	source, err := parseSource(req.Source)
	if err != nil {
		fail(c, badRequest(apitypes.ErrInvalidArgument, err))
		return
	}
	tx, err := h.chain.Codec().DecodeTransaction(req.Transaction)
	if err != nil {
		fail(c, badRequest(apitypes.ErrTxDecode, err))
		return
	}
	valid, err := h.chain.ValidateTransaction(c.Request.Context(), tx, source)
	if err != nil {
		fail(c, classify(err))
		return
	}
	respond(c, valid)
}

// ImportBlock 校验并导入区块
func (h *ChainHandlers) ImportBlock(c *gin.Context) {
	var req apitypes.ImportBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest(apitypes.ErrInvalidArgument, err))
		return
	}
	block, err := h.chain.Codec().DecodeBlock(req.Block)
	if err != nil {
		fail(c, badRequest(apitypes.ErrInvalidArgument, err))
		return
	}
	result, err := h.chain.ImportBlock(c.Request.Context(), block)
	if err != nil {
		fail(c, classify(err))
		return
	}
	respond(c, &apitypes.ImportResponse{
		Hash:           result.Hash,
		Number:         result.Header.Number,
		Outcomes:       result.Outcomes,
		EventCount:     len(result.Events),
		WeightConsumed: result.WeightConsumed,
	})
}

// ProduceBlock 以给定交易出块
func (h *ChainHandlers) ProduceBlock(c *gin.Context) {
	var req apitypes.ProduceBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest(apitypes.ErrInvalidArgument, err))
		return
	}
	codec := h.chain.Codec()
	txs := make([]*types.Transaction, 0, len(req.Transactions))
	index := make(map[*types.Transaction]int, len(req.Transactions))
	for i, raw := range req.Transactions {
		tx, err := codec.DecodeTransaction(raw)
		if err != nil {
			fail(c, badRequest(apitypes.ErrTxDecode, fmt.Errorf("交易 %d: %w", i, err)))
			return
		}
		txs = append(txs, tx)
		index[tx] = i
	}

	authored, err := h.chain.ProduceBlock(c.Request.Context(), txs, nil)
	if err != nil {
		fail(c, classify(err))
		return
	}
	encoded, err := codec.EncodeBlock(authored.Block)
	if err != nil {
		fail(c, classify(err))
		return
	}

	dropped := make([]apitypes.DroppedResponse, 0, len(authored.Dropped))
	for _, d := range authored.Dropped {
		i, ok := index[d.Transaction]
		if !ok {
			i = -1
		}
		dropped = append(dropped, apitypes.DroppedResponse{Index: i, Error: d.Error})
	}
	if h.logger != nil && len(dropped) > 0 {
		h.logger.Debugf("出块丢弃 %d 笔交易", len(dropped))
	}
	respond(c, &apitypes.ProduceResponse{
		Hash:           authored.Hash,
		Number:         authored.Block.Header.Number,
		Block:          encoded,
		Outcomes:       authored.Outcomes,
		Dropped:        dropped,
		WeightConsumed: authored.WeightConsumed,
		Exhausted:      authored.Exhausted,
	})
}

func parseSource(s string) (types.TransactionSource, error) {
	switch s {
	case "", "external":
		return types.SourceExternal, nil
	case "local":
		return types.SourceLocal, nil
	case "in_block":
		return types.SourceInBlock, nil
	default:
		return 0, fmt.Errorf("未知的交易来源: %s", s)
	}
}
