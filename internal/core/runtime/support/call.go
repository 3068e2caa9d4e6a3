package support

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/weisyn/executive/pkg/types"
)

// ErrCodeBadOrigin 各模块共用的来源错误码
const ErrCodeBadOrigin uint8 = 0

// NewCall 以 RLP 编码 args 构造调用
func NewCall(module, function string, args interface{}) (types.Call, error) {
	call := types.Call{Module: module, Function: function}
	if args == nil {
		return call, nil
	}
	data, err := rlp.EncodeToBytes(args)
	if err != nil {
		return types.Call{}, err
	}
	call.Args = data
	return call, nil
}

// DecodeArgs 解码调用参数；失败返回 InvalidCall 有效性错误
func DecodeArgs(call types.Call, out interface{}) error {
	if err := rlp.DecodeBytes(call.Args, out); err != nil {
		return types.NewValidityError(types.InvalidCall, "%s 参数无法解码: %v", call, err)
	}
	return nil
}

// UnknownCall 未知函数
func UnknownCall(call types.Call) error {
	return types.NewValidityError(types.UnknownModule, "未知调用 %s", call)
}

// EnsureSigned 要求签名来源，返回签名账户
func EnsureSigned(module string, origin types.Origin) (types.AccountID, error) {
	if origin.Kind != types.OriginSigned {
		return types.AccountID{}, types.NewDispatchError(module, ErrCodeBadOrigin, "需要签名来源")
	}
	return origin.Account, nil
}

// EnsureNone 要求无签名或固有来源
func EnsureNone(module string, origin types.Origin, kind types.OriginKind) error {
	if origin.Kind != kind {
		return types.NewDispatchError(module, ErrCodeBadOrigin, "来源必须为 "+kind.String())
	}
	return nil
}

// NewEvent 以 RLP 编码 data 构造事件；编码失败时事件不带数据
func NewEvent(module, name string, data interface{}) types.Event {
	ev := types.Event{Module: module, Name: name}
	if data != nil {
		if encoded, err := rlp.EncodeToBytes(data); err == nil {
			ev.Data = encoded
		}
	}
	return ev
}
