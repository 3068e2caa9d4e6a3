package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/runtime/registry"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

type hookOnly struct{ name string }

func (h hookOnly) Name() string { return h.name }
func (h hookOnly) OnInitialize(context.Context, executive.Env) (types.Weight, error) {
	return 0, nil
}
func (h hookOnly) OnFinalize(context.Context, executive.Env) error { return nil }

type echo struct{ hookOnly }

func (e echo) CallInfo(types.Call) (types.DispatchInfo, error) {
	return types.DispatchInfo{Weight: 7, PaysFee: types.PaysYes}, nil
}

func (e echo) Dispatch(_ context.Context, _ executive.Env, _ types.Origin, call types.Call) ([]types.Event, error) {
	return []types.Event{{Module: e.name, Name: call.Function}}, nil
}

func TestRegistry_HookOrder(t *testing.T) {
	r, err := registry.New(hookOnly{"a"}, hookOnly{"b"}, hookOnly{"c"})
	require.NoError(t, err)

	var forward, reverse []string
	for _, m := range r.Hooks() {
		forward = append(forward, m.Name())
	}
	for _, m := range r.ReverseHooks() {
		reverse = append(reverse, m.Name())
	}

	assert.Equal(t, []string{"a", "b", "c"}, forward)
	assert.Equal(t, []string{"c", "b", "a"}, reverse)
	assert.Equal(t, forward, r.Names())
}

func TestRegistry_RejectsDuplicateAndNil(t *testing.T) {
	_, err := registry.New(hookOnly{"a"}, hookOnly{"a"})
	assert.Error(t, err)

	_, err = registry.New(nil)
	assert.Error(t, err)
}

func TestRegistry_Routing(t *testing.T) {
	r, err := registry.New(hookOnly{"plain"}, echo{hookOnly{"echo"}})
	require.NoError(t, err)

	info, err := r.CallInfo(types.Call{Module: "echo", Function: "ping"})
	require.NoError(t, err)
	assert.Equal(t, types.Weight(7), info.Weight)

	events, err := r.Dispatch(context.Background(), nil, types.Unsigned(), types.Call{Module: "echo", Function: "ping"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0].Name)

	// 未注册模块与不可分发模块都是 UnknownModule
	_, err = r.CallInfo(types.Call{Module: "missing"})
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.UnknownModule})
	_, err = r.CallInfo(types.Call{Module: "plain"})
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.UnknownModule})
}
