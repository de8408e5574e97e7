package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHook struct {
	calls []RoleEvent
	err   error
}

func (h *recordingHook) HandlePre(ctx context.Context, event RoleEvent) error {
	h.calls = append(h.calls, event)
	return h.err
}

type recordingPublisher struct {
	calls []RoleEvent
	err   error
}

func (p *recordingPublisher) HandlePost(ctx context.Context, event RoleEvent) error {
	p.calls = append(p.calls, event)
	return p.err
}

func TestDispatchPre_RunsHooksInOrder(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	first := &recordingHook{}
	second := &recordingHook{}
	d.RegisterPreHook(first)
	d.RegisterPreHook(second)

	event := RoleEvent{Operation: OpAddRole, RoleName: "editor", TenantDomain: "acme.com"}
	require.NoError(t, d.DispatchPre(context.Background(), event))
	require.Len(t, first.calls, 1)
	require.Len(t, second.calls, 1)
	assert.Equal(t, "editor", first.calls[0].RoleName)
}

func TestDispatchPre_FirstVetoShortCircuits(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	veto := &recordingHook{err: errors.New("not allowed")}
	after := &recordingHook{}
	d.RegisterPreHook(veto)
	d.RegisterPreHook(after)

	err := d.DispatchPre(context.Background(), RoleEvent{Operation: OpDeleteRole})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role.delete")
	assert.Contains(t, err.Error(), "not allowed")
	assert.Empty(t, after.calls)
}

func TestDispatchPost_SwallowsPublisherErrors(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	failing := &recordingPublisher{err: errors.New("broker down")}
	healthy := &recordingPublisher{}
	d.RegisterPublisher(failing)
	d.RegisterPublisher(healthy)

	d.DispatchPost(context.Background(), RoleEvent{Operation: OpUpdateRoleName, RoleID: "r-1"})
	require.Len(t, failing.calls, 1)
	require.Len(t, healthy.calls, 1)
}

func TestDispatchPre_NoHooksIsNoOp(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, d.DispatchPre(context.Background(), RoleEvent{Operation: OpAddRole}))
	d.DispatchPost(context.Background(), RoleEvent{Operation: OpAddRole})
}
