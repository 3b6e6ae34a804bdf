package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/hooks"
)

type recordingHook struct {
	hooks.BaseHook
	name  string
	calls *[]string
}

func (h recordingHook) BeforeSave(ctx context.Context, inv *hooks.Invocation) error {
	*h.calls = append(*h.calls, "before:"+h.name)
	return nil
}

func (h recordingHook) AfterSave(ctx context.Context, inv *hooks.Invocation) error {
	*h.calls = append(*h.calls, "after:"+h.name)
	return nil
}

type rejectingHook struct {
	hooks.BaseHook
}

func (rejectingHook) BeforeSave(context.Context, *hooks.Invocation) error {
	return errors.New("rejected")
}

func TestHooksRunInRegistrationOrder(t *testing.T) {
	var calls []string
	reg := hooks.NewRegistry(nil)
	require.NoError(t, reg.Register("first", recordingHook{name: "first", calls: &calls}))
	require.NoError(t, reg.Register("second", recordingHook{name: "second", calls: &calls}))

	inv, err := reg.RunBeforeSave(context.Background(), "home", "note-1", "note", "", nil)
	require.NoError(t, err)
	reg.RunAfterSave(context.Background(), inv)

	assert.Equal(t, []string{"before:first", "before:second", "after:first", "after:second"}, calls)
	assert.NotEmpty(t, inv.CorrelationID)
}

func TestRegisterDuplicateIDRejected(t *testing.T) {
	reg := hooks.NewRegistry(nil)
	require.NoError(t, reg.Register("dup", hooks.BaseHook{}))
	err := reg.Register("dup", hooks.BaseHook{})
	assert.Error(t, err)
}

func TestBeforeSaveRejectionStopsChain(t *testing.T) {
	var calls []string
	reg := hooks.NewRegistry(nil)
	require.NoError(t, reg.Register("reject", rejectingHook{}))
	require.NoError(t, reg.Register("never-runs", recordingHook{name: "never", calls: &calls}))

	_, err := reg.RunBeforeSave(context.Background(), "home", "note-1", "note", "", nil)
	assert.Error(t, err)
	assert.Empty(t, calls)
}

func TestUnregisterRemovesHook(t *testing.T) {
	var calls []string
	reg := hooks.NewRegistry(nil)
	require.NoError(t, reg.Register("only", recordingHook{name: "only", calls: &calls}))
	assert.Equal(t, 1, reg.Count())

	reg.Unregister("only")
	assert.Equal(t, 0, reg.Count())

	_, err := reg.RunBeforeSave(context.Background(), "home", "note-1", "note", "", nil)
	require.NoError(t, err)
	assert.Empty(t, calls)
}
