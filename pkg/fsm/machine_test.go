package fsm

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/macwinusb/winusb/pkg/diskutil"
	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/macwinusb/winusb/pkg/prompt"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superfly/fsm"
)

const (
	sourceMount = "/Volumes/CCCOMA_X64FRE"
	targetMount = "/Volumes/WININSTALL"
)

type fakeTools struct {
	fs        afero.Fs
	calls     []string
	copyErr   error
	detachErr error
}

func (f *fakeTools) Attach(ctx context.Context, imagePath string) (string, error) {
	f.calls = append(f.calls, "attach")
	return sourceMount, nil
}

func (f *fakeTools) Detach(ctx context.Context, mountPoint string) error {
	f.calls = append(f.calls, "detach")
	return f.detachErr
}

func (f *fakeTools) ListDevices(ctx context.Context) (string, error) { return "", nil }

func (f *fakeTools) Erase(ctx context.Context, spec diskutil.EraseSpec) error {
	f.calls = append(f.calls, "erase "+spec.Device)
	return f.fs.MkdirAll(targetMount, 0o755)
}

func (f *fakeTools) Copy(ctx context.Context, spec diskutil.CopySpec) error {
	f.calls = append(f.calls, "copy")
	return f.copyErr
}

func (f *fakeTools) Split(ctx context.Context, src, dst string, partSizeMiB int) error {
	f.calls = append(f.calls, "split")
	return nil
}

func newMachine(t *testing.T) (*Machine, *fakeTools) {
	t.Helper()

	mem := afero.NewMemMapFs()
	wim := filepath.Join(sourceMount, "sources", "install.wim")
	require.NoError(t, afero.WriteFile(mem, wim, []byte("wim"), 0o644))

	tools := &fakeTools{fs: mem}
	p := installer.New(installer.Config{}, installer.Deps{
		Tools:     tools,
		UI:        prompt.NewScripted(),
		FS:        mem,
		Preflight: func() error { return nil },
	})
	return NewMachine(p, 0), tools
}

func newRequest() *fsm.Request[BurnRequest, BurnResponse] {
	return fsm.NewRequest(&BurnRequest{
		RunKey:      "run-1",
		SourceImage: "/tmp/win.iso",
		Device:      "disk4",
	}, &BurnResponse{})
}

func TestTransitions_HappyPath(t *testing.T) {
	m, tools := newMachine(t)
	ctx := context.Background()
	req := newRequest()

	handlers := []func(context.Context, *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error){
		m.handleMount,
		m.handlePrepare,
		m.handleCopy,
		m.handlePayload,
		m.handleRelease,
	}
	for _, h := range handlers {
		_, err := h(ctx, req)
		require.NoError(t, err)
	}

	resp := req.W.Msg
	assert.Equal(t, sourceMount, resp.MountPoint)
	assert.Equal(t, string(payload.ActionCopy), resp.PayloadAction)
	assert.Equal(t, installer.StatusComplete, resp.Status)
	assert.Equal(t, []string{"attach", "erase disk4", "copy", "detach"}, tools.calls)

	o := m.take("run-1")
	require.NotNil(t, o)
	require.NoError(t, o.err)
	assert.Equal(t, payload.ActionCopy, o.result.Payload.Action)
	assert.Equal(t, "disk4", o.result.Inputs.Device)
}

func TestTransitions_CopyFailureDetaches(t *testing.T) {
	m, tools := newMachine(t)
	tools.copyErr = fmt.Errorf("rsync exited 23")
	ctx := context.Background()
	req := newRequest()

	_, err := m.handleMount(ctx, req)
	require.NoError(t, err)
	_, err = m.handlePrepare(ctx, req)
	require.NoError(t, err)

	_, err = m.handleCopy(ctx, req)
	require.Error(t, err)

	assert.Equal(t, "detach", tools.calls[len(tools.calls)-1])
	assert.Equal(t, installer.StatusFailed, req.W.Msg.Status)
	assert.Contains(t, req.W.Msg.ErrorMessage, "rsync exited 23")

	o := m.take("run-1")
	require.NotNil(t, o)
	assert.Equal(t, installer.StageCopy, errors.StageOf(o.err))
	assert.Nil(t, o.result)
}

func TestTransitions_DetachFailureIsWarning(t *testing.T) {
	m, tools := newMachine(t)
	tools.detachErr = fmt.Errorf("resource busy")
	ctx := context.Background()
	req := newRequest()
	req.W.Msg.MountPoint = sourceMount

	_, err := m.handleRelease(ctx, req)
	require.NoError(t, err)

	assert.True(t, req.W.Msg.DetachFailed)
	assert.Equal(t, installer.StatusDetachFailed, req.W.Msg.Status)

	o := m.take("run-1")
	require.NotNil(t, o)
	assert.True(t, o.result.DetachFailed)
	require.Len(t, o.result.Warnings, 1)
}

func TestMachine_Run(t *testing.T) {
	tests := []struct {
		name      string
		copyErr   error
		wantStage string
		wantCalls []string
	}{
		{
			name:      "success",
			wantCalls: []string{"attach", "erase disk4", "copy", "detach"},
		},
		{
			name:      "copy failure detaches",
			copyErr:   fmt.Errorf("rsync exited 23"),
			wantStage: installer.StageCopy,
			wantCalls: []string{"attach", "erase disk4", "copy", "detach"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			manager, err := fsm.New(fsm.Config{DBPath: t.TempDir()})
			require.NoError(t, err)
			defer manager.Shutdown(time.Second)

			m, tools := newMachine(t)
			tools.copyErr = tt.copyErr

			start, _, err := m.Register(ctx, manager)
			require.NoError(t, err)

			in := installer.Inputs{RunKey: "run-" + fmt.Sprint(i), SourceImage: "/tmp/win.iso", Device: "disk4"}
			res, err := m.Run(ctx, manager, start, in)

			assert.Equal(t, tt.wantCalls, tools.calls)
			assert.Nil(t, m.take(in.RunKey))

			if tt.wantStage != "" {
				require.Error(t, err)
				assert.Nil(t, res)

				var stageErr *errors.StageError
				require.ErrorAs(t, err, &stageErr)
				assert.Equal(t, tt.wantStage, stageErr.Stage)
				assert.Equal(t, errors.KindDestructive, stageErr.Kind)
				assert.Contains(t, err.Error(), "rsync exited 23")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, in, res.Inputs)
			assert.Equal(t, sourceMount, res.MountPoint)
			assert.Equal(t, payload.ActionCopy, res.Payload.Action)
			assert.False(t, res.DetachFailed)
		})
	}
}

func TestTake_RemovesOutcome(t *testing.T) {
	m, _ := newMachine(t)
	m.record("run-1", nil, fmt.Errorf("boom"))

	require.NotNil(t, m.take("run-1"))
	assert.Nil(t, m.take("run-1"))
}
