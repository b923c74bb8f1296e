package diskutil

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	calls   []Command
	outputs map[string]string
	fail    map[string]bool
}

func (f *fakeExecutor) Run(ctx context.Context, c Command) ([]byte, error) {
	f.calls = append(f.calls, c)
	out := f.outputs[c.Name]
	if f.fail[c.Name] {
		return []byte(out), fmt.Errorf("exit status 1")
	}
	return []byte(out), nil
}

func TestExecToolchain_Attach(t *testing.T) {
	ex := &fakeExecutor{outputs: map[string]string{
		ToolHdiutil: "/dev/disk4\t\t/Volumes/CCCOMA\n",
	}}
	tc := NewExecToolchain(ex, nil)

	mp, err := tc.Attach(context.Background(), "/tmp/win.iso")
	require.NoError(t, err)
	assert.Equal(t, "/Volumes/CCCOMA", mp)

	require.Len(t, ex.calls, 1)
	assert.Equal(t, []string{"attach", "-nobrowse", "-readonly", "/tmp/win.iso"}, ex.calls[0].Args)
}

func TestExecToolchain_AttachNoMountPoint(t *testing.T) {
	ex := &fakeExecutor{outputs: map[string]string{ToolHdiutil: ""}}
	tc := NewExecToolchain(ex, nil)

	_, err := tc.Attach(context.Background(), "/tmp/win.iso")
	require.ErrorIs(t, err, ErrEmptyOutput)
}

func TestExecToolchain_Erase(t *testing.T) {
	ex := &fakeExecutor{}
	tc := NewExecToolchain(ex, nil)

	err := tc.Erase(context.Background(), EraseSpec{Label: "WININSTALL", Device: "disk4"})
	require.NoError(t, err)

	require.Len(t, ex.calls, 1)
	assert.Equal(t, "diskutil eraseDisk MS-DOS WININSTALL MBR disk4", ex.calls[0].String())
}

func TestExecToolchain_EraseFailureIncludesOutput(t *testing.T) {
	ex := &fakeExecutor{
		outputs: map[string]string{ToolDiskutil: "Could not find disk: disk9"},
		fail:    map[string]bool{ToolDiskutil: true},
	}
	tc := NewExecToolchain(ex, nil)

	err := tc.Erase(context.Background(), EraseSpec{Label: "WININSTALL", Device: "disk9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not find disk: disk9")
}

func TestExecToolchain_Copy(t *testing.T) {
	tests := []struct {
		name    string
		spec    CopySpec
		want    string
		streams bool
	}{
		{
			name: "quiet",
			spec: CopySpec{Source: "/Volumes/CCCOMA", Dest: "/Volumes/WININSTALL", Exclude: "sources/install.wim"},
			want: "rsync -a --exclude=/sources/install.wim /Volumes/CCCOMA/ /Volumes/WININSTALL/",
		},
		{
			name:    "verbose",
			spec:    CopySpec{Source: "/Volumes/CCCOMA/", Dest: "/Volumes/WININSTALL", Exclude: "/sources/install.wim", Verbose: true},
			want:    "rsync -a -v --progress --exclude=/sources/install.wim /Volumes/CCCOMA/ /Volumes/WININSTALL/",
			streams: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExecutor{}
			var live bytes.Buffer
			tc := NewExecToolchain(ex, &live)

			require.NoError(t, tc.Copy(context.Background(), tt.spec))
			require.Len(t, ex.calls, 1)
			assert.Equal(t, tt.want, ex.calls[0].String())
			assert.Equal(t, tt.streams, ex.calls[0].Stream != nil)
		})
	}
}

func TestExecToolchain_Split(t *testing.T) {
	ex := &fakeExecutor{}
	tc := NewExecToolchain(ex, nil)

	err := tc.Split(context.Background(), "/Volumes/CCCOMA/sources/install.wim", "/Volumes/WININSTALL/sources/install.swm", 4000)
	require.NoError(t, err)
	assert.Equal(t, "wimlib-imagex split /Volumes/CCCOMA/sources/install.wim /Volumes/WININSTALL/sources/install.swm 4000", ex.calls[0].String())

	require.Error(t, tc.Split(context.Background(), "a", "b", 0))
}

func TestExecToolchain_Detach(t *testing.T) {
	ex := &fakeExecutor{fail: map[string]bool{ToolHdiutil: true}}
	tc := NewExecToolchain(ex, nil)

	err := tc.Detach(context.Background(), "/Volumes/CCCOMA")
	require.Error(t, err)
	assert.Equal(t, "hdiutil detach /Volumes/CCCOMA", ex.calls[0].String())
}

func TestVolumePath(t *testing.T) {
	assert.Equal(t, "/Volumes/WININSTALL", VolumePath(DefaultVolumeLabel))
}
