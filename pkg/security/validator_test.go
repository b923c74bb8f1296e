package security

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath_PathTraversal(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		path      string
		shouldErr bool
	}{
		{"sources/install.wim", false},
		{"sources/../sources/install.wim", false},
		{"install.wim", false},
		{"", true},
		{".", true},
		{"../install.wim", true},
		{"/sources/install.wim", true},
		{"sources/../../etc/passwd", true},
	}

	for _, tt := range tests {
		err := v.ValidatePath(tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %s", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %s: %v", tt.path, err)
		}
	}
}

func TestValidateDeviceIdentifier(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		id        string
		shouldErr bool
	}{
		{"disk2", false},
		{"disk10", false},
		{"", true},
		{"disk", true},
		{"diskA", true},
		{"disk2a", true},
		{"disk2s1", true},
		{"/dev/disk2", true},
		{"rdisk2", true},
		{"Disk2", true},
		{"sda", true},
		{" disk2", true},
		{"disk2\n", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.id), func(t *testing.T) {
			err := v.ValidateDeviceIdentifier(tt.id)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDeviceIdentifier_BootDisk(t *testing.T) {
	v := NewValidator(func() (string, error) { return "disk3", nil })

	require.Error(t, v.ValidateDeviceIdentifier("disk3"))
	require.NoError(t, v.ValidateDeviceIdentifier("disk4"))
}

func TestValidateDeviceIdentifier_BootDiskUnknown(t *testing.T) {
	v := NewValidator(func() (string, error) { return "", fmt.Errorf("no partitions") })

	require.NoError(t, v.ValidateDeviceIdentifier("disk4"))
}

func TestValidateSourceImage(t *testing.T) {
	v := NewValidator(nil)
	dir := t.TempDir()

	iso := filepath.Join(dir, "win.iso")
	require.NoError(t, os.WriteFile(iso, []byte("iso"), 0o644))

	assert.NoError(t, v.ValidateSourceImage(iso))
	assert.Error(t, v.ValidateSourceImage(filepath.Join(dir, "missing.iso")))
	assert.Error(t, v.ValidateSourceImage(dir))
	assert.Error(t, v.ValidateSourceImage(""))
}

func TestValidateVolumeLabel(t *testing.T) {
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateVolumeLabel("WININSTALL"))
	assert.NoError(t, v.ValidateVolumeLabel("WIN_11-X64"))
	assert.Error(t, v.ValidateVolumeLabel(""))
	assert.Error(t, v.ValidateVolumeLabel("WINDOWSINSTALL"))
	assert.Error(t, v.ValidateVolumeLabel("win"))
	assert.Error(t, v.ValidateVolumeLabel("WIN 11"))
}

func TestWholeDisk(t *testing.T) {
	tests := map[string]string{
		"/dev/disk3s1s1": "disk3",
		"/dev/disk1s5":   "disk1",
		"disk0":          "disk0",
		"/dev/sda1":      "sda1",
	}
	for in, want := range tests {
		assert.Equal(t, want, WholeDisk(in), in)
	}
}
