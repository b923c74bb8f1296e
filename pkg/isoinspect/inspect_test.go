package isoinspect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildISO(t *testing.T, files map[string]string) *bytes.Reader {
	t.Helper()

	w, err := iso9660.NewWriter()
	require.NoError(t, err)
	defer w.Cleanup()

	for name, content := range files {
		require.NoError(t, w.AddFile(strings.NewReader(content), name))
	}

	var buf bytes.Buffer
	require.NoError(t, w.WriteTo(&buf, "CCCOMA"))
	return bytes.NewReader(buf.Bytes())
}

func TestInspect_FindsPayload(t *testing.T) {
	iso := buildISO(t, map[string]string{
		"sources/install.wim": "wim-bytes",
		"setup.exe":           "exe",
	})

	p, err := Inspect(iso, payload.DefaultRelPath)
	require.NoError(t, err)

	assert.True(t, p.Found)
	assert.Equal(t, int64(len("wim-bytes")), p.Size)
	assert.Equal(t, payload.ActionCopy, p.Action)
}

func TestInspect_MissingPayload(t *testing.T) {
	iso := buildISO(t, map[string]string{
		"sources/boot.wim": "boot",
	})

	p, err := Inspect(iso, payload.DefaultRelPath)
	require.NoError(t, err)

	assert.False(t, p.Found)
	assert.Equal(t, payload.ActionAbsent, p.Action)
}

func TestInspect_MissingDirectory(t *testing.T) {
	iso := buildISO(t, map[string]string{"setup.exe": "exe"})

	p, err := Inspect(iso, payload.DefaultRelPath)
	require.NoError(t, err)
	assert.False(t, p.Found)
}

func TestInspect_NotAnISO(t *testing.T) {
	_, err := Inspect(bytes.NewReader(make([]byte, 4096)), payload.DefaultRelPath)
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "INSTALL.WIM", normalizeName("INSTALL.WIM;1"))
	assert.Equal(t, "SOURCES", normalizeName("SOURCES"))
	assert.Equal(t, "README", normalizeName("README.;1"))
}
