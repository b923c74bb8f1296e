package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm_OnlyExactAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y", true},
		{"  y  ", true},
		{"", false},
		{"n", false},
		{"Y", false},
		{"yes", false},
		{"yy", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			var out bytes.Buffer
			ui := New(strings.NewReader(tt.answer+"\n"), &out)

			ok, err := ui.Confirm("Erase disk4?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "Erase disk4? [y/N]: ")
		})
	}
}

func TestAsk_SharesReaderAcrossCalls(t *testing.T) {
	var out bytes.Buffer
	ui := New(strings.NewReader("/tmp/win.iso\ndisk4\n"), &out)

	first, err := ui.Ask("image: ")
	require.NoError(t, err)
	second, err := ui.Ask("device: ")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/win.iso", first)
	assert.Equal(t, "disk4", second)
}

func TestAsk_LastLineWithoutNewline(t *testing.T) {
	ui := New(strings.NewReader("disk4"), &bytes.Buffer{})

	ans, err := ui.Ask("device: ")
	require.NoError(t, err)
	assert.Equal(t, "disk4", ans)
}

func TestAsk_ClosedInput(t *testing.T) {
	ui := New(strings.NewReader(""), &bytes.Buffer{})

	_, err := ui.Ask("device: ")
	assert.Error(t, err)
}

func TestDebug_RespectsVerbose(t *testing.T) {
	var out bytes.Buffer
	ui := New(strings.NewReader(""), &out)

	ui.Debug(false, "hidden %d", 1)
	assert.Empty(t, out.String())

	ui.Debug(true, "shown %d", 2)
	assert.Contains(t, out.String(), "shown 2")
}

func TestScripted(t *testing.T) {
	s := NewScripted("y", "n")

	ok, err := s.Confirm("first")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Confirm("second")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Confirm("third")
	assert.Error(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, s.Asked)
}
