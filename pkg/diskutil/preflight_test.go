package diskutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookPathWith(installed ...string) LookPathFunc {
	set := make(map[string]bool, len(installed))
	for _, tool := range installed {
		set[tool] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/local/bin/" + file, nil
		}
		return "", fmt.Errorf("%s: not found", file)
	}
}

func TestMissingTools(t *testing.T) {
	missing := MissingTools(RequiredTools, lookPathWith(ToolHdiutil, ToolDiskutil, ToolRsync))
	assert.Equal(t, []string{ToolWimlib}, missing)

	assert.Empty(t, MissingTools(RequiredTools, lookPathWith(RequiredTools...)))
}

func TestCheckTools_ReportsEveryMissingTool(t *testing.T) {
	err := checkTools(RequiredTools, lookPathWith(ToolHdiutil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diskutil, rsync, wimlib-imagex")
}

func TestCheckTools_AllPresent(t *testing.T) {
	require.NoError(t, checkTools(RequiredTools, lookPathWith(RequiredTools...)))
}
