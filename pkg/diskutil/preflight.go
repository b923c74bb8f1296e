package diskutil

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// LookPathFunc resolves a tool on the execution path.
type LookPathFunc func(file string) (string, error)

// MissingTools returns every entry of tools that lookPath cannot resolve.
// A nil lookPath means exec.LookPath.
func MissingTools(tools []string, lookPath LookPathFunc) []string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var missing []string
	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// CheckPrerequisites ensures the platform is supported and every required
// tool is installed before anything stateful happens.
func CheckPrerequisites(lookPath LookPathFunc) error {
	if !SupportedPlatform() {
		return fmt.Errorf("building a Windows installer drive requires macOS (running on %s)", runtime.GOOS)
	}
	return checkTools(RequiredTools, lookPath)
}

func checkTools(tools []string, lookPath LookPathFunc) error {
	missing := MissingTools(tools, lookPath)
	if len(missing) > 0 {
		slog.Error("preflight_missing_tools", "missing", strings.Join(missing, ","))
		return fmt.Errorf("missing required commands: %s. Install them before running winusb (wimlib-imagex ships in the Homebrew package \"wimlib\")", strings.Join(missing, ", "))
	}

	slog.Debug("preflight_ok", "tools", strings.Join(tools, ","))
	return nil
}
