package shell

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
)

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh" // fallback
}

// Quote wraps s in single quotes so the shell passes it through as one word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// IsCommandExist checks if a command exists on the host
func IsCommandExist(cmd string) bool {
	output, _ := exec.Command(getShell(), "-c", "command -v "+cmd).Output()
	return len(strings.TrimSpace(string(output))) > 0
}

func newCmd(cmdStr string, workDir string, envVal []string) *exec.Cmd {
	cmd := exec.Command(getShell(), "-c", cmdStr)
	cmd.Dir = workDir
	if len(envVal) > 0 {
		cmd.Env = append(os.Environ(), envVal...)
	}
	return cmd
}

// ExecCmd executes a command in workDir and returns its combined output
func ExecCmd(cmdStr string, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	log.Debugf("Exec: [%s]", cmdStr)

	output, err := newCmd(cmdStr, workDir, envVal).CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Info(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if outputStr != "" {
		log.Debug(outputStr)
	}
	return outputStr, nil
}
