package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external tool
type Status struct {
	Name      string
	Purpose   string
	Installed bool
	Path      string
	Version   string
	Optional  bool
}

// Tool describes an external binary decibel shells out to.
type Tool struct {
	Name       string
	Purpose    string
	VersionArg string
	Optional   bool
}

// lookPath and runVersion are replaced in tests.
var (
	lookPath   = exec.LookPath
	runVersion = func(path, arg string) ([]byte, error) {
		return exec.Command(path, arg).Output()
	}
)

// Check looks tool up in PATH and, when found, reads the first line of its version output.
func Check(tool Tool) Status {
	status := Status{Name: tool.Name, Purpose: tool.Purpose, Optional: tool.Optional}

	path, err := lookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if tool.VersionArg == "" {
		return status
	}
	output, err := runVersion(path, tool.VersionArg)
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// Tools lists the binaries needed for the given setup. playerCommand is empty
// when preview playback is disabled.
func Tools(playerCommand string, desktopNotifications bool) []Tool {
	tools := []Tool{
		{Name: "pw-record", Purpose: "microphone capture", VersionArg: "--version"},
	}
	if playerCommand != "" {
		tools = append(tools, Tool{Name: playerCommand, Purpose: "preview playback", VersionArg: "--version", Optional: true})
	}
	if desktopNotifications {
		tools = append(tools, Tool{Name: "notify-send", Purpose: "desktop notifications", VersionArg: "--version", Optional: true})
	}
	return tools
}

// CheckAll runs Check for every tool in order.
func CheckAll(tools []Tool) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, Check(t))
	}
	return out
}

// Missing returns the names of required tools that are not installed.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Installed && !s.Optional {
			names = append(names, s.Name)
		}
	}
	return names
}
