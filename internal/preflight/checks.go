package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"piperun/internal/config"
)

// CheckDirectoryAccess verifies path is a directory the daemon can read,
// write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckInterpreter verifies the first interpreter argument resolves to an
// executable.
func CheckInterpreter(interpreter []string) Result {
	const name = "Interpreter"
	if len(interpreter) == 0 || strings.TrimSpace(interpreter[0]) == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	binary := interpreter[0]
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(append([]string{resolved}, interpreter[1:]...), " ")}
}

// CheckPipeDirectory verifies the directory that will hold the pipe. A
// template under ${tmp} always passes since that directory is created per
// daemon start.
func CheckPipeDirectory(template, home string) Result {
	const name = "Pipe directory"
	if strings.Contains(template, "${tmp}") {
		return Result{Name: name, Passed: true, Detail: "per-instance runtime directory"}
	}
	path := config.ExpandTemplate(template, config.TemplateVars{Home: home})
	if path == "" {
		return Result{Name: name, Detail: "pipe path not configured"}
	}
	result := CheckDirectoryAccess(name, filepath.Dir(path))
	if result.Passed {
		if _, err := os.Lstat(path); err == nil {
			result.Detail = fmt.Sprintf("%s (exists; start will fail until it is removed)", path)
			result.Passed = false
		}
	}
	return result
}

// CheckAddonsDir passes when the add-ons directory is readable or absent.
func CheckAddonsDir(path string) Result {
	const name = "Add-ons directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (absent, no add-ons)", path)}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckScripts reports one result per configured script pattern.
func CheckScripts(patterns []string) []Result {
	results := make([]Result, 0, len(patterns))
	for _, pattern := range patterns {
		name := "Script " + filepath.Base(pattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("%s (error: bad pattern: %v)", pattern, err)})
			continue
		}
		if len(matches) == 0 {
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("%s (error: no matching files)", pattern)})
			continue
		}
		unreadable := 0
		for _, match := range matches {
			if unix.Access(match, unix.R_OK) != nil {
				unreadable++
			}
		}
		if unreadable > 0 {
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("%s (error: %d of %d unreadable)", pattern, unreadable, len(matches))})
			continue
		}
		results = append(results, Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d file(s))", pattern, len(matches))})
	}
	return results
}

// CheckNtfy polls the topic without publishing to confirm the server
// answers.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := strings.TrimRight(strings.TrimSpace(topic), "/") + "/json?poll=1&since=none"
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "topic requires authentication"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("poll failed (%d)", resp.StatusCode)}
	}
}
