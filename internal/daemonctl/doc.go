// Package daemonctl manages the piperun daemon process from the CLI:
// launching `piperun serve` in the background, waiting for its socket, and
// stopping it with SIGTERM, escalating to SIGKILL after a grace period.
package daemonctl
