// Package fifo owns the named pipe that external tools write commands into.
//
// Open replaces anything at the configured path with a fresh FIFO and opens
// its read end in non-blocking mode, so Endpoint.Read returns immediately
// with zero bytes when nothing is pending or no writer is connected. Close
// releases the descriptor and unlinks the path. Dial is the client side used
// by `piperun send`: it refuses to block when no daemon is reading.
package fifo
