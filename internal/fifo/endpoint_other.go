//go:build !unix

package fifo

// Endpoint is unavailable on this platform.
type Endpoint struct{}

// Open always fails with ErrUnsupported.
func Open(string) (*Endpoint, error) { return nil, ErrUnsupported }

func (e *Endpoint) Path() string { return "" }

func (e *Endpoint) Read([]byte) (int, error) { return 0, ErrUnsupported }

func (e *Endpoint) Close() error { return nil }

// Writer is unavailable on this platform.
type Writer struct{}

// Dial always fails with ErrUnsupported.
func Dial(string) (*Writer, error) { return nil, ErrUnsupported }

func (w *Writer) WriteLine(string) error { return ErrUnsupported }

func (w *Writer) Close() error { return nil }
