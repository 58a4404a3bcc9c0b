package workspace

import (
	"context"

	"piperun/internal/command"
)

// Register binds the workspace verbs on d.
func Register(d *command.Dispatcher, w *Workspace) error {
	handlers := map[string]command.HandlerFunc{
		command.VerbReloadScript: func(_ context.Context, path string) (string, error) {
			return w.ReloadScript(path)
		},
		command.VerbRunScript: w.RunScript,
		command.VerbReloadAddon: func(_ context.Context, name string) (string, error) {
			return w.ReloadAddon(name)
		},
	}
	for verb, fn := range handlers {
		if err := d.Register(verb, fn); err != nil {
			return err
		}
	}
	return nil
}
