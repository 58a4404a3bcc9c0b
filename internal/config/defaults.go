package config

const (
	defaultConfigPath           = "~/.config/piperun/config.toml"
	defaultStateDir             = "~/.local/share/piperun"
	defaultPipePath             = "${tmp}/script_run_pipe"
	defaultListenIntervalMS     = 100
	defaultTickIntervalMS       = 100
	defaultAddonsDir            = "~/.local/share/piperun/addons"
	defaultScriptTimeoutSeconds = 300
	defaultNotifyRequestTimeout = 10
	defaultHistoryRetentionDays = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"

	placeholderTmp  = "${tmp}"
	placeholderHome = "${home}"
)

var defaultInterpreter = []string{"/bin/sh", "-s"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	interpreter := make([]string, len(defaultInterpreter))
	copy(interpreter, defaultInterpreter)
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Pipe: Pipe{
			Path:             defaultPipePath,
			ListenIntervalMS: defaultListenIntervalMS,
		},
		Session: Session{
			TickIntervalMS: defaultTickIntervalMS,
		},
		Workspace: Workspace{
			AddonsDir:            defaultAddonsDir,
			Interpreter:          interpreter,
			ScriptTimeoutSeconds: defaultScriptTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
