package launch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"dccpub/internal/logging"
	"dccpub/internal/services"
)

// LaunchContext is the mutable launch description hooks operate on.
type LaunchContext struct {
	// Host is the host application being launched (photoshop, nuke, ...).
	Host string
	// Args is the command line; Args[0] is the executable.
	Args []string
	// Env is the environment of the host process.
	Env map[string]string
	// OS is the target platform, runtime.GOOS when empty.
	OS     string
	Logger *slog.Logger
}

// NewLaunchContext returns a launch context for host with the current process
// environment.
func NewLaunchContext(hostName string, args []string) *LaunchContext {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return &LaunchContext{Host: hostName, Args: slices.Clone(args), Env: env}
}

func (c *LaunchContext) goos() string {
	if c.OS != "" {
		return c.OS
	}
	return runtime.GOOS
}

func (c *LaunchContext) logger() *slog.Logger {
	return logging.NewComponentLogger(c.Logger, "launch")
}

// Environ returns Env in KEY=value form, sorted by key.
func (c *LaunchContext) Environ() []string {
	keys := slices.Sorted(maps.Keys(c.Env))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+c.Env[key])
	}
	return out
}

// Hook adjusts a launch before the host starts.
type Hook interface {
	Name() string
	Hosts() []string
	Execute(lc *LaunchContext) error
}

// Builtin returns the shipped hooks.
func Builtin() []Hook {
	return []Hook{
		PythonWrapHook{HostName: "photoshop", Module: "avalon.photoshop"},
	}
}

// Prepare runs every hook registered for lc.Host in order.
func Prepare(lc *LaunchContext, hooks []Hook) error {
	if len(lc.Args) == 0 {
		return services.Wrap(services.ErrValidation, "launch", "prepare", "no executable given", nil)
	}
	for _, hook := range hooks {
		if !slices.Contains(hook.Hosts(), lc.Host) {
			continue
		}
		if err := hook.Execute(lc); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
		lc.logger().Debug("prelaunch hook applied",
			logging.String("hook", hook.Name()),
			logging.Strings("args", lc.Args),
		)
	}
	return nil
}

// Command builds the host process for a prepared context.
func Command(ctx context.Context, lc *LaunchContext) (*exec.Cmd, error) {
	if len(lc.Args) == 0 {
		return nil, services.Wrap(services.ErrValidation, "launch", "command", "no executable given", nil)
	}
	cmd := exec.CommandContext(ctx, lc.Args[0], lc.Args[1:]...)
	cmd.Env = lc.Environ()
	return cmd, nil
}
