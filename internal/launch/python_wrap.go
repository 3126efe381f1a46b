package launch

import (
	"fmt"
	"strings"

	"dccpub/internal/logging"
	"dccpub/internal/services"
)

// PythonExecutableEnv names the interpreter used by PythonWrapHook.
const PythonExecutableEnv = "DCCPUB_PYTHON_EXE"

// PythonWrapHook starts the host through a Python integration module. The
// host executable becomes an argument of Module's launch function, so the
// integration owns the host process. On Windows the interpreter runs inside
// cmd.exe /k.
type PythonWrapHook struct {
	HostName string
	Module   string
}

func (h PythonWrapHook) Name() string    { return "python-wrap-" + h.HostName }
func (h PythonWrapHook) Hosts() []string { return []string{h.HostName} }

func (h PythonWrapHook) Execute(lc *LaunchContext) error {
	python := strings.TrimSpace(lc.Env[PythonExecutableEnv])
	if python == "" {
		return services.Wrap(services.ErrConfiguration, "launch", h.Name(),
			PythonExecutableEnv+" is not set", nil)
	}
	executable := lc.Args[0]
	remainders := lc.Args[1:]

	script := fmt.Sprintf(`import %s;%s.launch(%q)`, h.Module, h.Module, executable)
	args := []string{python, "-c", script}
	if lc.goos() == "windows" {
		args = []string{"cmd.exe", "/k", fmt.Sprintf(`"%s -c ^"%s^""`, python, strings.ReplaceAll(script, `"`, `\"`))}
	}

	if len(remainders) > 0 {
		logging.WarnWithContext(lc.logger(), "unexpected launch arguments", "launch_args_unexpected",
			logging.String("host", h.HostName),
			logging.Strings("arguments", remainders),
			logging.String(logging.FieldErrorHint, "the host takes no arguments besides its executable"),
			logging.String(logging.FieldImpact, "arguments are passed after the wrapper"),
		)
		args = append(args, remainders...)
	}
	lc.Args = args
	return nil
}
