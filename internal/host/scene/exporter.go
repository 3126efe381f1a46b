package scene

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"dccpub/internal/host"
	"dccpub/internal/logging"
	"dccpub/internal/services"
)

// ExportedNode describes one selected node handed to an exporter.
type ExportedNode struct {
	Path   string         `json:"path"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// ExportRequest is everything an exporter needs to write output.
type ExportRequest struct {
	Host   string            `json:"host"`
	Output string            `json:"output"`
	Config host.ExportConfig `json:"config"`
	Nodes  []ExportedNode    `json:"nodes"`
}

// Exporter writes the selected nodes to req.Output.
type Exporter interface {
	Export(ctx context.Context, req ExportRequest) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, req ExportRequest) error

func (f ExporterFunc) Export(ctx context.Context, req ExportRequest) error { return f(ctx, req) }

// ManifestExporter writes the request itself as JSON to the output path. It
// is the offline exporter used when no host command is configured.
type ManifestExporter struct{}

func (ManifestExporter) Export(ctx context.Context, req ExportRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export request: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(req.Output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// CommandOption configures a CommandExporter.
type CommandOption func(*CommandExporter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) CommandOption {
	return func(c *CommandExporter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger routes command output to logger at debug level.
func WithLogger(logger *slog.Logger) CommandOption {
	return func(c *CommandExporter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CommandExporter runs an external host command. Arguments are templates;
// see Expand for the recognised placeholders. The request JSON is written
// next to the output as <output>.request.json and removed afterwards.
type CommandExporter struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// NewCommandExporter builds an exporter from a command line whose first
// element is the binary.
func NewCommandExporter(command []string, timeoutSeconds int, opts ...CommandOption) (*CommandExporter, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "command exporter", "export command is empty", nil)
	}
	c := &CommandExporter{
		binary:  strings.TrimSpace(command[0]),
		args:    append([]string(nil), command[1:]...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CommandExporter) Export(ctx context.Context, req ExportRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	requestPath := req.Output + ".request.json"
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode export request: %w", err)
	}
	if err := os.WriteFile(requestPath, data, 0o644); err != nil {
		return fmt.Errorf("write export request: %w", err)
	}
	defer os.Remove(requestPath)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := Expand(c.args, req, requestPath)
	c.logger.Debug("running export command",
		logging.String("binary", c.binary),
		logging.Strings("args", args),
	)
	onOutput := func(line string) {
		c.logger.Debug("export output", logging.String("line", line))
	}
	if err := c.exec.Run(runCtx, c.binary, args, onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "scene", "export", c.binary, err)
	}
	info, err := os.Stat(req.Output)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "scene", "export",
			fmt.Sprintf("%s did not produce %s", c.binary, req.Output), err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "scene", "export",
			fmt.Sprintf("%s produced an empty %s", c.binary, req.Output), nil)
	}
	return nil
}

// Expand substitutes {output}, {request}, {format}, {archive},
// {coordinate_system}, {start}, {end}, {custom_attributes} and {nodes}
// (comma separated) in each template argument.
func Expand(templates []string, req ExportRequest, requestPath string) []string {
	nodes := make([]string, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes = append(nodes, n.Path)
	}
	replacer := strings.NewReplacer(
		"{output}", req.Output,
		"{request}", requestPath,
		"{format}", req.Config.Format,
		"{archive}", req.Config.ArchiveType,
		"{coordinate_system}", req.Config.CoordinateSystem,
		"{start}", strconv.Itoa(req.Config.StartFrame),
		"{end}", strconv.Itoa(req.Config.EndFrame),
		"{custom_attributes}", strconv.FormatBool(req.Config.CustomAttributes),
		"{nodes}", strings.Join(nodes, ","),
	)
	out := make([]string, len(templates))
	for i, tmpl := range templates {
		out[i] = replacer.Replace(tmpl)
	}
	return out
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("wait command: %w", err)
	}
	if scanErr != nil {
		return fmt.Errorf("read output: %w", scanErr)
	}
	return nil
}
