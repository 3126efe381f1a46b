package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"dccpub/internal/extract"
	"dccpub/internal/host"
	"dccpub/internal/hostctx"
	"dccpub/internal/instance"
	"dccpub/internal/logging"
	"dccpub/internal/services"
)

// DefaultManifestName is the manifest file written into each staging dir.
const DefaultManifestName = "manifest.json"

// Options controls a publish pass.
type Options struct {
	Logger   *slog.Logger
	Store    hostctx.Store
	Registry *extract.Registry
	Env      *extract.Env
	// Host selects the extractors by host name.
	Host         string
	ManifestName string
	// InstanceIDs limits the pass to these instances when non-empty.
	InstanceIDs []string
}

// Run extracts every registered instance and returns the report. The error
// is reserved for problems that prevent the pass from starting.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "run", "host context store is required", nil)
	}
	if opts.Registry == nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "run", "extractor registry is required", nil)
	}
	if opts.Env == nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "run", "extraction environment is required", nil)
	}
	if strings.TrimSpace(opts.ManifestName) == "" {
		opts.ManifestName = DefaultManifestName
	}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	base := logging.NewComponentLogger(opts.Logger, "publish")
	logger := logging.WithContext(ctx, base)

	instances, err := opts.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}

	report := &Report{RequestID: requestID, StartedAt: time.Now().UTC()}
	logger.Info("publish started",
		logging.String(logging.FieldEventType, "publish_start"),
		logging.Int("instances", len(instances)),
		logging.String("host", opts.Host),
	)
	for _, inst := range instances {
		if len(opts.InstanceIDs) > 0 && !slices.Contains(opts.InstanceIDs, inst.ID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
		report.Instances = append(report.Instances, runInstance(ctx, opts, base, report, inst))
	}
	report.FinishedAt = time.Now().UTC()

	logger.Info("publish finished",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.Int("errors", report.Count(LevelError)),
		logging.Int("warnings", report.Count(LevelWarning)),
		logging.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func runInstance(ctx context.Context, opts Options, base *slog.Logger, report *Report, inst *instance.Instance) InstanceResult {
	ctx = services.WithInstanceID(ctx, inst.ID)
	ctx = services.WithFamily(ctx, inst.Family())
	subset := logging.String(logging.FieldSubset, inst.SubsetName)

	result := InstanceResult{InstanceID: inst.ID, Subset: inst.SubsetName, Family: inst.Family()}
	entry := func(plugin string, level Level, message string, err error) {
		e := Entry{InstanceID: inst.ID, Subset: inst.SubsetName, Plugin: plugin, Level: level, Message: message}
		if err != nil {
			details := services.Details(err)
			e.ErrorKind = details.Kind
			if e.Message == "" {
				e.Message = details.Message
			}
		}
		report.add(e)
	}

	if !inst.Active {
		result.Skipped = true
		entry("", LevelInfo, "instance is inactive", nil)
		return result
	}
	extractors := opts.Registry.For(inst.Family(), opts.Host)
	if len(extractors) == 0 {
		result.Skipped = true
		entry("", LevelInfo, fmt.Sprintf("no extractors for family %s in %s", inst.Family(), opts.Host), nil)
		return result
	}

	env := *opts.Env
	for _, ext := range extractors {
		pluginCtx := services.WithPlugin(ctx, ext.Name())
		pluginLogger := logging.WithContext(pluginCtx, base).With(subset)
		env.Logger = pluginLogger
		result.Plugins = append(result.Plugins, ext.Name())

		before := len(inst.Representations())
		var state host.State
		if env.Adapter != nil {
			state = host.Snapshot(env.Adapter)
		}
		err := processGuarded(pluginCtx, ext, &env, inst)
		if env.Adapter != nil {
			if leak := restoreHostState(env.Adapter, state); leak != nil {
				entry(ext.Name(), LevelError, leak.Error(), leak)
				logging.ErrorWithContext(pluginLogger, "extractor leaked host state", "host_state_leak",
					logging.Error(leak),
					logging.String(logging.FieldErrorHint, "the extractor must restore selection and refresh on every path"),
				)
			}
		}
		if err != nil {
			level := LevelError
			if services.IsWarning(err) {
				level = LevelWarning
			} else {
				result.Failed = true
			}
			entry(ext.Name(), level, err.Error(), err)
			pluginLogger.Error("extractor failed",
				logging.String(logging.FieldEventType, "extract_failure"),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
			)
			if result.Failed {
				break
			}
			continue
		}
		if added := len(inst.Representations()) - before; added > 0 {
			entry(ext.Name(), LevelInfo, fmt.Sprintf("extracted %d representation(s)", added), nil)
		}
	}
	result.Representations = len(inst.Representations())

	if err := opts.Store.Update(ctx, inst.ID, inst); err != nil {
		result.Failed = true
		entry("", LevelError, fmt.Sprintf("persist instance: %v", err), err)
	}
	if result.Failed || result.Representations == 0 {
		return result
	}
	dir, err := opts.Env.StagingDir(inst)
	if err != nil {
		result.Failed = true
		entry("", LevelError, fmt.Sprintf("staging dir: %v", err), err)
		return result
	}
	manifest := filepath.Join(dir, opts.ManifestName)
	if err := inst.Manifest().WriteFile(manifest); err != nil {
		result.Failed = true
		entry("", LevelError, fmt.Sprintf("write manifest: %v", err), err)
		return result
	}
	result.Manifest = manifest
	logging.WithContext(ctx, base).Info("instance published",
		subset,
		logging.String(logging.FieldEventType, "instance_published"),
		logging.String("manifest", manifest),
		logging.Int("representations", result.Representations),
	)
	return result
}

// processGuarded runs ext and turns a panic into an extraction error.
func processGuarded(ctx context.Context, ext extract.Extractor, env *extract.Env, inst *instance.Instance) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrExtraction, "publish", ext.Name(), fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return ext.Process(ctx, env, inst)
}

// ErrStateLeak reports an extractor that left the host selection or refresh
// state changed.
var ErrStateLeak = errors.New("host state not restored")

// restoreHostState compares the host with want and forces it back when an
// extractor left it changed.
func restoreHostState(a host.Adapter, want host.State) error {
	got := host.Snapshot(a)
	if want.Equal(got) {
		return nil
	}
	leak := fmt.Errorf("%w: selection %v refresh suspended %v, expected selection %v refresh suspended %v",
		ErrStateLeak, got.Selection, got.RefreshSuspended, want.Selection, want.RefreshSuspended)
	if err := want.Apply(a); err != nil {
		leak = errors.Join(leak, fmt.Errorf("force restore: %w", err))
	}
	return services.Wrap(services.ErrExtraction, "publish", "host state", "", leak)
}
