package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dccpub/internal/fileutil"
	"dccpub/internal/instance"
	"dccpub/internal/logging"
	"dccpub/internal/services"
	"dccpub/internal/textutil"
	"dccpub/internal/timeline"
)

// keySequencePath is the editorial source file recorded by the creator.
const keySequencePath = "sequence_filepath"

// EditorialOTIO writes the editorial timeline as OTIO and stages the source
// sequence file next to it.
type EditorialOTIO struct{}

func (EditorialOTIO) Name() string       { return "ExtractEditorialOTIO" }
func (EditorialOTIO) Label() string      { return "Extract Editorial OTIO" }
func (EditorialOTIO) Order() float64     { return ExtractorOrder }
func (EditorialOTIO) Families() []string { return []string{"editorial"} }
func (EditorialOTIO) Hosts() []string    { return []string{"traypublisher"} }
func (EditorialOTIO) Optional() bool     { return false }

func (e EditorialOTIO) Process(ctx context.Context, env *Env, inst *instance.Instance) error {
	if !IsActive(env, e, inst) {
		return nil
	}
	if err := alreadyProcessed(e, inst, "otio"); err != nil {
		return err
	}
	source := inst.String(keySequencePath)
	if source == "" {
		return services.Wrap(services.ErrExtraction, "extract", e.Name(), "instance has no sequence file", nil)
	}
	var hint *float64
	if fps, ok := inst.Data[instance.KeyFPS].(float64); ok && fps > 0 {
		hint = timeline.Rate(fps)
	}
	tl, err := timeline.ReadFile(source, hint)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", e.Name(), fmt.Sprintf("read %s", source), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := env.StagingDir(inst)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", e.Name(), "staging dir", err)
	}
	filename := textutil.SanitizeFileName(inst.Name()) + ".otio"
	otioPath := filepath.Join(dir, filename)
	if err := writeTimeline(otioPath, tl); err != nil {
		return services.Wrap(services.ErrExtraction, "extract", e.Name(), "write otio", err)
	}
	written := []string{otioPath}
	reps := []instance.Representation{{
		Name:       "otio",
		Ext:        "otio",
		Files:      instance.Single(filename),
		StagingDir: dir,
	}}

	var digest string
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), "."); ext != "otio" {
		name, sum, err := fileutil.StageInto(source, dir)
		if err != nil {
			discard(written)
			return services.Wrap(services.ErrExtraction, "extract", e.Name(), fmt.Sprintf("stage %s", source), err)
		}
		digest = sum
		written = append(written, filepath.Join(dir, name))
		reps = append(reps, instance.Representation{
			Name:       ext,
			Ext:        ext,
			Files:      instance.Single(name),
			StagingDir: dir,
		})
	}
	if err := inst.AddRepresentations(reps...); err != nil {
		discard(written)
		return err
	}
	if env.Logger != nil {
		env.Logger.Info("extracted editorial",
			logging.String(logging.FieldEventType, "extract_complete"),
			logging.String("otio", otioPath),
			logging.String("source_sha256", digest),
			logging.Int("shots", len(tl.Shots)),
		)
	}
	return nil
}

func writeTimeline(path string, tl *timeline.Timeline) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := timeline.WriteOTIO(f, tl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// discard removes outputs of a failed extraction.
func discard(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}
