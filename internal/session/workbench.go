// Package session holds the encode side's mutable state: the current source,
// the settings, and the snapshot (data URI, fragments, descriptors) derived
// from them.
package session

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/datauri"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/gallery"
	"github.com/hpungsan/frag/internal/imaging"
)

// ErrSuperseded is returned by a recompute whose result was discarded because
// the source or settings changed while it ran.
var ErrSuperseded = stderrors.New("recompute superseded by a newer change")

// DefaultMimeType is used for picked files whose type could not be sniffed.
const DefaultMimeType = "application/octet-stream"

// Kind is what was picked.
type Kind string

const (
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Source is the picked input a snapshot is derived from.
type Source struct {
	Kind     Kind             `json:"kind"`
	Ref      collab.SourceRef `json:"ref"`
	Name     string           `json:"name,omitempty"`
	MimeType string           `json:"mime_type,omitempty"`
}

// Snapshot is one encode result. It is replaced wholesale on every recompute
// and never mutated after it is committed.
type Snapshot struct {
	ID         string             `json:"id"`
	Generation uint64             `json:"generation"`
	Source     Source             `json:"source"`
	Settings   Settings           `json:"settings"`
	MimeType   string             `json:"mime_type"`
	DataURI    string             `json:"data_uri"`
	Fragments  []string           `json:"fragments"`
	Digest     string             `json:"digest"`
	Descriptor imaging.Descriptor `json:"descriptor"`

	// Original describes the image re-encoded at full quality and size.
	// Nil for generic files.
	Original *imaging.Descriptor `json:"original,omitempty"`

	// ReducedPercent is set when compression is on.
	ReducedPercent int `json:"reduced_percent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FragmentInfos describes each fragment for listings.
func (s *Snapshot) FragmentInfos() []fragment.Info {
	return fragment.Describe(s.Fragments)
}

// Workbench owns the current source, settings and snapshot. It is safe for
// concurrent use; the lock is never held across a collaborator call.
type Workbench struct {
	processor collab.ImageProcessor
	reader    collab.FileReader

	mu       sync.Mutex
	settings Settings
	source   *Source
	gen      uint64
	current  *Snapshot
}

// New returns an empty workbench. settings must be valid.
func New(settings Settings, processor collab.ImageProcessor, reader collab.FileReader) *Workbench {
	return &Workbench{
		processor: processor,
		reader:    reader,
		settings:  settings,
	}
}

// Settings returns the active settings.
func (w *Workbench) Settings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// Snapshot returns the last committed snapshot, or nil.
func (w *Workbench) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// PickImage asks picker for an image and recomputes. ok is false when the
// pick was cancelled; the previous state is then kept.
func (w *Workbench) PickImage(ctx context.Context, picker collab.Picker) (snap *Snapshot, ok bool, err error) {
	ref, ok, err := picker.PickImage(ctx)
	if err != nil {
		return nil, false, errors.WrapIO("pick image", err)
	}
	if !ok {
		return nil, false, nil
	}
	snap, err = w.SetSource(ctx, Source{Kind: KindImage, Ref: ref, MimeType: "image/jpeg"})
	return snap, true, err
}

// PickFile asks picker for any file and recomputes.
func (w *Workbench) PickFile(ctx context.Context, picker collab.Picker) (snap *Snapshot, ok bool, err error) {
	info, ok, err := picker.PickFile(ctx)
	if err != nil {
		return nil, false, errors.WrapIO("pick file", err)
	}
	if !ok {
		return nil, false, nil
	}
	mt := info.MimeType
	if mt == "" {
		mt = DefaultMimeType
	}
	snap, err = w.SetSource(ctx, Source{Kind: KindFile, Ref: info.Ref, Name: info.Name, MimeType: mt})
	return snap, true, err
}

// SetSource replaces the source and recomputes. On failure the previous
// source is restored.
func (w *Workbench) SetSource(ctx context.Context, src Source) (*Snapshot, error) {
	if src.Ref == "" {
		return nil, errors.NewInvalidArgument("source reference is required")
	}
	w.mu.Lock()
	w.source = &src
	w.mu.Unlock()
	return w.Recompute(ctx)
}

// SetSettings replaces the settings. With a source present the snapshot is
// recomputed; otherwise the returned snapshot is nil.
func (w *Workbench) SetSettings(ctx context.Context, s Settings) (*Snapshot, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.settings = s
	hasSource := w.source != nil
	w.mu.Unlock()

	if !hasSource {
		return nil, nil
	}
	return w.Recompute(ctx)
}

// Recompute derives a new snapshot from the current source and settings.
// If another recompute starts before this one finishes, this one's result is
// dropped and ErrSuperseded returned. A failed recompute leaves the last
// committed snapshot, with its source and settings, in place.
func (w *Workbench) Recompute(ctx context.Context) (*Snapshot, error) {
	w.mu.Lock()
	if w.source == nil {
		w.mu.Unlock()
		return nil, errors.NewInvalidArgument("nothing picked yet")
	}
	w.gen++
	gen := w.gen
	src := *w.source
	settings := w.settings
	w.mu.Unlock()

	snap, err := w.build(ctx, src, settings)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		w.rollback()
		return nil, err
	}
	snap.Generation = gen
	w.current = snap
	return snap, nil
}

// rollback puts source and settings back to those of the committed
// snapshot, or drops the source when nothing is committed. Callers hold mu.
func (w *Workbench) rollback() {
	if w.current == nil {
		w.source = nil
		return
	}
	src := w.current.Source
	w.source = &src
	w.settings = w.current.Settings
}

// Clear drops the source and snapshot. Settings are kept. Any recompute in
// flight is superseded.
func (w *Workbench) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.source = nil
	w.current = nil
}

func (w *Workbench) build(ctx context.Context, src Source, settings Settings) (*Snapshot, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	id, err := gallery.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	snap := &Snapshot{
		ID:        id,
		Source:    src,
		Settings:  settings,
		CreatedAt: time.Now(),
	}

	switch src.Kind {
	case KindImage:
		err = w.buildImage(ctx, snap)
	default:
		err = w.buildFile(ctx, snap)
	}
	if err != nil {
		return nil, err
	}

	snap.Fragments, err = fragment.Chunk(snap.DataURI, settings.ChunkSize)
	if err != nil {
		return nil, err
	}
	snap.Digest = fragment.Digest(snap.DataURI)
	return snap, nil
}

// buildImage re-encodes at full quality to get the original descriptor, then,
// with compression on, renders again at the target size and quality.
func (w *Workbench) buildImage(ctx context.Context, snap *Snapshot) error {
	if w.processor == nil {
		return errors.NewInternal(stderrors.New("no image processor configured"))
	}

	orig, err := w.processor.Render(ctx, snap.Source.Ref, collab.RenderOptions{Quality: 1})
	if err != nil {
		return errors.WrapIO("process image", err)
	}
	origURI := datauri.Wrap(orig.MimeType, orig.Base64)
	origDesc := imaging.Descriptor{
		Width:  orig.Width,
		Height: orig.Height,
		Size:   datauri.EstimateDecodedSize(origURI),
	}
	snap.Original = &origDesc

	if !snap.Settings.Compress {
		snap.MimeType = orig.MimeType
		snap.DataURI = origURI
		snap.Descriptor = origDesc
		return nil
	}

	opts := collab.RenderOptions{Quality: snap.Settings.Quality}
	if target, resize := imaging.TargetDimensions(orig.Width, orig.Height, snap.Settings.MaxSize); resize {
		opts.Width, opts.Height = target.Width, target.Height
	}
	out, err := w.processor.Render(ctx, snap.Source.Ref, opts)
	if err != nil {
		return errors.WrapIO("compress image", err)
	}

	snap.MimeType = out.MimeType
	snap.DataURI = datauri.Wrap(out.MimeType, out.Base64)
	snap.Descriptor = imaging.Descriptor{
		Width:  out.Width,
		Height: out.Height,
		Size:   datauri.EstimateDecodedSize(snap.DataURI),
	}
	snap.ReducedPercent = imaging.ReducedPercent(snap.Descriptor.Size, origDesc.Size)
	return nil
}

func (w *Workbench) buildFile(ctx context.Context, snap *Snapshot) error {
	if w.reader == nil {
		return errors.NewInternal(stderrors.New("no file reader configured"))
	}

	payload, err := w.reader.ReadAsBase64(ctx, snap.Source.Ref)
	if err != nil {
		return errors.WrapIO("read file", err)
	}
	snap.MimeType = snap.Source.MimeType
	snap.DataURI = datauri.Wrap(snap.MimeType, payload)
	snap.Descriptor = imaging.Descriptor{Size: datauri.EstimateDecodedSize(snap.DataURI)}
	return nil
}
