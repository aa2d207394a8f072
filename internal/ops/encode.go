package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/imaging"
	"github.com/hpungsan/frag/internal/session"
)

// Pick kinds accepted by Encode.
const (
	KindAuto  = ""
	KindImage = "image"
	KindFile  = "file"
)

// EncodeInput contains parameters for the Encode operation.
type EncodeInput struct {
	// Kind is "image", "file", or empty to decide from the sniffed MIME type.
	Kind string

	// Settings, when set, replace the workbench settings before picking.
	Settings *session.Settings

	// IncludeDataURI adds the full data URI to the output.
	IncludeDataURI bool
}

// SnapshotOutput is the rendering of a workbench snapshot.
type SnapshotOutput struct {
	ID             string              `json:"id"`
	Kind           session.Kind        `json:"kind"`
	Name           string              `json:"name,omitempty"`
	MimeType       string              `json:"mime_type"`
	Length         int                 `json:"length"`
	Digest         string              `json:"digest"`
	Descriptor     imaging.Descriptor  `json:"descriptor"`
	Size           string              `json:"size"`
	Original       *imaging.Descriptor `json:"original,omitempty"`
	OriginalSize   string              `json:"original_size,omitempty"`
	ReducedPercent int                 `json:"reduced_percent,omitempty"`
	Settings       session.Settings    `json:"settings"`
	FragmentCount  int                 `json:"fragment_count"`
	Fragments      []fragment.Info     `json:"fragments"`
	DataURI        string              `json:"data_uri,omitempty"`
}

// EncodeOutput contains the result of the Encode operation.
type EncodeOutput struct {
	Cancelled bool            `json:"cancelled,omitempty"`
	Snapshot  *SnapshotOutput `json:"snapshot,omitempty"`
}

// Encode picks a source with picker and encodes it on wb.
// A cancelled pick is reported with Cancelled set and no error.
func Encode(ctx context.Context, wb *session.Workbench, picker collab.Picker, input EncodeInput) (*EncodeOutput, error) {
	if input.Settings != nil {
		if _, err := wb.SetSettings(ctx, *input.Settings); err != nil {
			return nil, err
		}
	}

	var (
		snap *session.Snapshot
		ok   bool
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(input.Kind)) {
	case KindImage:
		snap, ok, err = wb.PickImage(ctx, picker)
	case KindFile:
		snap, ok, err = wb.PickFile(ctx, picker)
	case KindAuto:
		snap, ok, err = pickAuto(ctx, wb, picker)
	default:
		return nil, errors.NewInvalidArgument(`kind must be "image", "file" or empty`)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &EncodeOutput{Cancelled: true}, nil
	}

	return &EncodeOutput{Snapshot: NewSnapshotOutput(snap, input.IncludeDataURI)}, nil
}

// pickAuto picks a file and treats it as an image when it sniffs as one and
// a decoder can read it. Other image/* types are carried as files.
func pickAuto(ctx context.Context, wb *session.Workbench, picker collab.Picker) (*session.Snapshot, bool, error) {
	info, ok, err := picker.PickFile(ctx)
	if err != nil {
		return nil, false, errors.WrapIO("pick file", err)
	}
	if !ok {
		return nil, false, nil
	}

	src := session.Source{Kind: session.KindFile, Ref: info.Ref, Name: info.Name, MimeType: info.MimeType}
	if strings.HasPrefix(info.MimeType, "image/") && collab.CanDecodeImage(info.Ref) {
		src.Kind = session.KindImage
	}
	if src.MimeType == "" {
		src.MimeType = session.DefaultMimeType
	}
	snap, err := wb.SetSource(ctx, src)
	return snap, true, err
}

// NewSnapshotOutput renders snap. The data URI itself is only included on
// request since it can be large.
func NewSnapshotOutput(snap *session.Snapshot, includeDataURI bool) *SnapshotOutput {
	out := &SnapshotOutput{
		ID:             snap.ID,
		Kind:           snap.Source.Kind,
		Name:           snap.Source.Name,
		MimeType:       snap.MimeType,
		Length:         len(snap.DataURI),
		Digest:         snap.Digest,
		Descriptor:     snap.Descriptor,
		Size:           imaging.FormatBytes(snap.Descriptor.Size),
		Original:       snap.Original,
		ReducedPercent: snap.ReducedPercent,
		Settings:       snap.Settings,
		FragmentCount:  len(snap.Fragments),
		Fragments:      snap.FragmentInfos(),
	}
	if snap.Original != nil {
		out.OriginalSize = imaging.FormatBytes(snap.Original.Size)
	}
	if includeDataURI {
		out.DataURI = snap.DataURI
	}
	return out
}
