package collab

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hpungsan/frag/internal/errors"
)

// PathPicker "picks" a fixed path, as given on a command line or by an MCP
// client. An empty path counts as a cancelled pick.
type PathPicker struct {
	Path string
}

// PickImage implements Picker. The file must sniff as image/* and be
// readable by one of the registered decoders.
func (p PathPicker) PickImage(ctx context.Context) (SourceRef, bool, error) {
	info, ok, err := p.PickFile(ctx)
	if err != nil || !ok {
		return "", ok, err
	}
	if !strings.HasPrefix(info.MimeType, "image/") {
		return "", false, errors.NewInvalidArgument(fmt.Sprintf("%s is not an image (detected %s)", info.Name, info.MimeType))
	}
	if !CanDecodeImage(info.Ref) {
		return "", false, errors.NewInvalidArgument(fmt.Sprintf("%s is not a supported image format (%s)", info.Name, info.MimeType))
	}
	return info.Ref, true, nil
}

// PickFile implements Picker.
func (p PathPicker) PickFile(ctx context.Context) (*FileInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path := strings.TrimSpace(p.Path)
	if path == "" {
		return nil, false, nil
	}
	return describeFile(path)
}

// PromptPicker asks for a path on Out and reads one line from In.
// An empty line or end of input cancels the pick.
type PromptPicker struct {
	In  io.Reader
	Out io.Writer
}

// PickImage implements Picker.
func (p PromptPicker) PickImage(ctx context.Context) (SourceRef, bool, error) {
	path, ok, err := p.prompt("Image path (empty to cancel): ")
	if err != nil || !ok {
		return "", ok, err
	}
	return PathPicker{Path: path}.PickImage(ctx)
}

// PickFile implements Picker.
func (p PromptPicker) PickFile(ctx context.Context) (*FileInfo, bool, error) {
	path, ok, err := p.prompt("File path (empty to cancel): ")
	if err != nil || !ok {
		return nil, ok, err
	}
	return PathPicker{Path: path}.PickFile(ctx)
}

func (p PromptPicker) prompt(label string) (string, bool, error) {
	if p.Out != nil {
		fmt.Fprint(p.Out, label)
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false, nil
	}
	return line, true, nil
}

// describeFile stats path and sniffs its MIME type.
func describeFile(path string) (*FileInfo, bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, errors.NewFileNotFound(path)
		}
		return nil, false, err
	}
	if st.IsDir() {
		return nil, false, errors.NewInvalidArgument(fmt.Sprintf("%s is a directory", path))
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, false, err
	}

	return &FileInfo{
		Ref:      SourceRef(path),
		MimeType: BareMimeType(mt.String()),
		Name:     filepath.Base(path),
		Size:     st.Size(),
	}, true, nil
}

// BareMimeType drops parameters ("text/plain; charset=utf-8" → "text/plain").
// Data URI MIME types may not contain ';'.
func BareMimeType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// DetectMimeType sniffs a MIME type from content.
func DetectMimeType(data []byte) string {
	return BareMimeType(mimetype.Detect(data).String())
}
