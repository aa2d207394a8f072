package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
	"github.com/hpungsan/frag/internal/fragment"
	"github.com/hpungsan/frag/internal/gallery"
	"github.com/hpungsan/frag/internal/ops"
	"github.com/hpungsan/frag/internal/session"
	"github.com/hpungsan/frag/internal/web"
)

// Overridable in tests.
var (
	stdout    io.Writer        = os.Stdout
	stderr    io.Writer        = os.Stderr
	clipboard collab.Clipboard = collab.SystemClipboard{}
)

// newCLIApp creates the CLI application with all commands.
// store and cfg may be nil when only help or version output is needed.
func newCLIApp(store *gallery.Store, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "frag",
		Usage:   "Base64 data URIs in fragments",
		Version: Version,
		Commands: []*cli.Command{
			encodeCmd(cfg),
			chunkCmd(cfg),
			inspectCmd(cfg),
			saveCmd(store, cfg, baseDir),
			copyCmd(cfg),
			galleryCmd(store, cfg, baseDir),
			serveCmd(store, cfg, baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// encodeCmd creates the encode command.
func encodeCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode an image or file as a data URI (prompts for a path when none is given)",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Pick as image|file (default: detect)"},
			&cli.Float64Flag{Name: "quality", Aliases: []string{"q"}, Usage: "JPEG quality in (0, 1]"},
			&cli.IntFlag{Name: "max-size", Usage: "Long-edge limit in pixels"},
			&cli.IntFlag{Name: "chunk-size", Aliases: []string{"c"}, Usage: "Fragment length in characters"},
			&cli.BoolFlag{Name: "no-compress", Usage: "Keep original image dimensions"},
			&cli.BoolFlag{Name: "data-uri", Usage: "Include the full data URI in the output"},
			&cli.IntFlag{Name: "fragment", Aliases: []string{"f"}, Usage: "Print only fragment N (1-based) as raw text"},
		},
		Action: func(c *cli.Context) error {
			settings := session.SettingsFromConfig(cfg)
			if c.IsSet("quality") {
				settings.Quality = c.Float64("quality")
			}
			if c.IsSet("max-size") {
				settings.MaxSize = c.Int("max-size")
			}
			if c.IsSet("chunk-size") {
				settings.ChunkSize = c.Int("chunk-size")
			}
			if c.Bool("no-compress") {
				settings.Compress = false
			}

			var picker collab.Picker = collab.PromptPicker{In: os.Stdin, Out: stderr}
			if c.NArg() > 0 {
				picker = collab.PathPicker{Path: c.Args().First()}
			}

			maxBytes := maxInputBytes(cfg)
			wb := session.New(settings,
				&collab.JPEGProcessor{MaxBytes: maxBytes},
				collab.FSReader{MaxBytes: maxBytes})

			output, err := ops.Encode(c.Context, wb, picker, ops.EncodeInput{
				Kind:           c.String("kind"),
				Settings:       &settings,
				IncludeDataURI: c.Bool("data-uri"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.IsSet("fragment") && !output.Cancelled {
				return outputFragment(wb.Snapshot().Fragments, c.Int("fragment"))
			}
			return outputJSON(output)
		},
	}
}

// chunkCmd creates the chunk command.
func chunkCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "chunk",
		Usage: "Split text from stdin, byte for byte, into fragments",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Aliases: []string{"s"}, Usage: "Fragment length in characters (default: config chunk_size)"},
			&cli.IntFlag{Name: "fragment", Aliases: []string{"f"}, Usage: "Print only fragment N (1-based) as raw text"},
		},
		Action: func(c *cli.Context) error {
			text, err := pipedStdin("text")
			if err != nil {
				return outputError(err)
			}

			size := session.SettingsFromConfig(cfg).ChunkSize
			if c.IsSet("size") {
				size = c.Int("size")
			}

			output, err := ops.Chunk(ops.ChunkInput{Text: text, Size: size, MaxBytes: maxInputBytes(cfg)})
			if err != nil {
				return outputError(err)
			}

			if c.IsSet("fragment") {
				return outputFragment(output.Fragments, c.Int("fragment"))
			}
			return outputJSON(output)
		},
	}
}

// inspectCmd creates the inspect command.
func inspectCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Describe a data URI without saving it (reads stdin, or fragment files in order)",
		ArgsUsage: "[fragment-file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "digest", Aliases: []string{"d"}, Usage: "Expected BLAKE3 digest of the reassembled text"},
		},
		Action: func(c *cli.Context) error {
			text, fragments, err := readPayload(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Inspect(ops.InspectInput{
				Text:      text,
				Fragments: fragments,
				Digest:    c.String("digest"),
				MaxBytes:  maxInputBytes(cfg),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(store *gallery.Store, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Decode a data URI: images go to the gallery, other files to the output directory",
		ArgsUsage: "[fragment-file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "digest", Aliases: []string{"d"}, Usage: "Expected BLAKE3 digest of the reassembled text"},
		},
		Action: func(c *cli.Context) error {
			text, fragments, err := readPayload(c)
			if err != nil {
				return outputError(err)
			}

			savers := ops.Savers{
				Gallery: store,
				Files:   collab.DirWriter{Dir: cfg.ResolveOutputDir(baseDir)},
			}
			output, err := ops.Save(c.Context, savers, ops.SaveInput{
				Text:      text,
				Fragments: fragments,
				Digest:    c.String("digest"),
				MaxBytes:  maxInputBytes(cfg),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// copyCmd creates the copy command.
func copyCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Copy text from stdin, or one fragment of it, to the clipboard",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "fragment", Aliases: []string{"f"}, Usage: "Copy only fragment N (1-based)"},
			&cli.IntFlag{Name: "chunk-size", Aliases: []string{"c"}, Usage: "Fragment length in characters (default: config chunk_size)"},
		},
		Action: func(c *cli.Context) error {
			text, err := requireStdin("text")
			if err != nil {
				return outputError(err)
			}

			input := ops.CopyInput{Text: text, ChunkSize: session.SettingsFromConfig(cfg).ChunkSize}
			if c.IsSet("chunk-size") {
				input.ChunkSize = c.Int("chunk-size")
			}
			if c.IsSet("fragment") {
				i := c.Int("fragment") - 1
				input.Index = &i
			}

			output, err := ops.Copy(clipboard, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// galleryCmd creates the gallery command and its subcommands.
func galleryCmd(store *gallery.Store, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "gallery",
		Usage: "Manage saved images",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved images, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: gallery.DefaultListLimit, Usage: "Maximum results"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Pagination offset"},
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted images"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.GalleryList(c.Context, store, ops.GalleryListInput{
						Limit:          c.Int("limit"),
						Offset:         c.Int("offset"),
						IncludeDeleted: c.Bool("include-deleted"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show one image",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "data", Usage: "Include the image as a data URI with its fragments"},
					&cli.IntFlag{Name: "chunk-size", Aliases: []string{"c"}, Usage: "Fragment length for --data (default: config chunk_size)"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireID(c)
					if err != nil {
						return outputError(err)
					}
					chunkSize := session.SettingsFromConfig(cfg).ChunkSize
					if c.IsSet("chunk-size") {
						chunkSize = c.Int("chunk-size")
					}

					output, err := ops.GalleryShow(c.Context, store, ops.GalleryShowInput{
						ID:          id,
						IncludeData: c.Bool("data"),
						ChunkSize:   chunkSize,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "export",
				Usage:     "Write an image to a file",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: <output dir>/asset_<id><ext>)"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireID(c)
					if err != nil {
						return outputError(err)
					}

					output, err := ops.GalleryExport(c.Context, store, cfg, cfg.ResolveOutputDir(baseDir), ops.GalleryExportInput{
						ID:   id,
						Path: c.String("path"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Soft-delete an image",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireID(c)
					if err != nil {
						return outputError(err)
					}

					output, err := ops.GalleryDelete(c.Context, store, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "purge",
				Usage: "Permanently delete soft-deleted images",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.GalleryPurgeInput{}
					if olderThan := c.String("older-than"); olderThan != "" {
						days, err := parseDuration(olderThan)
						if err != nil {
							return outputError(errors.NewInvalidArgument(err.Error()))
						}
						input.OlderThanDays = &days
					}

					output, err := ops.GalleryPurge(c.Context, store, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "backup",
				Usage: "Write all images to a JSONL backup",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: <output dir>/gallery-<timestamp>.jsonl)"},
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted images"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.GalleryBackup(c.Context, store, cfg, cfg.ResolveOutputDir(baseDir), ops.GalleryBackupInput{
						Path:           c.String("path"),
						IncludeDeleted: c.Bool("include-deleted"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "restore",
				Usage:     "Load images from a JSONL backup",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(gallery.RestoreModeError), Usage: "On id collision: error, replace or rename"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidArgument("backup path is required"))
					}

					output, err := ops.GalleryRestore(c.Context, store, ops.GalleryRestoreInput{
						Path: c.Args().First(),
						Mode: gallery.RestoreMode(c.String("mode")),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(store *gallery.Store, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7878, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(store, cfg, baseDir, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputFragment prints fragment n (1-based) as raw text, with a summary
// line on stderr.
func outputFragment(fragments []string, n int) error {
	if n < 1 || n > len(fragments) {
		return outputError(errors.NewInvalidArgument(
			fmt.Sprintf("fragment %d out of range (have %d)", n, len(fragments))))
	}
	text := fragments[n-1]
	fmt.Fprintf(stderr, "%s of %d (%s chars)\n", fragment.Label(n-1), len(fragments), humanize.Comma(int64(len(text))))
	_, err := fmt.Fprintln(stdout, text)
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	if fErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func maxInputBytes(cfg *config.Config) int64 {
	if cfg == nil {
		return config.DefaultMaxInputBytes
	}
	return cfg.MaxInputBytes
}

// requireID returns the first positional argument.
func requireID(c *cli.Context) (string, error) {
	if c.NArg() == 0 || strings.TrimSpace(c.Args().First()) == "" {
		return "", errors.NewInvalidArgument("asset id is required")
	}
	return c.Args().First(), nil
}

// readPayload returns fragment file contents when files are given, otherwise
// the piped stdin text. Surrounding whitespace is dropped from both.
func readPayload(c *cli.Context) (string, []string, error) {
	if c.NArg() == 0 {
		text, err := pipedStdin("data URI")
		if err != nil {
			return "", nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", nil, errors.NewInvalidArgument("data URI is required")
		}
		return text, nil, nil
	}

	fragments := make([]string, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil, errors.NewFileNotFound(path)
			}
			return "", nil, errors.WrapIO("read fragment", err)
		}
		fragments = append(fragments, strings.TrimSpace(string(data)))
	}
	return "", fragments, nil
}

// requireStdin is pipedStdin that also rejects empty input.
func requireStdin(what string) (string, error) {
	text, err := pipedStdin(what)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.NewInvalidArgument(what + " is required")
	}
	return text, nil
}

// pipedStdin reads piped stdin verbatim, failing when stdin is a terminal.
func pipedStdin(what string) (string, error) {
	if !stdinHasData() {
		return "", errors.NewInvalidArgument(what + " must be piped via stdin")
	}
	text, err := readStdin()
	if err != nil {
		return "", errors.WrapIO("read stdin", err)
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
