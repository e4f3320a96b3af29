package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/go-mediafix/internal/config"
	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/repair"
	"github.com/autobrr/go-mediafix/internal/server"
	"github.com/autobrr/go-mediafix/internal/store"
)

const (
	exitOK    = 0
	exitError = 1
)

// Options are the flags shared by all commands. Flags left at their zero
// value keep the value from the config file.
type Options struct {
	ConfigPath          string
	Format              string
	Output              string
	LogFormat           string
	Debug               bool
	FixTimestamps       bool
	ClampTimestampJumps bool
	Listen              string
}

type env struct {
	cfg    *config.Config
	log    *logrus.Logger
	opts   media.Options
	format media.Format
}

func (o Options) env(stderr io.Writer) (*env, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Debug {
		cfg.Log.Level = "debug"
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.FixTimestamps {
		cfg.Repair.FixTimestamps = true
	}
	if o.ClampTimestampJumps {
		cfg.Repair.ClampTimestampJumps = true
	}
	if o.Listen != "" {
		cfg.Server.Listen = o.Listen
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	if err := cfg.ConfigureLogger(logger); err != nil {
		return nil, err
	}

	format, err := media.ParseFormat(o.Format)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		log:    logger,
		opts:   cfg.RepairOptions(logger),
		format: format,
	}, nil
}

// Fix repairs the chunk at brokenPath using the chunk at prevPath.
func Fix(ctx context.Context, o Options, prevPath, brokenPath string, stdout, stderr io.Writer) int {
	e, err := o.env(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	files, err := readFiles(ctx, []string{prevPath, brokenPath})
	if err != nil {
		return fail(stderr, err)
	}

	fixed, err := repair.Fix(e.format, files[0], files[1], e.opts)
	if err != nil {
		return fail(stderr, fmt.Errorf("fix %s: %w", brokenPath, err))
	}
	if err := writeOutput(o.Output, fixed, stdout); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

// Merge joins the chunks at paths in the given order.
func Merge(ctx context.Context, o Options, paths []string, stdout, stderr io.Writer) int {
	e, err := o.env(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	chunks, err := readFiles(ctx, paths)
	if err != nil {
		return fail(stderr, err)
	}

	merged, err := repair.Merge(e.format, chunks, e.opts)
	if err != nil {
		return fail(stderr, err)
	}
	if err := writeOutput(o.Output, merged, stdout); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

// Display writes the structure of every file in paths to stdout.
func Display(ctx context.Context, o Options, paths []string, stdout, stderr io.Writer) int {
	e, err := o.env(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	files, err := readFiles(ctx, paths)
	if err != nil {
		return fail(stderr, err)
	}

	for i, buf := range files {
		if len(files) > 1 {
			fmt.Fprintf(stdout, "file: %s\n", paths[i])
		}
		if err := repair.Display(stdout, e.format, buf, e.opts); err != nil {
			return fail(stderr, fmt.Errorf("display %s: %w", paths[i], err))
		}
	}
	return exitOK
}

// Serve runs the upload service until ctx is canceled.
func Serve(ctx context.Context, o Options, stderr io.Writer) int {
	e, err := o.env(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	st, err := store.Open(e.cfg.Server.DBPath, e.cfg.Server.RecordsDir)
	if err != nil {
		return fail(stderr, err)
	}
	defer st.Close()

	if err := server.New(e.cfg.Server, st, e.opts).ListenAndServe(ctx); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

// readFiles reads paths concurrently, keeping their order.
func readFiles(ctx context.Context, paths []string) ([][]byte, error) {
	out := make([][]byte, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	return nil
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintln(stderr, err.Error())
	return exitError
}
