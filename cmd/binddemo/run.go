package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gogpu/bind"
	"github.com/gogpu/bind/internal/frame"
	"github.com/gogpu/bind/internal/scene"
)

type runOptions struct {
	out      string
	fontSize float64
	sanity   bool
	events   bool
}

func (o *runOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "frames", "directory for the rendered frames")
	f.Float64Var(&o.fontSize, "font-size", frame.DefaultFontSize, "label size in points")
	f.BoolVar(&o.sanity, "sanity", false, "check engine invariants after every phase")
	f.BoolVar(&o.events, "events", true, "print the changes seen by watched properties")
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <scene.yaml>",
		Short: "Execute a scene and write one PNG per step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(cmd.Context(), cmd.OutOrStdout(), args[0], o)
		},
	}
	o.register(cmd)
	return cmd
}

// runScene builds the scene at path, renders the initial frame and one
// frame per step. Propagation failures are reported as warnings.
func runScene(ctx context.Context, w io.Writer, path string, o runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := scene.Load(path)
	if err != nil {
		return err
	}

	svc := bind.NewService(bind.WithSanityChecks(o.sanity))
	defer svc.Close()

	r, err := scene.Build(svc, sc)
	if r == nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			warn(w, err)
		}
	}()
	if err != nil {
		warn(w, err)
	}

	ren, err := frame.NewRenderer(frame.WithFontSize(o.fontSize))
	if err != nil {
		return err
	}
	defer func() { _ = ren.Close() }()

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	err = r.Run(ctx, func(step int, l frame.Layout) error {
		name := filepath.Join(o.out, fmt.Sprintf("frame-%03d.png", step))
		if err := writeFrame(ren, name, l); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, name)
		return nil
	})
	if o.events {
		for _, e := range r.Events() {
			_, _ = fmt.Fprintln(w, e)
		}
	}

	var perr *bind.PropagationError
	if errors.As(err, &perr) {
		warn(w, err)
		return nil
	}
	return err
}

func writeFrame(ren *frame.Renderer, name string, l frame.Layout) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := ren.WritePNG(f, l); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func warn(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "warning: %v\n", err)
}
