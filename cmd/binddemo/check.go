package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/bind"
	"github.com/gogpu/bind/internal/scene"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <scene.yaml>...",
		Short: "Validate scenes and run them with invariant checks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				if err := checkScene(cmd.OutOrStdout(), path); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}

// checkScene builds the scene, runs every step and verifies the engine
// invariants. Any propagation failure fails the check.
func checkScene(w io.Writer, path string) error {
	sc, err := scene.Load(path)
	if err != nil {
		return err
	}

	svc := bind.NewService(bind.WithSanityChecks(true))
	defer svc.Close()

	r, err := scene.Build(svc, sc)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return err
	}
	for i := range r.Steps() {
		if err := r.Step(i); err != nil {
			_ = r.Close()
			return err
		}
	}
	if err := svc.SanityCheck(); err != nil {
		_ = r.Close()
		return err
	}

	_, _ = fmt.Fprintf(w, "%s: ok (%d objects, %d bindings, %d steps, %d events)\n",
		path, len(sc.Objects), len(sc.Bindings), r.Steps(), len(r.Events()))
	return r.Close()
}
