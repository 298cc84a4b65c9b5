package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/GoSim-25-26J-441/grant-registry-backend/config"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/repository"
)

// runStats prints the grant count and the project count of every grant.
func runStats(ctx context.Context, cfg *config.Config, out io.Writer) error {
	backends, err := bootstrap.OpenBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	return writeStats(ctx, backends.Store, out)
}

func writeStats(ctx context.Context, store repository.Store, out io.Writer) error {
	n, err := store.GrantCount(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "grants\t%d\n", n)
	fmt.Fprintln(tw, "grant_id\tprojects")
	for id := uint64(0); id < n; id++ {
		count, err := store.ProjectCount(ctx, id)
		if err != nil {
			return fmt.Errorf("grant %d: %w", id, err)
		}
		fmt.Fprintf(tw, "%d\t%d\n", id, count)
	}
	return tw.Flush()
}
