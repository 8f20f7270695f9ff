package main

import (
	"context"
	"fmt"
	"os"

	"github.com/muesli/coral"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fairDataSociety/fairdrive-opfs/internal/logging"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/driver"
	"github.com/fairDataSociety/fairdrive-opfs/pkg/provider"
)

var mountsFlags = struct {
	all         bool
	concurrency int
}{}

var mountsCmd = &coral.Command{
	Use:   "mounts",
	Short: "list mounts",
	Long:  "list the mounts (pods, buckets, roots) a provider exposes",
	Args:  coral.NoArgs,
	RunE: func(cmd *coral.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return runMounts(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mountsCmd)
	mountsCmd.Flags().BoolVarP(&mountsFlags.all, "all", "a", false, "list mounts of every configured provider")
	mountsCmd.Flags().IntVar(&mountsFlags.concurrency, "concurrency", 4, "providers queried at once with --all")
}

type providerMounts struct {
	name   string
	kind   provider.Kind
	mounts []driver.Mount
	err    error
}

func runMounts(ctx context.Context) error {
	if !mountsFlags.all {
		p, err := selectedProvider(ctx)
		if err != nil {
			return err
		}
		mounts, err := p.ListMounts(ctx)
		if err != nil {
			return err
		}
		printMounts(providerMounts{name: p.Name(), kind: p.Kind(), mounts: mounts})
		return nil
	}

	names := module.Config().Names()
	results := make([]providerMounts, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(mountsFlags.concurrency, 1))
	for i, name := range names {
		g.Go(func() error {
			results[i] = listProviderMounts(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		printMounts(r)
		if r.err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(results))
	}
	return nil
}

// listProviderMounts never fails the group; one unreachable provider should
// not hide the others.
func listProviderMounts(ctx context.Context, name string) providerMounts {
	r := providerMounts{name: name, kind: module.Config().Providers[name].Type}
	p, err := module.Connect(ctx, name)
	if err != nil {
		r.err = err
		return r
	}
	r.mounts, r.err = p.ListMounts(ctx)
	if r.err != nil {
		logging.Warn("list mounts failed", zap.String("provider", name), zap.Error(r.err))
	}
	return r
}

func printMounts(r providerMounts) {
	fmt.Fprintln(os.Stdout, headerStyle.Render(fmt.Sprintf("%s (%s)", r.name, r.kind)))
	if r.err != nil {
		fmt.Fprintln(os.Stdout, "  "+errStyle.Render(r.err.Error()))
		return
	}
	for _, m := range r.mounts {
		fmt.Fprintf(os.Stdout, "  %s\t%s\n", m.Name, m.Path)
	}
}
