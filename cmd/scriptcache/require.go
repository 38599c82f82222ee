package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agentuity/scriptcache/fetch"
	"github.com/agentuity/scriptcache/inject"
	"github.com/agentuity/scriptcache/loader"
	"github.com/spf13/cobra"
)

func newRequireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "require [files...]",
		Short: "Load files in order and write an HTML page containing them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRequire,
	}
	cmd.Flags().Bool("no-cache", false, "bypass the store for every file")
	cmd.Flags().StringP("out", "o", "", "write the page to this file instead of stdout")
	cmd.Flags().String("title", "scriptcache", "page title")
	cmd.Flags().Duration("timeout", time.Minute, "give up after this long")
	return cmd
}

func runRequire(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	rt, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	title, _ := cmd.Flags().GetString("title")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	doc := inject.NewDocument(title)
	queue := inject.NewQueue(ctx, rt.log, doc)
	defer queue.Close()
	l := loader.New(rt.log, rt.cfg, rt.store, fetch.New(rt.log, rt.cfg), queue)

	outcomes, err := l.RequireWait(ctx, loader.Paths(args...), noCache)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			rt.log.Error("%s: %s", o.Path, o.Err)
			continue
		}
		rt.log.Debug("%s: %s", o.Path, o.Action)
	}

	var w io.Writer = cmd.OutOrStdout()
	if fn, _ := cmd.Flags().GetString("out"); fn != "" {
		f, err := os.Create(fn)
		if err != nil {
			return fmt.Errorf("create %s: %w", fn, err)
		}
		defer f.Close()
		w = f
	}
	if err := doc.Render(w); err != nil {
		return err
	}
	if failed := loader.Failed(outcomes); len(failed) > 0 {
		return fmt.Errorf("%d of %d scripts not loaded", len(failed), len(outcomes))
	}
	return nil
}
