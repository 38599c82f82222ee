package main

import (
	"github.com/agentuity/scriptcache/loader"
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [files...]",
		Short: "Remove stored entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			l := loader.New(rt.log, rt.cfg, rt.store, nil, nil)
			for _, file := range args {
				if err := l.Remove(ctx, file); err != nil {
					return err
				}
				rt.log.Info("removed %s", rt.cfg.Resolve(file))
			}
			return nil
		},
	}
}
