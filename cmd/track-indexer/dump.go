package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var (
		at  uint64
		out string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write every record at or below a block as JSON, ordered by identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.store.Dump(cmd.Context(), at)
			if err != nil {
				return err
			}

			if out != "" {
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return err
				}
				return a.fs.WriteFile(out, data)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return fmt.Errorf("failed to write dump: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&at, "at", 0, "Include records written at or below this block")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
