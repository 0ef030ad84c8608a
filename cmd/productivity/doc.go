package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/docsync"
)

func newDocCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Read or write the remote document directly",
	}
	cmd.AddCommand(newDocPullCmd(a), newDocPushCmd(a))
	return cmd
}

func newDocPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Print the remote document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, closeFn, err := a.reconciler()
			if err != nil {
				return err
			}
			defer closeFn()

			doc, version, err := rec.Pull(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("document pulled", "version", version, "tasks", len(doc.Tasks))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func newDocPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push [file]",
		Short: "Replace the remote document with a local file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			content, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			doc, err := docsync.Decode(content)
			if err != nil {
				return err
			}

			rec, closeFn, err := a.reconciler()
			if err != nil {
				return err
			}
			defer closeFn()

			wrote, err := rec.Push(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintln(cmd.OutOrStdout(), "pushed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
			}
			return nil
		},
	}
}

func (a *app) reconciler() (*docsync.Reconciler, func() error, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	store, err := a.docStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return docsync.NewReconciler(store, a.logger), db.Close, nil
}
