package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/neubio/neubio/internal/app"
	"github.com/neubio/neubio/internal/auth"
	"github.com/neubio/neubio/internal/document"
	"github.com/neubio/neubio/internal/document/store"
	"github.com/neubio/neubio/internal/history"
	"github.com/neubio/neubio/internal/syncer"
	"github.com/spf13/cobra"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "hash [password]",
		Short:   "Print the digest stored in admin.passwordHash",
		Long:    "Print the lowercase hex SHA-256 digest of a password. Without an argument the password is read from the first line of stdin.",
		Args:    cobra.MaximumNArgs(1),
		GroupID: "offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return err
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if err := auth.ValidatePassword(pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.HashPassword(pw))
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Print the built-in default document",
		Args:    cobra.NoArgs,
		GroupID: "offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd, out, document.DefaultSeed())
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "migrate [file]",
		Short:   "Upgrade a document of any historical shape to the current one",
		Long:    "Read a profile document (file, or stdin when omitted or \"-\"), fill every missing field and print the current shape.",
		Args:    cobra.MaximumNArgs(1),
		GroupID: "offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			doc, err := readDocument(cmd, path)
			if err != nil {
				return err
			}
			data, err := document.Encode(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// remote bundles a controller built from the configuration.
type remote struct {
	ctrl    *syncer.Controller
	store   *store.Store
	history history.Repository
	close   func()
}

func (c *cli) remote(ctx context.Context, token string) (*remote, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	rdb := app.Redis(ctx, cfg)
	sess, _ := app.Sessions(rdb, cfg)
	mongoClient := app.Mongo(ctx, cfg)
	hist := app.History(ctx, mongoClient, cfg)
	st := store.New(nil)
	ctrl, err := app.Controller(cfg, st, sess, hist)
	closeAll := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if mongoClient != nil {
			_ = mongoClient.Disconnect(context.Background())
		}
	}
	if err != nil {
		closeAll()
		return nil, err
	}
	if token == "" {
		token = cfg.GitHub.Token
	}
	if token != "" {
		if err := ctrl.VerifyCredential(ctx, token); err != nil {
			closeAll()
			return nil, fmt.Errorf("verify credential: %w", err)
		}
	}
	return &remote{ctrl: ctrl, store: st, history: hist, close: closeAll}, nil
}

func remoteFlags(cmd *cobra.Command, token *string, timeout *time.Duration) {
	cmd.Flags().StringVar(token, "token", "", "remote credential (default $GITHUB_TOKEN or the stored one)")
	cmd.Flags().DurationVar(timeout, "timeout", time.Minute, "overall deadline")
}

func newVerifyCmd(c *cli) *cobra.Command {
	var token string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Check a credential against the remote and store it",
		Args:    cobra.NoArgs,
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			r, err := c.remote(ctx, token)
			if err != nil {
				return err
			}
			defer r.close()
			fmt.Fprintln(cmd.OutOrStdout(), "credential verified")
			return nil
		},
	}
	remoteFlags(cmd, &token, &timeout)
	return cmd
}

func newCreateCmd(c *cli) *cobra.Command {
	var token, file string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a new container holding the document",
		Long:    "Create a new container. The content is --file when given, else the bootstrap document.",
		Args:    cobra.NoArgs,
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			r, err := c.remote(ctx, token)
			if err != nil {
				return err
			}
			defer r.close()
			if err := loadInto(ctx, cmd, r, file); err != nil {
				return err
			}
			id, err := r.ctrl.CreateContainer(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	remoteFlags(cmd, &token, &timeout)
	cmd.Flags().StringVarP(&file, "file", "f", "", "document to upload")
	return cmd
}

func newPushCmd(c *cli) *cobra.Command {
	var token, file string
	var force bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write a document file to the remote",
		Long: "Read the remote revision, then write --file conditionally on it. " +
			"A container is created when none is configured. --force skips the revision check.",
		Args:    cobra.NoArgs,
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			r, err := c.remote(ctx, token)
			if err != nil {
				return err
			}
			defer r.close()
			if _, err := r.ctrl.Boot(ctx); err != nil {
				return err
			}
			doc, err := readDocument(cmd, file)
			if err != nil {
				return err
			}
			r.store.Replace(doc)
			res, err := r.ctrl.Push(ctx, force)
			if err != nil {
				return err
			}
			if res.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "created container %s\n", res.Container)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed to %s at revision %s\n", res.Container, res.Revision)
			return nil
		},
	}
	remoteFlags(cmd, &token, &timeout)
	cmd.Flags().StringVarP(&file, "file", "f", "", "document to push (\"-\" for stdin)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite even if the remote moved on")
	return cmd
}

func newPullCmd(c *cli) *cobra.Command {
	var token, out string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "pull",
		Short:   "Print the remote document in its current shape",
		Args:    cobra.NoArgs,
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			r, err := c.remote(ctx, token)
			if err != nil {
				return err
			}
			defer r.close()
			if _, err := r.ctrl.Pull(ctx, true); err != nil {
				return err
			}
			data, err := document.Encode(r.store.Snapshot())
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, data)
		},
	}
	remoteFlags(cmd, &token, &timeout)
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recent sync operations",
		Args:    cobra.NoArgs,
		GroupID: "remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			mongoClient := app.Mongo(ctx, cfg)
			if mongoClient == nil {
				return fmt.Errorf("history needs MONGODB_URI")
			}
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
			entries, err := app.History(ctx, mongoClient, cfg).List(ctx, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func printHistory(w io.Writer, entries []*history.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tOP\tBACKEND\tCONTAINER\tREVISION\tBYTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", e.CreatedAt.Format(time.RFC3339), e.Op, e.Backend, e.Container, e.Revision, e.Bytes)
	}
	_ = tw.Flush()
}

// loadInto replaces the store with file, or boots from the remote or the
// bootstrap snapshot when file is empty.
func loadInto(ctx context.Context, cmd *cobra.Command, r *remote, file string) error {
	if file == "" {
		_, err := r.ctrl.Boot(ctx)
		return err
	}
	doc, err := readDocument(cmd, file)
	if err != nil {
		return err
	}
	r.store.Replace(doc)
	return nil
}

func readDocument(cmd *cobra.Command, path string) (*document.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return document.Decode(data)
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
