package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"supportdesk/backend/internal/api/handler"
	"supportdesk/backend/internal/config"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
	"supportdesk/backend/internal/summary"
	"supportdesk/backend/internal/support"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries what the commands share. open and closeDB are replaced in tests.
type app struct {
	configPath string
	cfg        *config.Config
	open       func(cfg *config.Config) (*storage.Service, error)
	closeDB    func(s *storage.Service) error
	out        io.Writer
}

func main() {
	a := &app{open: openStorage, closeDB: (*storage.Service).Close, out: os.Stdout}
	if err := a.root().Execute(); err != nil {
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) (*storage.Service, error) {
	db, err := storage.OpenPostgres(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	return storage.NewStorageService(db, cfg.DB.Timeout), nil
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Support desk maintenance commands",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			cfg.ConfigureLogging()
			a.cfg = cfg
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a TOML config file (default: $SUPPORTDESK_CONFIG)")

	root.AddCommand(a.bootstrapCmd())
	root.AddCommand(a.threadsCmd())
	root.AddCommand(a.messagesCmd())
	root.AddCommand(a.unreadCmd())
	root.AddCommand(a.tokenCmd())
	return root
}

// storage opens the database for one command. The returned func closes it and
// is safe to defer before err is checked.
func (a *app) storage(ctx context.Context, migrate bool) (*storage.Service, func(), error) {
	s, err := a.open(a.cfg)
	if err != nil {
		return nil, func() {}, err
	}
	done := func() {
		if err := a.closeDB(s); err != nil {
			log.Warn().Err(err).Msg("closing database failed")
		}
	}
	if migrate {
		if err := s.Migrate(ctx); err != nil {
			return nil, done, err
		}
	}
	return s, done, nil
}

func (a *app) maintainer() models.Identity {
	return models.Identity{
		ID:     a.cfg.Maintainer.ID,
		Name:   a.cfg.Maintainer.Name,
		Email:  a.cfg.Maintainer.Email,
		Avatar: a.cfg.Maintainer.Avatar,
	}
}

func (a *app) bootstrapCmd() *cobra.Command {
	var userID, userName string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Migrate the schema and provision the maintainer",
		Long: `Runs the schema migration and creates the maintainer participant.
With --user it also creates that user's support thread.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, done, err := a.storage(ctx, true)
			defer done()
			if err != nil {
				return err
			}
			b := support.NewBootstrap(s, a.maintainer())

			m, err := b.EnsureMaintainer(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "maintainer %s (%s) ready\n", m.ID, m.Name)

			if userID == "" {
				return nil
			}
			thread, err := b.GetOrCreateMaintainerThread(ctx, models.Identity{ID: userID, Name: userName})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "support thread %s for %s\n", thread.ID, userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "also create the support thread of this participant id")
	cmd.Flags().StringVar(&userName, "name", "", "display name for --user")
	return cmd
}

func (a *app) threadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads <participant-id>",
		Short: "List the threads of a participant, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, done, err := a.storage(ctx, false)
			defer done()
			if err != nil {
				return err
			}

			viewer := args[0]
			threads, err := s.ListThreadsFor(ctx, viewer)
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Fprintf(a.out, "no threads for %s\n", viewer)
				return nil
			}

			now := time.Now()
			for i := range threads {
				unread, err := s.ComputeUnread(ctx, threads[i].ID, viewer)
				if err != nil {
					return err
				}
				other, err := s.GetParticipant(ctx, threads[i].Other(viewer))
				if err != nil {
					return err
				}
				view := summary.Thread(threads[i], viewer, other, unread, false, now)
				fmt.Fprintf(a.out, "%s\t%s\t%s\tunread=%d\t%q\n", view.ID, view.Name, view.Time, view.Unread, view.LastMessage)
			}
			return nil
		},
	}
}

func (a *app) messagesCmd() *cobra.Command {
	var after uint

	cmd := &cobra.Command{
		Use:   "messages <thread-id>",
		Short: "Print the messages of a thread in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, done, err := a.storage(ctx, false)
			defer done()
			if err != nil {
				return err
			}

			if _, err := s.GetThread(ctx, args[0]); err != nil {
				return err
			}
			msgs, err := s.ListMessagesSince(ctx, args[0], after)
			if err != nil {
				return err
			}

			for _, m := range summary.Messages(msgs, time.Now()) {
				fmt.Fprintf(a.out, "#%d\t%s\t%s\t%s\n", m.ID, m.CreatedAt.Format(time.RFC3339), m.SenderName, messageText(m))
				for _, att := range m.Attachments {
					fmt.Fprintf(a.out, "\t[%s] %s %s (%s)\n", att.Type, att.Name, att.URL, att.SizeLabel)
				}
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&after, "after", 0, "only messages after this message id")
	return cmd
}

func messageText(m models.MessageView) string {
	switch {
	case m.Body != "":
		return m.Body
	case m.AudioURL != "":
		return storage.VoiceMessageSummary + " " + m.AudioURL
	}
	return ""
}

func (a *app) unreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread <thread-id> <viewer-id>",
		Short: "Recompute the unread count of a thread for a viewer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, done, err := a.storage(ctx, false)
			defer done()
			if err != nil {
				return err
			}
			n, err := s.ComputeUnread(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var identity models.Identity

	cmd := &cobra.Command{
		Use:   "token <participant-id>",
		Short: "Sign a bearer token for a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured")
			}
			identity.ID = args[0]
			auth := handler.NewAuthenticator(a.cfg.Auth.Secret, a.cfg.Auth.Issuer, a.cfg.Auth.TTL)
			token, err := auth.Sign(identity)
			if err != nil {
				return err
			}
			log.Debug().Str("participant_id", identity.ID).Dur("ttl", a.cfg.Auth.TTL).Msg("token signed")
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity.Name, "name", "", "display name claim")
	cmd.Flags().StringVar(&identity.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&identity.Avatar, "avatar", "", "avatar url claim")
	return cmd
}
