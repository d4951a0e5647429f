package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/handlers"
	"github.com/CrowderSoup/scrumlr-sync/services"
)

func addBoard(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Follow and inspect boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addBoardShow(cmd, a)
	addBoardWatch(cmd, a)
	addBoardForget(cmd, a)

	topLevel.AddCommand(cmd)
}

type showOptions struct {
	Offline bool
	List    bool
	IDs     bool
	Hidden  bool
}

func addBoardShow(parent *cobra.Command, a *app) {
	o := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show [board]",
		Short: "Print a board",
		Example: `
scrumlr board show 7f1c...
scrumlr board show 7f1c... --offline
scrumlr board show --list
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp := a.printer(cmd)
			pp.ShowID = o.IDs
			pp.ShowHidden = o.Hidden

			if o.List || o.Offline {
				snapshots, closeDB, err := a.snapshots()
				if err != nil {
					return err
				}
				defer closeDB()

				if o.List {
					list, err := snapshots.ListSnapshots(cmd.Context())
					if err != nil {
						return err
					}
					pp.Snapshots(list)
					return nil
				}
				if len(args) == 0 {
					return errors.New("board id required")
				}
				s, saved, err := snapshots.LoadSnapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				pp.User = a.prefs.User()
				pp.Board(s)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved.Local().Format(time.DateTime))
				return nil
			}

			if len(args) == 0 {
				return errors.New("board id required")
			}
			s, err := a.join(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pp.User = s.board.User()
			pp.Board(s.board.State())
			return nil
		},
	}
	cmd.Flags().BoolVar(&o.Offline, "offline", false, "Print the last saved snapshot instead of asking the backend.")
	cmd.Flags().BoolVar(&o.List, "list", false, "List saved snapshots.")
	cmd.Flags().BoolVar(&o.IDs, "ids", false, "Show note ids.")
	cmd.Flags().BoolVar(&o.Hidden, "hidden", false, "Include hidden columns.")

	parent.AddCommand(cmd)
}

func addBoardForget(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "forget <board>",
		Short: "Delete the saved snapshot of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, closeDB, err := a.snapshots()
			if err != nil {
				return err
			}
			defer closeDB()
			return snapshots.DeleteSnapshot(cmd.Context(), args[0])
		},
	}
	parent.AddCommand(cmd)
}

type watchOptions struct {
	Mirror bool
}

func addBoardWatch(parent *cobra.Command, a *app) {
	o := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <board>",
		Short: "Follow a board live until interrupted",
		Example: `
scrumlr board watch 7f1c...
scrumlr board watch 7f1c... --mirror
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, args[0], o)
		},
	}
	cmd.Flags().BoolVar(&o.Mirror, "mirror", false, "Serve the live state over HTTP and websocket on mirror.addr.")

	parent.AddCommand(cmd)
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, boardID string, o *watchOptions) error {
	s, err := a.join(ctx, boardID)
	if err != nil {
		return err
	}
	snapshots, closeDB, err := a.snapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	addr, err := services.RealtimeURL(a.cfg.Server, a.cfg.Realtime, boardID)
	if err != nil {
		return err
	}
	rt, err := services.DialRealtime(ctx, addr, s.api.Jar(), s.store, s.epoch, a.log)
	if err != nil {
		return err
	}
	s.board.SetBroadcaster(rt)

	var hub *services.Hub
	if o.Mirror {
		hub = a.mirror(ctx, s)
	}

	pp := a.printer(cmd)
	pp.User = s.board.User()
	pp.Board(s.board.State())

	states, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	realtime := make(chan error, 1)
	go func() {
		realtime <- rt.Run(ctx)
	}()

	ticker := time.NewTicker(a.cfg.SnapshotInterval)
	defer ticker.Stop()

	save := func() {
		if err := snapshots.SaveSnapshot(context.Background(), s.store.State()); err != nil {
			a.log.WithError(err).Warn("failed to save board snapshot")
		}
	}
	defer save()

	for {
		select {
		case <-ctx.Done():
			<-realtime
			return nil
		case err := <-realtime:
			if err != nil {
				return fmt.Errorf("realtime channel closed: %w", err)
			}
			return nil
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			pp.Summary(st)
		case t := <-s.toasts.Notifications():
			pp.Toasts(t)
			if hub != nil {
				hub.Broadcast(services.MirrorToast, t)
			}
		case <-ticker.C:
			save()
		}
	}
}

// mirror serves the local state for dashboards until ctx ends
func (a *app) mirror(ctx context.Context, s *session) *services.Hub {
	hub := services.NewHub(a.log.WithField("component", "mirror"))
	go hub.Run(ctx)

	state := handlers.NewStateHandler(s.store, hub, s.toasts, a.log)
	go state.Publish(ctx)

	auth := services.NewMirrorAuth(a.cfg.Mirror.Secret)
	server := &http.Server{
		Addr:         a.cfg.Mirror.Addr,
		Handler:      handlers.NewRouter(state, auth, a.log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.log.WithField("addr", server.Addr).Info("mirror listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("mirror stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()
	return hub
}
