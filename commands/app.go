package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/config"
	"github.com/CrowderSoup/scrumlr-sync/database"
	"github.com/CrowderSoup/scrumlr-sync/printers"
	"github.com/CrowderSoup/scrumlr-sync/services"
	"github.com/CrowderSoup/scrumlr-sync/store"
)

// app is what every command runs with once flags and config are resolved
type app struct {
	v     *viper.Viper
	cfg   *config.Config
	log   *logrus.Entry
	prefs *database.Preferences
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.Logger(cmd.ErrOrStderr())

	prefs, err := database.OpenPreferences(cfg.PreferencesDir())
	if err != nil {
		return err
	}
	a.prefs = prefs
	return nil
}

// client returns an API client carrying the saved session, if any
func (a *app) client() (*services.APIClient, error) {
	api, err := services.NewAPIClient(a.cfg.Server, a.cfg.Timeout, a.log)
	if err != nil {
		return nil, err
	}
	if token := a.prefs.Session(); token != "" {
		api.Session().Restore(token)
	}
	return api, nil
}

func (a *app) user(api *services.APIClient) (string, error) {
	if u := a.prefs.User(); u != "" {
		return u, nil
	}
	id, err := api.Session().UserID()
	if err != nil {
		return "", fmt.Errorf("%w, run scrumlr login first", err)
	}
	return id, nil
}

// session is one joined board
type session struct {
	api    *services.APIClient
	store  *store.Store
	toasts *services.Toasts
	board  *services.BoardService
	epoch  uint64
}

func (a *app) join(ctx context.Context, boardID string) (*session, error) {
	api, err := a.client()
	if err != nil {
		return nil, err
	}
	user, err := a.user(api)
	if err != nil {
		return nil, err
	}

	st := store.New(board.Board{ID: boardID},
		store.WithLogger(a.log),
		store.WithObserver(services.CountAction),
	)
	toasts := services.NewToasts()
	d := services.NewDispatcher(st, toasts, a.log)
	bs := services.NewBoardService(api, st, d, user, a.cfg.Thresholds, a.log)

	epoch, err := bs.Join(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return &session{api: api, store: st, toasts: toasts, board: bs, epoch: epoch}, nil
}

// mutate runs fn and retries the toast it raised up to retries times
func (s *session) mutate(ctx context.Context, retries int, fn func(context.Context) error) error {
	err := fn(ctx)
	for i := 0; err != nil && i < retries; i++ {
		toasts := s.toasts.List()
		if len(toasts) == 0 || !toasts[len(toasts)-1].Retryable {
			break
		}
		err = s.toasts.Retry(ctx, toasts[len(toasts)-1].ID)
	}
	return err
}

func (a *app) printer(cmd *cobra.Command) *printers.PrettyPrint {
	return &printers.PrettyPrint{Out: cmd.OutOrStdout()}
}

// snapshots opens the local board cache
func (a *app) snapshots() (*database.SnapshotService, func(), error) {
	db, err := database.InitDB(a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return database.NewSnapshotService(db), func() { _ = db.Close() }, nil
}

func handleToasts(pp *printers.PrettyPrint, s *session, err error) error {
	if err == nil {
		return nil
	}
	if toasts := s.toasts.List(); len(toasts) > 0 {
		pp.Toasts(toasts...)
	}
	if errors.Is(err, services.ErrStaleEpoch) {
		return fmt.Errorf("board changed, nothing was saved: %w", err)
	}
	return err
}
