// Package cli wires the cnb commands onto the session manager, the profile
// flow and the directory filter.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"castenobar/internal/config"
	"castenobar/internal/models"
	"castenobar/internal/profile"
	"castenobar/internal/session"
)

// Backend is the server connection the commands run against.
type Backend interface {
	session.AccountService
	session.ProfileLookup
	profile.Tables
	profile.Blobs
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	Overview(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context) error
}

var errNotSignedIn = errors.New("not signed in: run `cnb signin` first")

type app struct {
	cfg     *config.ClientConfig
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	manager *session.Manager
	flow    *profile.Flow
	jsonOut bool
}

func NewRootCommand(cfg *config.ClientConfig, backend Backend, logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{cfg: cfg, backend: backend, logger: logger, now: time.Now}

	root := &cobra.Command{
		Use:   "cnb",
		Short: "Caste No Bar: find a partner without caste, dowry or religion filters",
		Long: `cnb is the command line client for Caste No Bar.

Examples:
  cnb signup --phone +919876543210 --pin 1234 --confirm-pin 1234
  cnb setup --name Asha --age 29 --profession Engineer --gender Female \
    --city Chennai --timeframe "6-12 months" --email asha@example.com \
    --consent-all
  cnb browse --city chennai --age 26-30
  cnb contact 42`,
		SilenceUsage:      true,
		PersistentPreRunE: a.start,
		PersistentPostRun: func(*cobra.Command, []string) { a.stop() },
	}
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON output")

	root.AddCommand(
		a.signupCmd(),
		a.signinCmd(),
		a.signoutCmd(),
		a.whoamiCmd(),
		a.watchCmd(),
		a.setupCmd(),
		a.settingsCmd(),
		a.browseCmd(),
		a.contactCmd(),
		a.shareCmd(),
		a.bandsCmd(),
		a.overviewCmd(),
	)
	return root
}

// start restores the stored session before any command runs. A restore
// failure leaves the client signed out rather than aborting.
func (a *app) start(cmd *cobra.Command, _ []string) error {
	a.manager = session.New(a.backend, a.backend,
		session.WithAdmin(a.cfg.AdminPhone, a.cfg.AdminPIN),
		session.WithLogger(a.logger),
		session.WithClock(a.now),
	)
	a.flow = profile.NewFlow(a.backend, a.backend, a.logger)

	ctx, cancel := a.timeout(cmd)
	defer cancel()
	if err := a.manager.Restore(ctx); err != nil {
		a.logger.Warn("continuing signed out", zap.Error(err))
	}
	<-a.manager.Ready()
	return nil
}

func (a *app) stop() {
	if a.manager != nil {
		a.manager.Close()
	}
}

func (a *app) timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	d := a.cfg.ReqTimeout
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(cmd.Context(), d)
}

func (a *app) requireAuth() (session.Snapshot, error) {
	snap := a.manager.Current()
	if snap.State != session.StateAuthenticated {
		return snap, errNotSignedIn
	}
	return snap, nil
}

// ownProfile loads the signed-in member's row, nil when there is none yet.
func (a *app) ownProfile(ctx context.Context, snap session.Snapshot) (*models.Profile, *models.Settings, error) {
	return a.flow.Load(ctx, snap.Identity.ID)
}

func nextStep(w io.Writer, r session.Route) {
	switch r {
	case session.RouteAuth:
		fmt.Fprintln(w, "Next: sign in with `cnb signin`.")
	case session.RouteSetup:
		fmt.Fprintln(w, "Next: complete your profile with `cnb setup`.")
	case session.RouteDirectory:
		fmt.Fprintln(w, "Next: browse profiles with `cnb browse`.")
	}
}
