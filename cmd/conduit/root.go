package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thomaskoefod/conduit/internal/api"
	"github.com/thomaskoefod/conduit/internal/config"
	"github.com/thomaskoefod/conduit/internal/gateway"
	"github.com/thomaskoefod/conduit/internal/output"
	"github.com/thomaskoefod/conduit/internal/session"
	"github.com/thomaskoefod/conduit/internal/state"
)

var errSessionExpired = errors.New("session expired, run `conduit login` to sign in again")

// app holds everything one invocation of the CLI needs.
type app struct {
	cfgFile string
	verbose bool

	v       *viper.Viper
	cfg     *config.Config
	logger  *logrus.Logger
	printer *output.Printer
	jar     *session.Jar
	store   *state.Store

	// hadSession records whether the jar held a credential at startup.
	hadSession     bool
	sessionExpired atomic.Bool
}

func newRootCmd(a *app) *cobra.Command {
	a.v = config.NewViper()

	root := &cobra.Command{
		Use:   "conduit",
		Short: "Read and write on a Conduit blogging server",
		Long: `conduit is a command line client for a Conduit social blogging server.

Example usage:
  conduit login -u ada -p secret123   # Sign in; the session is kept between runs
  conduit articles                    # List articles
  conduit article <id>                # Read an article and its comments
  conduit publish post.md --tag go    # Publish a markdown or HTML file
  conduit tui                         # Browse interactively`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.config/conduit/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.String("api-url", "", "API base URL, e.g. https://conduit.example.com/api")
	flags.String("session", "", "session database path")

	_ = a.v.BindPFlag("api.base_url", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("session.path", flags.Lookup("session"))

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newSettingsCmd(a),
		newArticlesCmd(a),
		newArticleCmd(a),
		newFavoriteCmd(a),
		newDeleteCmd(a),
		newPublishCmd(a),
		newImportFeedCmd(a),
		newCommentCmd(a),
		newUncommentCmd(a),
		newProfileCmd(a),
		newTagsCmd(a),
		newTUICmd(a),
	)
	return root
}

// init loads configuration and wires the session jar, gateway and Store.
func (a *app) init(cmd *cobra.Command) error {
	cfgPath := a.cfgFile
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.Load(cfgPath, a.v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	a.logger = logrus.New()
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if a.verbose {
		level = logrus.DebugLevel
	}
	a.logger.SetLevel(level)

	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(cfg.Output.Colors) && isTerminal(cmd.OutOrStdout()))

	a.jar, err = session.Open(cfg.Session.Path, a.logger)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	timeout, _ := cfg.API.GetTimeout()
	gw, err := gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		RateLimit: cfg.API.RateLimit,
		Logger:    a.logger,
		OnSessionInvalid: func() {
			a.sessionExpired.Store(true)
		},
	}, &http.Client{Jar: a.jar, Timeout: timeout})
	if err != nil {
		return err
	}
	a.hadSession = len(a.jar.Cookies(gw.BaseURL())) > 0

	a.store = state.New(state.FromAPI(api.New(gw)),
		state.WithLogger(a.logger),
		state.WithObserver(func(act state.Action, s state.State) {
			if act.Phase == state.Failed {
				a.logger.WithFields(logrus.Fields{"op": act.Op, "error": act.Error}).Debug("operation failed")
			}
		}),
	)

	a.logger.WithFields(logrus.Fields{
		"config":   cfgPath,
		"base_url": cfg.API.BaseURL,
		"session":  cfg.Session.Path,
	}).Debug("configuration loaded")
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.jar != nil {
		if err := a.jar.Close(); err != nil {
			a.logger.WithError(err).Warn("closing session")
		}
	}
}

// await waits for t and turns a failure into the error the user should see.
func (a *app) await(t *state.Task) (state.Result, error) {
	res := t.Wait()
	if res.OK() {
		return res, nil
	}
	if errors.Is(res.Err, gateway.ErrSessionInvalid) {
		return res, errSessionExpired
	}
	return res, errors.New(res.Message)
}

// requireSession bootstraps the session and fails early when nobody is signed in.
func (a *app) requireSession(ctx context.Context) error {
	a.store.Bootstrap(ctx).Wait()
	if !a.store.State().Auth.IsAuthenticated {
		if a.hadSession && a.sessionExpired.Load() {
			return errSessionExpired
		}
		return errors.New("not signed in, run `conduit login` first")
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
