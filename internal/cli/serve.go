package cli

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hermitbench/internal/api"
	"hermitbench/internal/prompt"
	"hermitbench/internal/runner"
)

// serveAPI is a test seam for running the HTTP server.
var serveAPI = api.Serve

func newServeCommand(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch-prompts") {
				a.cfg.Prompts.Watch = watch
			}
			if a.cfg.Prompts.Watch && a.cfg.Prompts.Path == "" {
				return usagef("--watch-prompts requires prompts.path in the config")
			}
			if a.cfg.Logging.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx := cmd.Context()
			st, err := a.buildStack(ctx, nil)
			if err != nil {
				return err
			}
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()
			orchestrator, err := runner.New(runner.Config{
				Interactor: st.engine,
				Judge:      st.judge,
				Repository: repo,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			defaults := a.cfg.Defaults
			handler, err := api.NewHandler(api.Config{
				Models:      st.gateway,
				Interactor:  st.engine,
				Batches:     orchestrator,
				Repository:  repo,
				Prompts:     st.prompts,
				PromptPath:  a.cfg.Prompts.Path,
				BaseContext: ctx,
				Logger:      a.logger,
				Defaults: api.Defaults{
					Temperature:  *defaults.Temperature,
					TopP:         *defaults.TopP,
					MaxTurns:     *defaults.MaxTurns,
					RunsPerModel: *defaults.RunsPerModel,
					TaskDelayMs:  *defaults.TaskDelayMs,
				},
			})
			if err != nil {
				return err
			}

			group, groupCtx := errgroup.WithContext(ctx)
			addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
			group.Go(func() error {
				a.logger.Info("serving api", zap.String("addr", addr))
				return serveAPI(groupCtx, addr, handler)
			})
			if a.cfg.Prompts.Watch {
				watcher, err := prompt.NewWatcher(st.prompts, a.cfg.Prompts.Path)
				if err != nil {
					return err
				}
				watcher.OnReload = func(err error) {
					if err != nil {
						a.logger.Warn("prompt reload failed", zap.Error(err))
						return
					}
					a.logger.Info("prompts reloaded", zap.Strings("names", st.prompts.Loaded()))
				}
				group.Go(func() error {
					return watcher.Run(groupCtx)
				})
			}
			fmt.Fprintf(opts.stdout, "Serving API at http://%s\n", addr)
			err = group.Wait()

			// Background batches hold the server context and stop scheduling once it ends.
			waitDone := make(chan struct{})
			go func() {
				orchestrator.Wait()
				close(waitDone)
			}()
			select {
			case <-waitDone:
			case <-time.After(30 * time.Second):
				a.logger.Warn("batches still running at shutdown")
			}
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config or HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config or PORT)")
	cmd.Flags().BoolVar(&watch, "watch-prompts", false, "Reload prompt templates when the prompt file changes")
	return cmd
}
