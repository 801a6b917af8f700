// Command server is the weave execution engine's CLI: a debug/
// introspection HTTP server (serve), a one-shot blueprint validator
// (validate), and a one-shot blueprint runner (run), structured as a
// cobra command tree.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weave/internal/api"
	"weave/internal/engine"
	"weave/pkg/blueprint"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "weave",
		Short: "Execution engine for visual-scripting blueprints",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRunCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the debug/introspection HTTP server and run every service blueprint in BLUEPRINTS_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			executor := engine.NewExecutor(rt.registry, engine.Options{MaxRecursionDepth: cfg.MaxRecursion}, rt.log)
			executor.AttachEventBus(rt.bus)

			bps, err := loadBlueprintsDir(cfg.BlueprintsDir)
			if err != nil {
				return err
			}
			for _, bp := range bps {
				if err := executor.LoadBlueprint(bp); err != nil {
					return fmt.Errorf("load %s: %w", bp.ID, err)
				}
				if bp.ServiceConfig != nil {
					svc := engine.NewBlueprintService(bp, executor)
					if err := rt.manager.Spawn(svc); err != nil {
						return fmt.Errorf("spawn service %s: %w", bp.ID, err)
					}
				}
				rt.log.Info("blueprint loaded", map[string]interface{}{"blueprintId": bp.ID, "nodes": len(bp.Nodes)})
			}

			srv := api.NewServer(executor, rt.registry, rt.manager).WithPointStore(rt.points)
			relayStop := make(chan struct{})
			defer close(relayStop)
			go srv.Hub().RelayBusEvents(rt.bus, relayStop)

			addr := ":" + cfg.Port
			rt.log.Info("weave server starting", map[string]interface{}{"addr": addr})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpSrv := &http.Server{Addr: addr, Handler: srv.Routes()}
			go func() {
				<-ctx.Done()
				rt.log.Info("shutting down", nil)
				rt.manager.ShutdownAll(10 * time.Second)
				executor.Shutdown(5 * time.Second)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpSrv.Shutdown(shutdownCtx)
			}()
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <blueprint.json>",
		Short: "Validate a blueprint file against the built-in node palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			bp, err := loadBlueprintFile(args[0])
			if err != nil {
				return err
			}
			violations := blueprint.Validate(bp, rt.registry)
			if len(violations) == 0 {
				fmt.Println("ok: no violations found")
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(os.Stderr, "- %s\n", v.Message)
			}
			return fmt.Errorf("%d violation(s) found", len(violations))
		},
	}
}

func newRunCmd() *cobra.Command {
	var triggerKind string
	var triggerName string

	cmd := &cobra.Command{
		Use:   "run <blueprint.json>",
		Short: "Run a blueprint once from its matching entry points and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			bp, err := loadBlueprintFile(args[0])
			if err != nil {
				return err
			}
			if violations := blueprint.Validate(bp, rt.registry); len(violations) > 0 {
				for _, v := range violations {
					fmt.Fprintf(os.Stderr, "- %s\n", v.Message)
				}
				return fmt.Errorf("refusing to run an invalid blueprint (%d violations)", len(violations))
			}

			executor := engine.NewExecutor(rt.registry, engine.Options{MaxRecursionDepth: cfg.MaxRecursion}, rt.log)
			if err := executor.LoadBlueprint(bp); err != nil {
				return err
			}
			defer executor.Shutdown(5 * time.Second)

			res, err := executor.ExecuteBlueprint(cmd.Context(), bp.ID, engine.Trigger{
				Kind: parseTriggerKindFlag(triggerKind), Name: triggerName,
			})
			if err != nil {
				return err
			}
			switch res.Status {
			case engine.StatusFailed:
				return fmt.Errorf("execution failed: %w", res.Err)
			case engine.StatusSuspended:
				fmt.Printf("suspended, continuation id: %s\n", res.ContinuationID)
			default:
				fmt.Printf("completed: %v\n", res.Outputs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&triggerKind, "trigger", "start", "trigger kind: start, event, schedule, request")
	cmd.Flags().StringVar(&triggerName, "name", "", "event type or schedule id, when --trigger is event or schedule")
	return cmd
}

func parseTriggerKindFlag(s string) engine.TriggerKind {
	switch s {
	case "event":
		return engine.TriggerEvent
	case "schedule":
		return engine.TriggerSchedule
	case "request":
		return engine.TriggerRequest
	default:
		return engine.TriggerStart
	}
}
