package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"taskflow/internal/app"
	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

// env - состояние одного запуска CLI; ядро собирается лениво
type env struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	app    *app.App
	svc    app.Services
	holder *auth.Holder
}

func main() {
	e := &env{holder: auth.NewHolder()}

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "taskflow - задачи, теги, календарь и фокус-таймер",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.InitCLI(e.verbose); err != nil {
				return err
			}
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "путь к config.yml")
	rootCmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "подробный лог")

	rootCmd.AddCommand(signupCmd(e))
	rootCmd.AddCommand(loginCmd(e))
	rootCmd.AddCommand(logoutCmd(e))
	rootCmd.AddCommand(addCmd(e))
	rootCmd.AddCommand(listCmd(e))
	rootCmd.AddCommand(doneCmd(e))
	rootCmd.AddCommand(statusCmd(e))
	rootCmd.AddCommand(trashCmd(e))
	rootCmd.AddCommand(restoreCmd(e))
	rootCmd.AddCommand(purgeCmd(e))
	rootCmd.AddCommand(tagCmd(e))
	rootCmd.AddCommand(statsCmd(e))
	rootCmd.AddCommand(calendarCmd(e))
	rootCmd.AddCommand(focusCmd(e))
	rootCmd.AddCommand(configCmd(e))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("ошибка: ")+describe(err))
		e.close()
		os.Exit(1)
	}
}

// core поднимает хранилище и сервисы при первом обращении
func (e *env) core(ctx context.Context) (app.Services, error) {
	if e.app != nil {
		return e.svc, nil
	}
	a := app.New(e.cfg)
	if err := a.InitCore(ctx); err != nil {
		a.Shutdown()
		return app.Services{}, err
	}
	e.app = a
	e.svc = a.Services()
	return e.svc, nil
}

func (e *env) close() {
	if e.app != nil {
		e.app.Shutdown()
		e.app = nil
	}
	logger.Sync()
}
