package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replaysMike/Binner-sub003/internal/bom/client"
	"github.com/replaysMike/Binner-sub003/internal/bom/session"
)

var (
	Version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("binner")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "binnerctl",
		Short:         "Inspect and edit Binner BOM projects",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("url", "http://localhost:8080", "API base URL (BINNER_URL)")
	root.PersistentFlags().String("token", "", "JWT bearer token (BINNER_TOKEN)")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	_ = v.BindPFlag("url", root.PersistentFlags().Lookup("url"))
	_ = v.BindPFlag("token", root.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))

	app := &app{v: v}
	root.AddCommand(
		newShowCmd(app),
		newEditCmd(app),
		newMoveCmd(app),
		newDeleteCmd(app),
		newProduceCmd(app),
		newDownloadCmd(app),
		newSearchCmd(app),
		newWatchCmd(app),
	)
	return root
}

// app builds API clients from the resolved connection settings.
type app struct {
	v *viper.Viper
}

func (a *app) client() *client.Client {
	return client.New(a.v.GetString("url"), a.v.GetString("token"))
}

func (a *app) timeout() time.Duration {
	return a.v.GetDuration("timeout")
}

// open loads the named project into a new session.
func (a *app) open(ctx context.Context, name string) (*session.Session, error) {
	s := session.New(a.client())
	if err := s.Load(ctx, name); err != nil {
		if client.IsNotFound(err) {
			return nil, fmt.Errorf("project %q not found", name)
		}
		return nil, err
	}
	return s, nil
}
