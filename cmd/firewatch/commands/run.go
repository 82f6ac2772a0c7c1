package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/app"
	"github.com/ayusman/firewatch/internal/config"
	"github.com/ayusman/firewatch/internal/display"
	"github.com/ayusman/firewatch/internal/logger"
	"github.com/ayusman/firewatch/internal/server"
	"github.com/ayusman/firewatch/internal/tray"
)

// variant selects the frame source of a run.
type variant struct {
	name  string
	start func(ctx context.Context, a *app.App) error
}

var (
	watchVariant = variant{
		name:  "watch",
		start: func(ctx context.Context, a *app.App) error { return a.Watch(ctx) },
	}
	cameraVariant = variant{
		name:  "camera",
		start: func(ctx context.Context, a *app.App) error { return a.RunCamera(ctx) },
	}
)

// run wires the configured surfaces around the detection loop and blocks
// until it ends.
//
// The loop runs on the calling goroutine so the HighGUI window stays on the
// main thread. With --tray the tray takes the main thread instead and the run
// is headless.
func run(cmd *cobra.Command, v *viper.Viper, vr variant) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.New(newAppConfig(cfg))
	log := logger.WithComponent("cli").With().Str("session", a.Session()).Logger()
	log.Info().Str("mode", vr.name).Msg("Starting firewatch")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Listen != "" {
		monitor := server.NewMonitor(a.Session())
		a.AddObserver(monitor)
		srv := server.New(server.Config{Monitor: monitor, StartedAt: time.Now()})
		g.Go(func() error {
			return srv.Run(gctx, cfg.Listen)
		})
	}

	runApp := func() error {
		defer cancel()
		return stopReason(vr.start(gctx, a))
	}

	if cfg.Tray {
		tr := tray.New()
		tr.OnQuit(cancel)
		a.AddObserver(tr)

		g.Go(runApp)
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		tr.Run()
		cancel()
		return g.Wait()
	}

	err = runApp()
	return multierr.Append(err, g.Wait())
}

// stopReason drops the precondition failures the loop has already logged. They
// end the run like a quit key does.
func stopReason(err error) error {
	if errors.Is(err, app.ErrWatchDirMissing) || errors.Is(err, app.ErrCameraOpen) {
		return nil
	}
	return err
}

func newAppConfig(cfg config.Config) app.Config {
	appCfg := app.Config{
		WatchDir:    cfg.WatchDir,
		CameraIndex: cfg.CameraIndex,
		Alarm:       alarm.NewController(alarm.NewCommandPlayer(cfg.SoundPath)),
	}
	if cfg.Headless || cfg.Tray {
		appCfg.Display = display.HeadlessFactory()
	}
	return appCfg
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze the newest recording in a folder",
		Long: `Analyze the newest .mp4 or .avi file in the watch folder.

Frames are read from the growing file as they are written. Press q to switch
to the newest file in the folder, Esc to stop.`,
		Example: `  # Watch the default folder ($HOME/Videos/DroneFeed)
  firewatch watch

  # Watch another folder without a window, serving the monitor on :8080
  firewatch watch --watch-dir /srv/drone --headless --listen :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, watchVariant)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newCameraCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camera",
		Short: "Analyze a live webcam",
		Long: `Analyze frames from a webcam until the stream ends or q/Esc is pressed.

A camera that cannot be opened is logged and ends the run.`,
		Example: `  # Use the default camera (index 1)
  firewatch camera

  # Use the built-in webcam
  firewatch camera --camera 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, cameraVariant)
		},
	}
	addRunFlags(cmd)
	return cmd
}
