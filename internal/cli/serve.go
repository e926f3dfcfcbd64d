package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"gapscan/internal/httpapi"
	"gapscan/internal/metrics"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "override server.host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(true)
	a, err := buildApp(ctx, m)
	if err != nil {
		return err
	}
	defer closeApp(a)

	sc := a.Config.Server
	if serveHost != "" {
		sc.Host = serveHost
	}
	if servePort != 0 {
		sc.Port = servePort
	}
	if a.Config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpapi.NewServer(httpapi.Config{
		Host:           sc.Host,
		Port:           sc.Port,
		MaxUploadBytes: int64(sc.MaxUploadMB) << 20,
		CORSOrigins:    sc.CORSOrigins,
	}, a.Service, m, a.Logger.With("component", "http"))
	return srv.Run(ctx)
}
