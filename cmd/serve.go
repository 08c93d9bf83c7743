package main

import (
	"context"
	"net/http"
	"time"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/api"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/utils"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/video"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API: upload videos, follow their sessions, annotate single frames",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "8080", "HTTP port (overrides http.port)")
	_ = viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if missing := utils.MissingKeys(utils.RequiredConfig, viper.GetString); len(missing) > 0 {
		return errors.Errorf("missing critical configurations: %v", missing)
	}

	//create project's data root dir and every missing directory from config file
	if err := utils.EnsureDirs(viper.GetString("directory.root"), viper.GetStringMap("directory")); err != nil {
		return err
	}

	cfg, err := segment.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	reg := video.NewRegistry(cfg, nil)
	defer reg.Close()

	srv := &http.Server{
		Addr:    ":" + viper.GetString("http.port"),
		Handler: api.SetRouter(reg, cfg),
	}

	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("serve: shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("serve: listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serve")
	}
	return nil
}
