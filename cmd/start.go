package cmd

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agrintel/agri-intel-be/config"
	"github.com/agrintel/agri-intel-be/handler"
	"github.com/agrintel/agri-intel-be/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the query server",
	Long:  `Starts the HTTP server that answers agricultural market questions.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		sc, err := newServiceContext(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize services")
		}
		log.Info().
			Str("provider", cfg.AI.Provider).
			Str("mode", cfg.AI.Mode).
			Int("indexed_documents", sc.store.Count()).
			Msg("services initialized")

		corsHandler := handler.NewCorsHandler()
		queryHandler := handler.NewQueryHandler(sc.query)
		healthHandler := handler.NewHealthHandler()
		wsService := service.NewWebSocketService(sc.ai)

		mux := http.NewServeMux()
		mux.Handle("/query", queryHandler.HandleQuery())
		mux.Handle("/healthz", healthHandler.HandleHealth())
		mux.HandleFunc("/ws", wsService.HandleChat)

		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Msg("starting server")
		if err := http.ListenAndServe(addr, corsHandler.Middleware(mux)); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
