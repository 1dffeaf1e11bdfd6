package cmd

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agrintel/agri-intel-be/config"
	"github.com/agrintel/agri-intel-be/service"
	"github.com/agrintel/agri-intel-be/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index PDF market reports into the vector store",
	Long: `Reads every PDF under the configured documents directory, splits the
text into overlapping chunks, embeds them and appends the records to the
on-disk vector store. Re-running ingestion appends duplicate records.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		if dir, _ := cmd.Flags().GetString("directory"); dir != "" {
			cfg.Ingest.DocumentsDir = dir
		}

		sc, err := newServiceContext(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize services")
		}

		pdfService := service.NewPDFService(types.DocumentServiceConfig{
			MaxChunkSize: cfg.Ingest.ChunkSize,
			OverlapSize:  cfg.Ingest.ChunkOverlap,
		})
		ingest := service.NewIngestService(cfg.Ingest.DocumentsDir, pdfService, sc.embedder, sc.store)

		n, err := ingest.Run(context.Background())
		if errors.Is(err, service.ErrNoDocuments) {
			log.Warn().Str("dir", cfg.Ingest.DocumentsDir).Msg("no PDF documents found, nothing indexed")
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("ingestion failed")
		}
		log.Info().Int("records", n).Int("total", sc.store.Count()).Msg("ingestion complete")
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("directory", "d", "", "override the documents directory")
}
