package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agrintel/agri-intel-be/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive chat session",
	Long:  `Opens a terminal chat that sends questions to a running query server.`,
	Run: func(cmd *cobra.Command, args []string) {
		server, _ := cmd.Flags().GetString("server")
		if err := chat.Run(server); err != nil {
			log.Fatal().Err(err).Msg("chat session failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("server", "s", "http://localhost:8000", "query server URL")
}
