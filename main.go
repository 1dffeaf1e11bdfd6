package main

import (
	"github.com/joho/godotenv"

	"github.com/agrintel/agri-intel-be/cmd"
)

func main() {
	// A missing .env file is fine; config falls back to real env vars.
	_ = godotenv.Load()
	cmd.Execute()
}
