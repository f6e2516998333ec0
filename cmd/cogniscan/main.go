package main

import (
	"github.com/joho/godotenv"

	"github.com/agenthands/cogniscan/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
