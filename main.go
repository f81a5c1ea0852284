/*
Copyright © 2025 dokupintar
*/
package main

import (
	"github.com/dokupintar/dokubot-be/cmd"
	"github.com/joho/godotenv"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional outside local development
	_ = godotenv.Load()
}
