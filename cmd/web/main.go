package main

import (
	"context"
	"log/slog"
	"os"

	"gradebook/internal/app"
	"gradebook/internal/infrastructure"
)

func main() {
	application, err := app.NewApplication(context.Background())
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run()
	infrastructure.CloseLogFile()
	if err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
