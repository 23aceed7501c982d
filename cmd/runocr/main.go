package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/ocr/mistral"
	"github.com/joseph-ayodele/mocr/internal/ocr/textlayer"
	"github.com/joseph-ayodele/mocr/internal/pdfimages"
)

// runocr sends one PDF through the configured OCR engine and prints the
// response as JSON on stdout. Logs go to stderr.
func main() {
	engineName := flag.String("engine", "", "OCR engine: mistral or textlayer")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [--engine mistral|textlayer] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	if *engineName != "" {
		cfg.OCR.Engine = *engineName
	}
	if err := cfg.Validate(false); err != nil {
		fmt.Println(common.UserMessage(err))
		os.Exit(1)
	}

	var engine ocr.Engine
	if cfg.OCR.Engine == common.EngineTextLayer {
		engine = textlayer.NewEngine(pdfimages.NewExtractor(cfg.Extract.MinSide, logger), logger)
	} else {
		client := mistral.NewClient(mistral.Config{
			APIKey:             cfg.OCR.APIKey,
			BaseURL:            cfg.OCR.BaseURL,
			Model:              cfg.OCR.Model,
			Timeout:            cfg.OCR.Timeout,
			IncludeImageBase64: cfg.OCR.IncludeImageBase64,
			SignedURLExpiry:    cfg.OCR.SignedURLExpiry,
		}, logger)
		engine = ocr.NewRemoteEngine(client, client.Model(), logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout+time.Minute)
	defer cancel()

	start := time.Now()
	res, err := engine.Recognize(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("ocr failed", "path", path, "engine", engine.Name(), "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}
	logger.Info("ocr OK",
		"path", path,
		"engine", engine.Name(),
		"pages", len(res.Pages),
		"images", res.ImageCount(),
		"duration_ms", dur.Milliseconds(),
	)

	if len(res.Raw) > 0 {
		if _, err := os.Stdout.Write(append(res.Raw, '\n')); err != nil {
			os.Exit(1)
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode response", "error", err)
		os.Exit(1)
	}
}
