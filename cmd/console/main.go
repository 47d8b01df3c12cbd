package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/passage-engine/internal/logger"
	"github.com/jwebster45206/passage-engine/internal/storage"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/engine"
)

type ConsoleConfig struct {
	APIBaseURL string // Empty plays in-process
	DataDir    string
	Story      string
	DiceSeed   uint64
	Timeout    time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		cfg.Story = os.Args[1]
	}

	var g game
	if cfg.APIBaseURL != "" {
		g, err = openRemote(cfg)
	} else {
		g, err = openLocal(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, g),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*ConsoleConfig, error) {
	cfg := &ConsoleConfig{
		APIBaseURL: os.Getenv("API_BASE_URL"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		Story:      getEnv("STORY", "haragoth"),
		Timeout:    30 * time.Second,
	}
	if raw := os.Getenv("DICE_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DICE_SEED %q: %w", raw, err)
		}
		cfg.DiceSeed = seed
	}
	return cfg, nil
}

// openLocal loads the story from disk and plays it in this process.
func openLocal(cfg *ConsoleConfig) (*engine.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	s, err := storage.NewLibrary(cfg.DataDir, logger.Discard()).GetStory(ctx, cfg.Story)
	if err != nil {
		return nil, fmt.Errorf("failed to load story %q from %s: %w", cfg.Story, cfg.DataDir, err)
	}
	e, err := engine.New(s,
		engine.WithRoller(dice.NewRandom(cfg.DiceSeed)),
		engine.WithLogger(logger.Discard()))
	if err != nil {
		return nil, err
	}
	return e.NewSession()
}

func openRemote(cfg *ConsoleConfig) (*remoteSession, error) {
	client := &http.Client{
		Timeout: cfg.Timeout,
	}
	if !testConnection(client, cfg.APIBaseURL) {
		return nil, fmt.Errorf("could not connect to API at %s. Please ensure the API is running.\nTry: go run ./cmd/api", cfg.APIBaseURL)
	}
	return createRemoteSession(client, cfg.APIBaseURL, cfg.Story)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
