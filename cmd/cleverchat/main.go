// cleverchat is a small interactive REPL over the cleverbot client.
//
// Each stdin line is sent as a message; the reply is printed and both are
// appended to the conversation history for the next exchange.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	cleverbot "github.com/quailbyte/cleverbot-go"
)

// fileSettings is the YAML settings file schema
type fileSettings struct {
	Debug               *bool   `yaml:"debug"`
	DefaultLanguage     *string `yaml:"default_language"`
	MaxRetryAttempts    *int    `yaml:"max_retry_attempts"`
	RetryBaseCooldownMS *int    `yaml:"retry_base_cooldown_ms"`
	CookieExpirationMS  *int    `yaml:"cookie_expiration_ms"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cleverchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		language    string
		retries     int
		debug       bool
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to a YAML settings file")
	pflag.StringVar(&language, "language", "", "conversation language code (default from settings)")
	pflag.IntVar(&retries, "retries", 0, "override the retry attempt count")
	pflag.BoolVar(&debug, "debug", false, "log retry diagnostics to stderr")
	pflag.BoolVar(&showVersion, "version", false, "print the client version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(cleverbot.Version)
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []cleverbot.Option{cleverbot.WithLogger(logger)}
	if debug {
		opts = append(opts, cleverbot.WithDebug())
	}
	client := cleverbot.New(opts...)
	defer client.Close()

	if configPath != "" {
		settings, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		if err := client.Configure(settings); err != nil {
			return err
		}
	}
	if retries > 0 {
		if err := client.Configure(cleverbot.Settings{MaxRetryAttempts: &retries}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var history []string
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		message := scanner.Text()
		if message == "" {
			fmt.Print("> ")
			continue
		}

		reply, err := client.Interact(ctx, message, history, language)
		if err != nil {
			if errors.Is(err, cleverbot.ErrBanned) || ctx.Err() != nil {
				return err
			}
			logger.Error("exchange failed", "error", err)
			fmt.Print("> ")
			continue
		}

		fmt.Println(reply)
		history = append(history, message, reply)
		fmt.Print("> ")
	}
	return scanner.Err()
}

// loadSettings reads a YAML settings file into a partial settings update
func loadSettings(path string) (cleverbot.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cleverbot.Settings{}, err
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return cleverbot.Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}

	settings := cleverbot.Settings{
		Debug:           fs.Debug,
		DefaultLanguage: fs.DefaultLanguage,
	}
	if fs.MaxRetryAttempts != nil {
		settings.MaxRetryAttempts = fs.MaxRetryAttempts
	}
	if fs.RetryBaseCooldownMS != nil {
		d := time.Duration(*fs.RetryBaseCooldownMS) * time.Millisecond
		settings.RetryBaseCooldown = &d
	}
	if fs.CookieExpirationMS != nil {
		d := time.Duration(*fs.CookieExpirationMS) * time.Millisecond
		settings.CookieExpiration = &d
	}
	return settings, nil
}
