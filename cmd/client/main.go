// Package main starts the GophBank terminal client: it reads the
// configuration, restores the stored session and runs the interactive shell.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/shell"
	"github.com/atinyakov/GophBank/internal/client/storage"
	"github.com/atinyakov/GophBank/internal/config"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/session"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		var usageErr *config.UsageError
		if errors.As(err, &usageErr) {
			if errors.Is(err, flag.ErrHelp) {
				fmt.Print(usageErr.Usage)
				return
			}
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, usageErr.Usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if options.Version {
		fmt.Printf("GophBank Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Log.Sync() }()

	if err := run(options, log.Log); err != nil {
		log.Log.Error("client stopped", zap.Error(err))
		_ = log.Log.Sync()
		os.Exit(1)
	}
}

func run(options *config.Options, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second signal terminates while the shell waits for input.
		<-ctx.Done()
		stop()
	}()

	httpClient, err := api.NewHTTPClient(api.TLSOptions{
		CAFile:   options.CAFile,
		CertFile: options.CertFile,
		KeyFile:  options.KeyFile,
	})
	if err != nil {
		return fmt.Errorf("configure transport: %w", err)
	}
	client := api.New(options.APIURL, httpClient, log)

	store, closeStore, err := openStore(ctx, options)
	if err != nil {
		return err
	}
	defer closeStore()

	sess, err := session.New(ctx, client, store, log)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	log.Debug("starting shell",
		zap.String("api_url", client.BaseURL()),
		zap.String("storage", options.Storage),
	)

	sh := shell.New(os.Stdin, os.Stdout, shell.Options{
		Session:       sess,
		API:           client,
		RedirectDelay: options.RedirectDelay.Duration,
		Log:           log,
	})
	if err := sh.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openStore opens the configured session backend. The returned func
// releases it.
func openStore(ctx context.Context, options *config.Options) (storage.Store, func(), error) {
	switch options.Storage {
	case config.StorageRedis:
		rs, err := storage.DialRedis(ctx, options.RedisAddr, options.RedisPassword, options.RedisDB, options.RedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	case config.StorageMemory:
		return storage.NewMemory(), func() {}, nil
	default:
		fs, err := storage.OpenFile(options.StoragePath, options.Passphrase)
		if err != nil {
			return nil, nil, fmt.Errorf("open session file: %w", err)
		}
		return fs, func() {}, nil
	}
}
