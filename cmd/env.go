package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cleaner/internal/lead"
	"github.com/sells-group/lead-cleaner/internal/pipeline"
	"github.com/sells-group/lead-cleaner/internal/store"
	"github.com/sells-group/lead-cleaner/pkg/anthropic"
	"github.com/sells-group/lead-cleaner/pkg/doh"
	"github.com/sells-group/lead-cleaner/pkg/drive"
	"github.com/sells-group/lead-cleaner/pkg/mailer"
)

// cleanerEnv holds the initialized store and processor shared by the clean
// and serve commands.
type cleanerEnv struct {
	Store     store.Store
	Processor *pipeline.Processor
}

// Close releases resources held by the environment.
func (e *cleanerEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "lead-cleaner.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initUploader() (drive.Uploader, error) {
	switch cfg.Upload.Backend {
	case "drive":
		if cfg.Upload.Drive.Token == "" {
			return nil, eris.New("drive token is required (CLEANER_UPLOAD_DRIVE_TOKEN)")
		}
		return drive.NewClient(cfg.Upload.Drive.Token, cfg.Upload.Drive.FolderID), nil
	case "ftp":
		if cfg.Upload.FTP.Host == "" {
			return nil, eris.New("ftp host is required (CLEANER_UPLOAD_FTP_HOST)")
		}
		return drive.NewFTPUploader(drive.FTPOptions{
			Host:     cfg.Upload.FTP.Host,
			User:     cfg.Upload.FTP.User,
			Password: cfg.Upload.FTP.Password,
			Dir:      cfg.Upload.FTP.Dir,
			LinkBase: cfg.Upload.FTP.LinkBase,
		}), nil
	default:
		return nil, eris.Errorf("unsupported upload backend: %s", cfg.Upload.Backend)
	}
}

func initResolver() (*lead.Resolver, error) {
	if cfg.Resolver.RulesPath == "" {
		return lead.NewResolver(), nil
	}
	return lead.NewResolverFromFile(cfg.Resolver.RulesPath)
}

// initEnv sets up the store, all clients, and the dataset processor. Callers
// should defer env.Close().
func initEnv(ctx context.Context) (*cleanerEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (CLEANER_ANTHROPIC_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	uploader, err := initUploader()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	resolver, err := initResolver()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var notifier mailer.Sender
	if cfg.Mail.Host != "" && len(cfg.Mail.Recipients) > 0 {
		notifier = mailer.NewSMTPSender(mailer.SMTPOptions{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	} else {
		zap.L().Debug("mail not configured, notifications disabled")
	}

	llm := anthropic.NewClient(cfg.Anthropic.Key)
	providers := pipeline.NewProviderClassifier(
		doh.NewClient(doh.WithBaseURL(cfg.Lookup.DoHBaseURL)),
		nil,
		pipeline.ProviderClassifierOptions{
			Timeout: time.Duration(cfg.Lookup.TimeoutSecs) * time.Second,
			Delay:   time.Duration(cfg.Lookup.DelayMillis) * time.Millisecond,
		},
	)

	processor := pipeline.NewProcessor(llm, providers, uploader, notifier, resolver, pipeline.ProcessorOptions{
		BundleSize: cfg.Bundle.Size,
		Classify: pipeline.LeadClassifierOptions{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Classify.MaxTokens,
			Timeout:     time.Duration(cfg.Classify.TimeoutSecs) * time.Second,
			MaxAttempts: cfg.Classify.MaxAttempts,
			RetryDelay:  time.Duration(cfg.Classify.RetryDelaySecs) * time.Second,
		},
		Recipients: cfg.Mail.Recipients,
	})

	return &cleanerEnv{Store: st, Processor: processor}, nil
}
