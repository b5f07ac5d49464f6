package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/search-eval/internal/auth"
	"github.com/sells-group/search-eval/internal/relevance"
	"github.com/sells-group/search-eval/internal/store"
	"github.com/sells-group/search-eval/pkg/dataverse"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func initAuthManager() (*auth.Manager, error) {
	creds, err := auth.NewCredentialStore(
		cfg.Auth.CacheFile,
		cfg.Auth.LegacyTokenFile,
		time.Duration(cfg.Auth.FreshnessMinutes)*time.Minute,
	)
	if err != nil {
		return nil, eris.Wrap(err, "init credential store")
	}

	oauth := auth.NewOAuthClient(cfg.Auth.TenantID, cfg.Auth.ClientID, cfg.Auth.Resource)
	return auth.NewManager(creds, oauth, auth.StdoutPrompter), nil
}

func initSearchClient() dataverse.Client {
	return dataverse.NewClient(dataverse.Options{
		BaseURL:        cfg.Search.BaseURL,
		Skill:          cfg.Search.Skill,
		QueryLanguage:  cfg.Search.QueryLanguage,
		ServiceRootURL: cfg.Search.ServiceRootURL,
		UserID:         cfg.Search.UserID,
		OrganizationID: cfg.Search.OrganizationID,
		Timeout:        time.Duration(cfg.Search.TimeoutSecs) * time.Second,
	})
}

func initScorer() (*relevance.Scorer, error) {
	scoringCfg := relevance.DefaultConfig()
	if cfg.Scoring.TablesFile != "" {
		if err := relevance.LoadTables(&scoringCfg, cfg.Scoring.TablesFile); err != nil {
			return nil, eris.Wrap(err, "load scoring tables")
		}
	}
	return relevance.NewScorer(scoringCfg), nil
}
