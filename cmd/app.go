package cmd

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"vaulta/internal/crypto"
	"vaulta/internal/delivery"
	"vaulta/internal/eval"
	"vaulta/internal/intake"
	"vaulta/internal/match"
	"vaulta/internal/metrics"
	"vaulta/internal/notify"
	"vaulta/internal/store"
)

// app holds the assembled components for one command invocation.
type app struct {
	store    *store.Store
	cipher   *crypto.Cipher
	recorder *eval.Recorder // nil when no eval salt is configured
	metrics  *metrics.Collector
	mailer   *notify.Mailer // nil when SMTP is not configured
}

// newApp validates the config and builds the component graph.
func newApp() (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pepper, err := cfg.DecodePepper()
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.New(cfg.KeyIterations, pepper)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		store:   st,
		cipher:  cipher,
		metrics: metrics.New(),
	}

	if cfg.EvalSalt != "" {
		pub, err := cfg.DecodeEvalPublicKey()
		if err != nil {
			st.Close()
			return nil, err
		}
		a.recorder, err = eval.NewRecorder(cfg.EvalSalt, pub)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	if cfg.SMTPHost != "" {
		a.mailer = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromAddress,
			cfg.SendTimeout, logger, a.metrics)
	}

	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("closing store: " + err.Error())
	}
}

// intakeDeps bundles the session dependencies.
func (a *app) intakeDeps() intake.Deps {
	return intake.Deps{
		Store:    a.store,
		Cipher:   a.cipher,
		Recorder: a.recorder,
		Log:      logger,
		Metrics:  a.metrics,
	}
}

// coordinator builds the submission coordinator, or an error when no
// delivery path is configured.
func (a *app) coordinator() (*delivery.Coordinator, error) {
	if a.mailer == nil || cfg.DeliveryAddress == "" {
		return nil, fmt.Errorf("delivery requires --delivery-address and --smtp-host (or their env/config equivalents)")
	}
	c := &delivery.Coordinator{
		Store:   a.store,
		Mailer:  a.mailer,
		Log:     logger,
		Metrics: a.metrics,
		Prefix:  cfg.ReportPrefix,
		Address: cfg.DeliveryAddress,
	}
	seed, err := cfg.DecodeSigningKey()
	if err != nil {
		return nil, err
	}
	if seed != nil {
		c.SignerID = cfg.SignerID
		c.PrivateKey = ed25519.NewKeyFromSeed(seed)
	}
	return c, nil
}

// matchHandler wires submission and owner notification into matching,
// or nil when mail is not configured.
func (a *app) matchHandler() (match.Handler, error) {
	if a.mailer == nil || cfg.DeliveryAddress == "" {
		return nil, nil
	}
	coord, err := a.coordinator()
	if err != nil {
		return nil, err
	}
	return &delivery.MatchHandler{
		Coordinator: coord,
		Sender: &notify.Sender{
			Templates: a.store,
			Mailer:    a.mailer,
			Domain:    cfg.Domain,
		},
		Log: logger,
	}, nil
}

// recordEval writes an eval row if a recorder is configured.
func (a *app) recordEval(ctx context.Context, action eval.Action, ownerID, recordID string, snapshot interface{}) {
	if a.recorder == nil {
		return
	}
	row, err := a.recorder.Row(action, ownerID, recordID, snapshot)
	if err != nil {
		logger.Warn("eval row build failed: " + err.Error())
		return
	}
	if err := a.store.AddEvalRow(ctx, row); err != nil {
		logger.Warn("eval row store failed: " + err.Error())
	}
}
