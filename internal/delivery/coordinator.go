package delivery

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	verr "vaulta/internal/errors"
	"vaulta/internal/match"
	"vaulta/internal/metrics"
	"vaulta/internal/notify"
	"vaulta/internal/record"
	"vaulta/internal/store"
)

// ── Coordinator report IDs ───────────────────────────────────────────

// ReportID formats the coordinator-facing report ID from the sent
// sequence number. Match submissions carry suffix 0, full submissions
// suffix 1, matching the established coordinator convention.
func ReportID(prefix string, seq int64, isMatch bool) string {
	suffix := 1
	if isMatch {
		suffix = 0
	}
	return fmt.Sprintf("%s-%05d-%d", prefix, seq, suffix)
}

// ── Coordinator ──────────────────────────────────────────────────────

// Coordinator submits reports to the coordinating organization:
// persists the sent trace, renders the canonical document, and emails
// it out.
type Coordinator struct {
	Store   *store.Store
	Mailer  *notify.Mailer
	Log     *zap.Logger
	Metrics *metrics.Collector

	Prefix     string
	Address    string
	SignerID   string
	PrivateKey ed25519.PrivateKey
}

// SubmitFull submits one decrypted record. The caller owns key
// handling; text is the already-decrypted record text. Returns the
// coordinator report ID.
func (c *Coordinator) SubmitFull(ctx context.Context, r *record.Report, text string) (string, error) {
	if c.Address == "" {
		return "", verr.ErrNoRecipient
	}
	seq, err := c.Store.InsertSent(ctx, store.SentFull, c.Address, r.ID, nil)
	if err != nil {
		return "", err
	}
	reportID := ReportID(c.Prefix, seq, false)

	doc, err := Render(reportID, "full", []Block{{
		Ref:     r.ID,
		Text:    text,
		Contact: contactFrom(r),
	}}, c.renderOptions())
	if err != nil {
		return "", err
	}

	if err := c.Store.AttachDocument(ctx, seq, doc); err != nil {
		return "", err
	}
	if err := c.Store.MarkSubmitted(ctx, r.ID, time.Now().UTC()); err != nil {
		return "", err
	}
	if err := c.deliver(ctx, reportID, doc); err != nil {
		return reportID, err
	}
	c.Metrics.SubmissionSent()
	c.Log.Info("full report submitted",
		zap.String("report_id", reportID))
	return reportID, nil
}

// SubmitMatch submits a completed match group as one document with a
// block per escrow entry. Returns the coordinator report ID.
func (c *Coordinator) SubmitMatch(ctx context.Context, g *match.Group) (string, error) {
	if c.Address == "" {
		return "", verr.ErrNoRecipient
	}
	var entryIDs []string
	for _, e := range g.Entries {
		entryIDs = append(entryIDs, e.ID)
	}
	seq, err := c.Store.InsertSent(ctx, store.SentMatch, c.Address, "", entryIDs)
	if err != nil {
		return "", err
	}
	reportID := ReportID(c.Prefix, seq, true)

	var blocks []Block
	for _, e := range g.Entries {
		blocks = append(blocks, Block{
			Ref:     e.ID,
			Text:    g.Texts[e.ID],
			Contact: Contact{Email: e.ContactEmail},
		})
	}
	doc, err := Render(reportID, "match", blocks, c.renderOptions())
	if err != nil {
		return "", err
	}

	if err := c.Store.AttachDocument(ctx, seq, doc); err != nil {
		return "", err
	}
	if err := c.deliver(ctx, reportID, doc); err != nil {
		return reportID, err
	}
	c.Metrics.SubmissionSent()
	c.Log.Info("match submitted",
		zap.String("report_id", reportID),
		zap.Int("entries", len(g.Entries)))
	return reportID, nil
}

func (c *Coordinator) renderOptions() RenderOptions {
	return RenderOptions{
		SubmittedAt: time.Now().UTC(),
		SignerID:    c.SignerID,
		PrivateKey:  c.PrivateKey,
	}
}

func (c *Coordinator) deliver(ctx context.Context, reportID string, doc []byte) error {
	subject := "Report " + reportID
	plain := string(doc)
	htmlBody := "<pre>" + html.EscapeString(plain) + "</pre>"
	return c.Mailer.Send(ctx, []string{c.Address}, subject, plain, htmlBody)
}

func contactFrom(r *record.Report) Contact {
	return Contact{
		Name:      r.ContactName,
		Email:     r.ContactEmail,
		Phone:     r.ContactPhone,
		Voicemail: r.ContactVoicemail,
		Notes:     r.ContactNotes,
	}
}

// ── Match handling ───────────────────────────────────────────────────

// MatchNotificationTemplate is the template name used to tell owners a
// match was found on one of their entries.
const MatchNotificationTemplate = "match_notification"

// MatchHandler wires match groups into submission and owner
// notification; it satisfies match.Handler.
type MatchHandler struct {
	Coordinator *Coordinator
	Sender      *notify.Sender
	Log         *zap.Logger
}

// HandleMatch submits the group to the coordinator, then notifies each
// entry's contact address. Notification failures are logged and joined
// but do not undo the submission.
func (h *MatchHandler) HandleMatch(ctx context.Context, g *match.Group) error {
	reportID, err := h.Coordinator.SubmitMatch(ctx, g)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range g.Entries {
		if e.ContactEmail == "" {
			continue
		}
		err := h.Sender.Notify(ctx, MatchNotificationTemplate,
			[]string{e.ContactEmail},
			map[string]interface{}{"ReportID": reportID})
		if err != nil {
			h.Log.Error("match notification failed",
				zap.String("entry_id", e.ID),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return verr.Join(errs...)
}
