package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
	"vaulta/internal/intake"
)

var (
	textFile         string
	contactName      string
	contactEmail     string
	contactPhone     string
	contactVoicemail string
	contactNotes     string
)

func init() {
	for _, c := range []*cobra.Command{createCmd, editCmd} {
		c.Flags().StringVar(&textFile, "text-file", "", "Read record text from file instead of stdin")
		c.Flags().StringVar(&contactName, "contact-name", "", "Contact name for coordinator follow-up")
		c.Flags().StringVar(&contactEmail, "contact-email", "", "Contact email for coordinator follow-up")
		c.Flags().StringVar(&contactPhone, "contact-phone", "", "Contact phone for coordinator follow-up")
		c.Flags().StringVar(&contactVoicemail, "contact-voicemail", "", "Voicemail preferences")
		c.Flags().StringVar(&contactNotes, "contact-notes", "", "Notes for the coordinator")
	}
	rootCmd.AddCommand(createCmd, showCmd, editCmd, listCmd, withdrawCmd, deleteCmd)
}

// readText loads the record text from --text-file or stdin.
func readText() (string, error) {
	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	fmt.Fprintln(os.Stderr, "Reading record text from stdin (end with EOF)...")
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func applyContact(s *intake.Session) error {
	if contactName == "" && contactEmail == "" && contactPhone == "" &&
		contactVoicemail == "" && contactNotes == "" {
		return nil
	}
	return s.SetContact(contactName, contactEmail, contactPhone,
		contactVoicemail, contactNotes)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new encrypted record",
	Long: `Prompts for a new record key, reads the record text, and stores it
sealed under the key. The key is never stored; losing it means losing
the record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		key, err := promptNewSecret("New record key")
		if err != nil {
			return err
		}
		text, err := readText()
		if err != nil {
			return err
		}

		s := intake.New(a.intakeDeps(), owner(), key)
		if err := s.SetAnswer("report_text", text); err != nil {
			return err
		}
		if err := applyContact(s); err != nil {
			return err
		}
		r, err := s.Complete(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(r.ID)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Decrypt and print a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.store.GetReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !r.OwnedBy(owner()) {
			return verr.ErrNotOwner
		}
		key, err := promptSecret("Record key")
		if err != nil {
			return err
		}
		text, err := r.Open(a.cipher, key)
		if err != nil {
			a.metrics.DecryptFailure()
			return err
		}
		a.metrics.RecordOpened()
		a.recordEval(cmd.Context(), eval.ActionView, r.OwnerID, r.ID, nil)
		fmt.Println(text)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <record-id>",
	Short: "Re-encrypt a record with new text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		key, err := promptSecret("Record key")
		if err != nil {
			return err
		}
		s, err := intake.Resume(cmd.Context(), a.intakeDeps(), args[0], owner(), key)
		if err != nil {
			return err
		}
		text, err := readText()
		if err != nil {
			return err
		}
		if err := s.SetAnswer("report_text", text); err != nil {
			return err
		}
		if err := applyContact(s); err != nil {
			return err
		}
		if _, err := s.Complete(cmd.Context()); err != nil {
			return err
		}
		logger.Info("record edited", zap.String("record_id", args[0]))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		reports, err := a.store.ReportsByOwner(cmd.Context(), owner())
		if err != nil {
			return err
		}
		for _, r := range reports {
			status := "private"
			if r.IsSubmitted() {
				status = "submitted"
			}
			if r.MatchFound {
				status += ",matched"
			}
			fmt.Printf("%s  %s  %s\n", r.ID, r.Added.Format("2006-01-02 15:04"), status)
		}
		return nil
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <record-id>",
	Short: "Withdraw a record from matching",
	Long:  `Deletes every escrow entry for the record and clears its match flag.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.store.GetReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !r.OwnedBy(owner()) {
			return verr.ErrNotOwner
		}
		if err := a.store.DeleteEntriesByReport(cmd.Context(), r.ID); err != nil {
			return err
		}
		if err := a.store.ClearMatchFound(cmd.Context(), r.ID); err != nil {
			return err
		}
		a.recordEval(cmd.Context(), eval.ActionWithdraw, r.OwnerID, r.ID, nil)
		logger.Info("record withdrawn from matching", zap.String("record_id", r.ID))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record and its escrow entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.store.GetReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !r.OwnedBy(owner()) {
			return verr.ErrNotOwner
		}
		if err := a.store.DeleteReport(cmd.Context(), r.ID); err != nil {
			return err
		}
		a.recordEval(cmd.Context(), eval.ActionDelete, r.OwnerID, r.ID, nil)
		return nil
	},
}
