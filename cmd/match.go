package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
	"vaulta/internal/match"
)

var (
	matchContactEmail string
	matchStats        bool
)

func init() {
	matchEnterCmd.Flags().StringVar(&matchContactEmail, "contact-email", "", "Address to notify if a match is found (required)")
	matchEnterCmd.MarkFlagRequired("contact-email") //nolint:errcheck
	matchRunCmd.Flags().BoolVar(&matchStats, "stats", false, "Print a metrics snapshot after the run")

	matchCmd.AddCommand(matchEnterCmd, matchRunCmd, matchStatusCmd)
	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Perpetrator matching",
}

var matchEnterCmd = &cobra.Command{
	Use:   "enter <record-id>",
	Short: "Enter a record into matching under a perpetrator identifier",
	Long: `Seals an escrowed copy of the record under the identifier you
provide. The identifier is held only until the next matching run; a
match is declared when entries from two or more distinct owners
decrypt under the same identifier.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if !a.cipher.HasPepper() {
			return fmt.Errorf("matching requires a server pepper (VAULTA_PEPPER)")
		}

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
		identifier, err := promptSecret("Perpetrator identifier")
		if err != nil {
			return err
		}
		if identifier == "" {
			return fmt.Errorf("identifier must not be empty")
		}

		entry := match.NewEntry(r, matchContactEmail)
		if err := entry.Seal(a.cipher, text, identifier); err != nil {
			return err
		}
		if err := a.store.AddEntry(cmd.Context(), entry); err != nil {
			return err
		}
		a.metrics.EntryEscrowed()
		a.recordEval(cmd.Context(), eval.ActionEnterMatching, r.OwnerID, r.ID, nil)
		fmt.Println(entry.ID)
		return nil
	},
}

var matchStatusCmd = &cobra.Command{
	Use:   "status <record-id>",
	Short: "Show a record's escrow entries",
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
		entries, err := a.store.EntriesByReport(cmd.Context(), r.ID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			state := "pending"
			if e.Seen {
				state = "seen"
			}
			fmt.Printf("%s  %s  %s\n", e.ID, e.Added.Format("2006-01-02 15:04"), state)
		}
		if r.MatchFound {
			fmt.Println("match found")
		}
		return nil
	},
}

var matchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one matching pass over the escrow",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if !a.cipher.HasPepper() {
			return fmt.Errorf("matching requires a server pepper (VAULTA_PEPPER)")
		}

		handler, err := a.matchHandler()
		if err != nil {
			return err
		}
		if handler == nil {
			logger.Warn("mail not configured; matches will be recorded but not delivered")
		}

		engine := match.NewEngine(a.store, a.cipher, handler,
			logger, a.metrics, cfg.MatchWorkers)
		found, err := engine.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("matches found: %d\n", found)

		if matchStats {
			js, err := a.metrics.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(js))
		}
		return nil
	},
}
