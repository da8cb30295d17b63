package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
)

func init() {
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <record-id>",
	Short: "Submit a record to the coordinating organization",
	Long: `Decrypts the record with your key, renders the canonical submission
document, and emails it to the configured coordinator address. The
record itself stays sealed in the vault.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		coord, err := a.coordinator()
		if err != nil {
			return err
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
		a.metrics.RecordOpened()

		reportID, err := coord.SubmitFull(cmd.Context(), r, text)
		if err != nil {
			return err
		}
		a.recordEval(cmd.Context(), eval.ActionSubmit, r.OwnerID, r.ID, nil)
		fmt.Println(reportID)
		return nil
	},
}
