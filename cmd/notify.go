package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vaulta/internal/notify"
)

var (
	tmplSubject string
	tmplBody    string
	tmplFile    string
	sendTo      []string
	sendData    []string
)

func init() {
	templatePutCmd.Flags().StringVar(&tmplSubject, "subject", "", "Email subject (required)")
	templatePutCmd.Flags().StringVar(&tmplBody, "body", "", "HTML body text")
	templatePutCmd.Flags().StringVar(&tmplFile, "body-file", "", "Read HTML body from file")
	templatePutCmd.MarkFlagRequired("subject") //nolint:errcheck

	notifySendCmd.Flags().StringSliceVar(&sendTo, "to", nil, "Recipient addresses (required)")
	notifySendCmd.Flags().StringArrayVar(&sendData, "data", nil, "Template data as key=value (repeatable)")
	notifySendCmd.MarkFlagRequired("to") //nolint:errcheck

	templateCmd.AddCommand(templatePutCmd, templateGetCmd, templateListCmd)
	notifyCmd.AddCommand(notifySendCmd)
	rootCmd.AddCommand(templateCmd, notifyCmd)
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage notification templates",
}

var templatePutCmd = &cobra.Command{
	Use:   "put <name>",
	Short: "Create or replace a notification template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		body := tmplBody
		if tmplFile != "" {
			data, err := os.ReadFile(tmplFile)
			if err != nil {
				return err
			}
			body = string(data)
		}
		if body == "" {
			return fmt.Errorf("template body required (--body or --body-file)")
		}
		return a.store.PutTemplate(cmd.Context(), &notify.Template{
			Name:    args[0],
			Subject: tmplSubject,
			Body:    body,
		})
	},
}

var templateGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a notification template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		t, err := a.store.GetTemplate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Subject: %s\n\n%s\n", t.Subject, t.Body)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		names, err := a.store.ListTemplates(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send notifications",
}

var notifySendCmd = &cobra.Command{
	Use:   "send <template-name>",
	Short: "Render a template and send it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.mailer == nil {
			return fmt.Errorf("mail requires --smtp-host and --from (or their env/config equivalents)")
		}
		data := map[string]interface{}{}
		for _, kv := range sendData {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("--data %q: expected key=value", kv)
			}
			data[k] = v
		}
		sender := &notify.Sender{
			Templates: a.store,
			Mailer:    a.mailer,
			Domain:    cfg.Domain,
		}
		return sender.Notify(cmd.Context(), args[0], sendTo, data)
	},
}
