package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage API keys in the OS keychain",
	Long: "Stores API keys in the OS keychain so they can be left out of config.yaml. " +
		"Accounts: " + strings.Join(secrets.Known, ", ") + ".",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Store a secret read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <account>",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretDelete,
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which secrets are stored",
	RunE:  runSecretList,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd, secretListCmd)
}

func knownAccount(account string) error {
	if !slices.Contains(secrets.Known, account) {
		return fmt.Errorf("unknown account %q (known: %s)", account, strings.Join(secrets.Known, ", "))
	}
	return nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	account := args[0]
	if err := knownAccount(account); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Enter value for %s: ", account)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading secret: %w", err)
	}
	if err := secrets.Set(account, strings.TrimSpace(line)); err != nil {
		return err
	}
	fmt.Printf("stored %s in keychain service %q\n", account, secrets.KeyringService)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	account := args[0]
	if err := knownAccount(account); err != nil {
		return err
	}
	if err := secrets.Delete(account); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", account)
	return nil
}

func runSecretList(cmd *cobra.Command, args []string) error {
	for _, account := range secrets.Known {
		status := "stored"
		if _, err := secrets.Get(account); errors.Is(err, secrets.ErrNotFound) {
			status = "not set"
		} else if err != nil {
			status = "error: " + err.Error()
		}
		fmt.Printf("%-20s %s\n", account, status)
	}
	return nil
}
