package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var adminDBPath string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage deployment admins",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Grant admin privileges to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(adminDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.GetUserByEmail(args[0])
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user not found: %s", args[0])
		}
		if err := store.GrantAdmin(user.ID, ""); err != nil {
			return err
		}
		fmt.Printf("granted admin to %s\n", user.Email)
		return nil
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Revoke admin privileges from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(adminDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.GetUserByEmail(args[0])
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user not found: %s", args[0])
		}

		admins, err := store.ListAdmins()
		if err != nil {
			return err
		}
		isAdmin := false
		for _, a := range admins {
			if a.UserID == user.ID {
				isAdmin = true
				break
			}
		}
		if isAdmin && len(admins) <= 1 {
			return fmt.Errorf("cannot revoke last admin")
		}

		if err := store.RevokeAdmin(user.ID); err != nil {
			return err
		}
		fmt.Printf("revoked admin from %s\n", user.Email)
		return nil
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployment admins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(adminDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		admins, err := store.ListAdmins()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EMAIL\tUSER ID\tSINCE")
		for _, a := range admins {
			email := "(unknown)"
			if u, err := store.GetUserByID(a.UserID); err == nil && u != nil {
				email = u.Email
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", email, a.UserID, time.Unix(a.CreatedAt, 0).UTC().Format(time.DateOnly))
		}
		return tw.Flush()
	},
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminDBPath, "db", "", "path to the server database (default: from DB_PATH)")
	adminCmd.AddCommand(adminGrantCmd, adminRevokeCmd, adminListCmd)
	rootCmd.AddCommand(adminCmd)
}
