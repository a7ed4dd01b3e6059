package cmd

import (
	"fmt"
	"strconv"

	"github.com/oagudo/txscope/internal/users"

	"github.com/spf13/cobra"
)

type (
	addUserFlags struct {
		account  string
		password string
		email    string
	}

	changePasswordFlags struct {
		password  string
		createdBy string
	}
)

func (c *Cmd) getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the users and user_history tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := users.Migrate(cmd.Context(), c.txm, c.exec, c.dialect); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "schema created")
			return nil
		},
	}
}

func (c *Cmd) getAddUserCmd() *cobra.Command {
	var flags addUserFlags
	addCmd := &cobra.Command{
		Use:   "add-user",
		Short: "Inserts a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := users.User{Account: flags.account, Password: flags.password, Email: flags.email}
			return c.service.Insert(cmd.Context(), u)
		},
	}
	addCmd.Flags().StringVarP(&flags.account, "account", "a", "", "account name")
	addCmd.Flags().StringVarP(&flags.password, "password", "p", "", "initial password")
	addCmd.Flags().StringVarP(&flags.email, "email", "e", "", "email address")
	_ = addCmd.MarkFlagRequired("account")
	_ = addCmd.MarkFlagRequired("password")
	_ = addCmd.MarkFlagRequired("email")
	return addCmd
}

func (c *Cmd) getShowUserCmd() *cobra.Command {
	var history bool
	showCmd := &cobra.Command{
		Use:   "show-user [id]",
		Short: "Prints one user, or every user when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				all, err := c.service.FindAll(cmd.Context())
				if err != nil {
					return err
				}
				for _, u := range all {
					c.printUser(u)
				}
				return nil
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := c.service.FindByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.printUser(u)

			if !history {
				return nil
			}
			entries, err := c.service.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, h := range entries {
				fmt.Fprintf(c.out, "  %s\tchanged by %s\n", h.CreatedAt.Format("2006-01-02 15:04:05"), h.CreatedBy)
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&history, "history", false, "also print the password history")
	return showCmd
}

func (c *Cmd) getChangePasswordCmd() *cobra.Command {
	var flags changePasswordFlags
	changeCmd := &cobra.Command{
		Use:   "change-password <id>",
		Short: "Changes a password and records it in the user history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.service.ChangePassword(cmd.Context(), id, flags.password, flags.createdBy); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "password of user %d changed\n", id)
			return nil
		},
	}
	changeCmd.Flags().StringVarP(&flags.password, "password", "p", "", "new password")
	changeCmd.Flags().StringVar(&flags.createdBy, "by", "", "author of the change")
	_ = changeCmd.MarkFlagRequired("password")
	return changeCmd
}

func (c *Cmd) printUser(u users.User) {
	fmt.Fprintf(c.out, "%d\t%s\t%s\n", u.ID, u.Account, u.Email)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return id, nil
}
