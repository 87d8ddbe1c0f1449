package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var operatorsCmd = &cobra.Command{
	Use:     "operators",
	Aliases: []string{"operator"},
	Short:   "Manage admin api operators",
}

var operatorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all operators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ops, err := backs.Operators.List()
		if err != nil {
			return err
		}
		rows := make([][]string, len(ops))
		for i, op := range ops {
			rows[i] = []string{op.Username, strconv.FormatBool(op.Disabled), op.CreatedAt.Format(time.RFC3339)}
		}
		printTable([]string{"Username", "Disabled", "Created"}, rows)
		return nil
	},
}

var operatorsCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Creates an operator; the admin api requires authentication once one exists",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := backs.Operators.Create(args[0], args[1])
		if err != nil {
			return err
		}
		success("created operator '%s'", op.Username)
		return nil
	},
}

func setDisabledCmd(use, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backs.Operators.SetDisabled(args[0], disabled); err != nil {
				return err
			}
			success("operator '%s' %sd", args[0], use)
			return nil
		},
	}
}

func init() {
	operatorsCmd.AddCommand(
		operatorsListCmd,
		operatorsCreateCmd,
		setDisabledCmd("disable", "Disables an operator", true),
		setDisabledCmd("enable", "Enables a disabled operator", false),
	)
}
