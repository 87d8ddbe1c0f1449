package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/certledger/certledger/cmd/certledger/config"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
)

var issuanceStates []string

var issuancesCmd = &cobra.Command{
	Use:   "issuances",
	Short: "Inspect and reconcile issuance sagas",
}

var issuancesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists issuance sagas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		states := make([]model.IssuanceState, len(issuanceStates))
		for i, s := range issuanceStates {
			state, err := model.ParseIssuanceState(s)
			if err != nil {
				return err
			}
			states[i] = state
		}
		sagas, err := backs.Issuances.List(states...)
		if err != nil {
			return err
		}
		rows := make([][]string, len(sagas))
		for i, saga := range sagas {
			rows[i] = []string{
				saga.LedgerAddress,
				saga.State.String(),
				saga.InstitutionID,
				saga.CandidateID,
				saga.FailedStep,
				saga.UpdatedAt.Format(time.RFC3339),
			}
		}
		printTable([]string{"Ledger Address", "State", "Institution", "Candidate", "Failed Step", "Updated"}, rows)
		return nil
	},
}

var issuancesReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Runs a single reconciliation of stale issuance sagas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config.Get()
		issuer, err := token.NewIssuer([]byte(c.Signing.TokenSecret))
		if err != nil {
			return err
		}
		bridge, closeBridge, err := c.Ledger.Bridge()
		if err != nil {
			return err
		}
		defer func() { _ = closeBridge() }()
		o := issuance.NewOrchestrator(
			issuer, bridge, issuance.Stores{
				Institutions: backs.Institutions,
				Certificates: backs.Certificates,
				Issuances:    backs.Issuances,
			},
			issuance.WithLedgerTimeout(c.Ledger.Timeout.Duration()),
		)
		summary, err := issuance.NewReconciler(o, backs.KV, c.Issuance.Reconcile.GracePeriod.Duration()).
			Run(cmd.Context())
		if err != nil {
			return err
		}
		success("reconciliation finished")
		printTable(
			[]string{"Scanned", "Resumed", "Failed", "Partial", "Errors"}, [][]string{
				{
					strconv.Itoa(summary.Scanned),
					strconv.Itoa(summary.Resumed),
					strconv.Itoa(summary.Failed),
					strconv.Itoa(summary.Partial),
					strconv.Itoa(summary.Errors),
				},
			},
		)
		return nil
	},
}

func init() {
	issuancesListCmd.Flags().StringSliceVarP(&issuanceStates, "state", "s", nil, "only list sagas in these states")
	issuancesCmd.AddCommand(issuancesListCmd, issuancesReconcileCmd)
}
