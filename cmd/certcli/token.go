package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/certledger/certledger/cmd/certledger/config"
	"github.com/certledger/certledger/token"
)

var tokenName string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with certificate tokens",
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verifies a certificate token with the configured secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verifier, err := token.NewVerifier([]byte(config.Get().Signing.TokenSecret))
		if err != nil {
			return err
		}
		var tok *token.Token
		if tokenName != "" {
			var outcome token.Outcome
			tok, outcome, err = verifier.CrossCheck(tokenName, args[0])
			if err != nil {
				return errors.Wrap(err, string(outcome))
			}
		} else if tok, err = verifier.Verify(args[0]); err != nil {
			return err
		}
		success("token is valid")
		printTable(
			[]string{"Field", "Value"}, [][]string{
				{"institution", tok.InstitutionID},
				{"candidate id", tok.CandidateID},
				{"candidate name", tok.CandidateName},
				{"issued at", time.Unix(tok.IssuedAt, 0).UTC().Format(time.RFC3339)},
				{"proof", tok.ExternalProofReference},
				{"minted at", tok.MintedAt.UTC().Format(time.RFC3339)},
			},
		)
		return nil
	},
}

func init() {
	tokenVerifyCmd.Flags().StringVarP(&tokenName, "name", "n", "", "cross-check the candidate name")
	tokenCmd.AddCommand(tokenVerifyCmd)
}
