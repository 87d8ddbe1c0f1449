package main

import (
	"time"

	"github.com/spf13/cobra"
)

var certificatesInstitution string

var certificatesCmd = &cobra.Command{
	Use:     "certificates",
	Aliases: []string{"certs"},
	Short:   "Inspect issued certificates",
}

var certificatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists issued certificates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		certs, err := backs.Certificates.List(certificatesInstitution)
		if err != nil {
			return err
		}
		rows := make([][]string, len(certs))
		for i, cert := range certs {
			rows[i] = []string{
				cert.ID,
				cert.InstitutionID,
				cert.CandidateID,
				cert.CandidateName,
				time.Unix(cert.IssuedAt, 0).UTC().Format(time.DateOnly),
				cert.LedgerAddress,
			}
		}
		printTable([]string{"ID", "Institution", "Candidate", "Name", "Issued", "Ledger Address"}, rows)
		return nil
	},
}

func init() {
	certificatesListCmd.Flags().StringVarP(
		&certificatesInstitution, "institution", "i", "", "only list certificates of this institution",
	)
	certificatesCmd.AddCommand(certificatesListCmd)
}
