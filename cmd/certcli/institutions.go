package main

import (
	"time"

	"github.com/go-oidfed/lib/cache"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/certledger/certledger/internal"
	"github.com/certledger/certledger/storage/model"
)

var institutionsCmd = &cobra.Command{
	Use:     "institutions",
	Aliases: []string{"institution"},
	Short:   "Manage issuing institutions",
}

var institutionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all institutions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		insts, err := backs.Institutions.List()
		if err != nil {
			return err
		}
		rows := make([][]string, len(insts))
		for i, inst := range insts {
			rows[i] = []string{inst.ID, inst.Name, inst.Verification.String(), inst.CreatedAt.Format(time.RFC3339)}
		}
		printTable([]string{"ID", "Name", "Verification", "Registered"}, rows)
		return nil
	},
}

var institutionsCreateCmd = &cobra.Command{
	Use:   "create <name> <password>",
	Short: "Registers a new institution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := backs.Institutions.Create(args[0], args[1])
		if err != nil {
			return err
		}
		success("registered institution '%s' with id %s", inst.Name, inst.ID)
		return nil
	},
}

// setVerification changes the verification of an institution and drops the
// cached lookups, which embed it
func setVerification(store model.InstitutionsStore, id string, v model.Verification) (*model.Institution, error) {
	inst, err := store.SetVerification(id, v)
	if err != nil {
		return nil, err
	}
	if err = cache.Clear(internal.CacheKeyCertificateLookup); err != nil {
		log.WithError(err).Warn("could not clear lookup cache")
	}
	return inst, nil
}

func setVerificationCmd(use, short string, v model.Verification) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := setVerification(backs.Institutions, args[0], v)
			if err != nil {
				return err
			}
			success("institution '%s' is now %s", inst.Name, inst.Verification)
			return nil
		},
	}
}

func init() {
	institutionsCmd.AddCommand(
		institutionsListCmd,
		institutionsCreateCmd,
		setVerificationCmd("verify", "Marks an institution as verified", model.VerificationVerified),
		setVerificationCmd("unverify", "Revokes the verification of an institution", model.VerificationUnverified),
	)
}
