package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/billetera/billetera-api/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Fetch the provider's signing key set and list its keys",
	RunE:  runKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func runKeys(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	auth, err := newAuthClient(cfg)
	if err != nil {
		return err
	}

	set, err := auth.FetchKeySet(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KID\tALG\tTYPE")
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid, _ := key.KeyID()
		alg := "-"
		if a, ok := key.Algorithm(); ok {
			alg = a.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kid, alg, key.KeyType().String())
	}
	return w.Flush()
}
