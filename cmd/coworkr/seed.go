package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load team members and records from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		data, err := store.DecodeSeed(f)
		if err != nil {
			return err
		}

		p, err := loadProfile()
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Seed(cmd.Context(), data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d team members and %d records\n", res.Members, res.Records)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "seed file")
}
