package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/job"
)

var (
	discoverQuery    string
	discoverLocation string
	discoverCount    int
	discoverNoEmail  bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover businesses and resolve contact emails",
	Long:  "Queries the configured listing sources, merges duplicate listings into canonical businesses, and runs the email discovery cascade for each one.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		params := job.Params{
			Query:       discoverQuery,
			Location:    discoverLocation,
			TargetCount: discoverCount,
		}

		onProgress := func(message string, fraction float64) {
			zap.L().Info("progress",
				zap.String("stage", message),
				zap.Float64("fraction", fraction),
			)
		}

		if discoverNoEmail {
			dres, err := env.Runner.Discover(ctx, params, onProgress)
			if err != nil {
				return eris.Wrap(err, "discover")
			}
			unique := dres.Unique
			if len(unique) > params.TargetCount {
				unique = unique[:params.TargetCount]
			}
			zap.L().Info("discovery complete",
				zap.Int("raw_listings", dres.Stats.InputCount),
				zap.Int("businesses", len(unique)),
			)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(unique)
		}

		result, err := env.Runner.Run(ctx, params, onProgress)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		found := 0
		for _, b := range result.Businesses {
			if b.Email != nil && b.Email.Found() {
				found++
			}
		}
		zap.L().Info("job complete",
			zap.Int("businesses", len(result.Businesses)),
			zap.Int("emails_found", found),
			zap.Duration("duration", result.Duration),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Businesses)
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverQuery, "query", "", "business category to search for (required)")
	discoverCmd.Flags().StringVar(&discoverLocation, "location", "", "city/region to search in (required)")
	discoverCmd.Flags().IntVar(&discoverCount, "count", 20, "number of businesses to return")
	discoverCmd.Flags().BoolVar(&discoverNoEmail, "no-email", false, "skip the email cascade, output deduplicated listings only")
	discoverCmd.MarkFlagRequired("query")    //nolint:errcheck
	discoverCmd.MarkFlagRequired("location") //nolint:errcheck
	rootCmd.AddCommand(discoverCmd)
}
