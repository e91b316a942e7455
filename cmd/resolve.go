package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

var (
	resolveName    string
	resolveWebsite string
	resolveCity    string
	resolveState   string
	resolvePhone   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a contact email for a single business",
	Long:  "Runs the email discovery cascade for one business given its name and, optionally, website and location.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		biz := &model.CanonicalBusiness{
			Name:    resolveName,
			Website: resolveWebsite,
			City:    resolveCity,
			State:   resolveState,
			Phone:   resolvePhone,
		}

		result, err := env.Resolver.Resolve(ctx, biz)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		if result.Found() {
			zap.L().Info("email resolved",
				zap.String("business", biz.Name),
				zap.String("email", result.Email),
				zap.String("source", result.Source),
				zap.Float64("confidence", result.Confidence),
			)
		} else {
			zap.L().Info("no email found", zap.String("business", biz.Name))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "business name (required)")
	resolveCmd.Flags().StringVar(&resolveWebsite, "website", "", "known website, skips website discovery")
	resolveCmd.Flags().StringVar(&resolveCity, "city", "", "business city")
	resolveCmd.Flags().StringVar(&resolveState, "state", "", "business state")
	resolveCmd.Flags().StringVar(&resolvePhone, "phone", "", "business phone")
	resolveCmd.MarkFlagRequired("name") //nolint:errcheck
	rootCmd.AddCommand(resolveCmd)
}
