package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/place-resolver/internal/model"
	"github.com/sells-group/place-resolver/internal/resolver"
)

var (
	resolveOriginLat float64
	resolveOriginLng float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <destination>",
	Short: "Resolve a single destination and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		env, err := initResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.ResolveRequest{
			OriginLat:   resolveOriginLat,
			OriginLng:   resolveOriginLng,
			Destination: args[0],
		}

		place, err := env.Service.Resolve(cmd.Context(), req)
		if errors.Is(err, resolver.ErrUnresolved) {
			zap.L().Warn("destination could not be resolved",
				zap.String("destination", req.Destination),
			)
			place = &model.ResolvedPlace{
				Destination: req.Destination,
				Source:      model.SourceNotFound,
			}
		} else if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(place)
	},
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveOriginLat, "origin-lat", 0, "origin latitude")
	resolveCmd.Flags().Float64Var(&resolveOriginLng, "origin-lng", 0, "origin longitude")
	resolveCmd.MarkFlagRequired("origin-lat") //nolint:errcheck
	resolveCmd.MarkFlagRequired("origin-lng") //nolint:errcheck
	rootCmd.AddCommand(resolveCmd)
}
