package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/schema"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	env, _ := cmd.Flags().GetString("environment")
	path, _ := cmd.Flags().GetString("config")

	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}

	type validateData struct {
		Config      string                   `json:"config"`
		Environment string                   `json:"environment"`
		Valid       bool                     `json:"valid"`
		Errors      []schema.ValidationError `json:"errors"`
	}
	data := validateData{Config: path, Environment: env, Valid: true, Errors: []schema.ValidationError{}}

	_, err = config.Resolve(doc, env, consoleLogger(cmd))
	var failure *config.ValidationFailure
	switch {
	case errors.As(err, &failure):
		data.Valid = false
		data.Errors = failure.Errors
	case err != nil:
		return err
	}

	writeOutput(cmd, data, func() {
		if data.Valid {
			printf(cmd, "%s%s✓%s %s is valid (environment %s%s%s)\n", bold, green, reset, path, cyan, env, reset)
			return
		}
		printf(cmd, "%s%s✗%s %s has %d error(s):\n\n", bold, red, reset, path, len(data.Errors))
		for _, e := range data.Errors {
			printf(cmd, "  %s%s%s %s\n", yellow, e.Property, reset, e.Message)
		}
	})

	if !data.Valid {
		return fmt.Errorf("%s: %w", path, config.ErrValidation)
	}
	return nil
}
