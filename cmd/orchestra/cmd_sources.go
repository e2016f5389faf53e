package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/sources"
)

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the websites configured for the environment",
		Args:  cobra.NoArgs,
		RunE:  runSources,
	}
}

func runSources(cmd *cobra.Command, args []string) error {
	env, name, err := loadEnvironment(cmd, consoleLogger(cmd))
	if err != nil {
		return err
	}

	type sourceDetail struct {
		Name      string   `json:"name"`
		URL       string   `json:"url"`
		Endpoint  string   `json:"endpoint"`
		Interval  string   `json:"interval"`
		PostTypes []string `json:"post_types"`
		Languages []string `json:"languages,omitempty"`
	}
	details := make([]sourceDetail, 0, len(env.Websites))
	for _, w := range env.Websites {
		c := sources.NewClient(w)
		details = append(details, sourceDetail{
			Name:      c.Name(),
			URL:       c.URL(),
			Endpoint:  sources.Endpoint(c),
			Interval:  c.UpdateFrequency().String(),
			PostTypes: c.ResourceTypes(),
			Languages: c.Languages(),
		})
	}

	writeOutput(cmd, details, func() {
		printf(cmd, "%s%sSources for %s%s\n\n", bold, cyan, name, reset)
		for _, d := range details {
			printf(cmd, "  %s%s%s\n", bold, d.Name, reset)
			printf(cmd, "    url:        %s\n", d.URL)
			printf(cmd, "    endpoint:   %s\n", d.Endpoint)
			printf(cmd, "    every:      %s\n", d.Interval)
			printf(cmd, "    post types: %s\n", strings.Join(d.PostTypes, ", "))
			if len(d.Languages) > 0 {
				printf(cmd, "    languages:  %s\n", strings.Join(d.Languages, ", "))
			}
		}
	})
	return nil
}
