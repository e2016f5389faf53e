package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/sources"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <website>",
		Short: "Fetch resources from one website once and print them",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
	cmd.Flags().String("post-type", "", "Post type to fetch (default: the website's first post type)")
	cmd.Flags().StringSlice("fields", nil, "Fields to request, e.g. title,link (default: all)")
	cmd.Flags().Int("number", 0, "Maximum number of resources to fetch")
	cmd.Flags().String("orderby", "", "Field to order by, e.g. date")
	cmd.Flags().String("order", "", "ASC or DESC")
	cmd.Flags().Duration("timeout", 30*time.Second, "Request timeout")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := consoleLogger(cmd)
	env, _, err := loadEnvironment(cmd, logger)
	if err != nil {
		return err
	}

	registry, err := sources.NewWordPressRegistry(env.Websites, nil, logger)
	if err != nil {
		return err
	}
	client, ok := registry.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown website %q (have %v)", args[0], registry.Names())
	}

	filter := client.Filters()[0]
	if pt, _ := cmd.Flags().GetString("post-type"); pt != "" {
		filter["post_type"] = pt
	}
	if n, _ := cmd.Flags().GetInt("number"); n > 0 {
		filter["number"] = n
	}
	if v, _ := cmd.Flags().GetString("orderby"); v != "" {
		filter["orderby"] = v
	}
	if v, _ := cmd.Flags().GetString("order"); v != "" {
		filter["order"] = v
	}
	fields, _ := cmd.Flags().GetStringSlice("fields")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := contextWithTimeout(cmd, timeout)
	defer cancel()

	resources, err := client.FetchResources(ctx, filter, sources.Fields(fields))
	if err != nil {
		return err
	}

	writeOutput(cmd, resources, func() {
		printf(cmd, "%s%s%d resource(s) from %s%s (%v)\n\n", bold, cyan, len(resources), client.Name(), reset, filter["post_type"])
		for _, r := range resources {
			title, _ := r["title"].(string)
			printf(cmd, "  %s%-8s%s %s\n", yellow, r.ID(), reset, truncateText(title, 72))
		}
	})
	return nil
}
