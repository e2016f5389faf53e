package config

import (
	"slices"

	"github.com/IIP-Design/orchestra/internal/schema"
)

// Environments are the top-level keys a document may define. At least one
// must be present.
var Environments = []string{"production", "test", "development"}

// SupportedClients are the SQL drivers the database section may name.
var SupportedClients = []any{"mysql", "mysql2", "mariasql"}

const (
	msgClient   = `Must provide a valid MySQL compatible client, such as "mysql", "mysql2", "mariasql"`
	msgHost     = "Must provide a database host ip"
	msgUser     = "Must provide a database username"
	msgPassword = "Must provide a database password"
	msgDatabase = "Must provide a database name"
	msgPoolMin  = "Provide a minimum number {number} of pooled database connections"
	msgPoolMax  = "Provide a maximum number {number} of pooled database connections"
	msgTable    = "Provide a tableName {string} for database migrations"
	msgMigDir   = "Provide a directory {string} for database migration scripts"
	msgSeeds    = "If provided, it must be an object with at least a `directory` key and a path {string} as the value. See docs/config-example.yaml."
)

func str() schema.Rule         { return schema.Rule{Type: schema.String} }
func optStr() schema.Rule      { return schema.Rule{Type: schema.String, Optional: true} }
func nonEmptyStr() schema.Rule { return schema.Rule{Type: schema.String, MinLength: schema.Int(1)} }

func withError(r schema.Rule, msg string) schema.Rule {
	r.Error = msg
	return r
}

func databaseRule() schema.Rule {
	return schema.Rule{
		Type: schema.Object,
		Properties: schema.Props(
			schema.P("client", schema.Rule{Type: schema.String, Eq: SupportedClients, Error: msgClient}),
			schema.P("connection", schema.Rule{
				Type: schema.Object,
				Properties: schema.Props(
					schema.P("host", withError(str(), msgHost)),
					schema.P("port", optStr()),
					schema.P("user", withError(str(), msgUser)),
					schema.P("password", withError(str(), msgPassword)),
					schema.P("database", withError(str(), msgDatabase)),
				),
			}),
			schema.P("pool", schema.Rule{
				Type:     schema.Object,
				Optional: true,
				Properties: schema.Props(
					schema.P("min", schema.Rule{Type: schema.Number, Optional: true, Integer: true, Gte: schema.Float(0), Error: msgPoolMin}),
					schema.P("max", schema.Rule{Type: schema.Number, Optional: true, Integer: true, Gte: schema.Float(1), Error: msgPoolMax}),
				),
			}),
			schema.P("migrations", schema.Rule{
				Type:     schema.Object,
				Optional: true,
				Properties: schema.Props(
					schema.P("tableName", withError(optStr(), msgTable)),
					schema.P("directory", withError(optStr(), msgMigDir)),
					schema.P("extension", optStr()),
					schema.P("disableTransactions", schema.Rule{Type: schema.Boolean, Optional: true}),
				),
			}),
			schema.P("seeds", schema.Rule{
				Type:     schema.Object,
				Optional: true,
				SomeKeys: []string{"directory"},
				Error:    msgSeeds,
				Properties: schema.Props(
					schema.P("directory", schema.Rule{Type: schema.String, Optional: true, MinLength: schema.Int(1), Error: msgSeeds}),
				),
			}),
		),
	}
}

func websitesRule() schema.Rule {
	stringList := schema.Rule{Type: schema.String}
	return schema.Rule{
		Type:      schema.Array,
		MinLength: schema.Int(1),
		Items: &schema.Rule{
			Type: schema.Object,
			Properties: schema.Props(
				schema.P("name", nonEmptyStr()),
				schema.P("username", nonEmptyStr()),
				schema.P("password", nonEmptyStr()),
				schema.P("url", nonEmptyStr()),
				schema.P("api_url", optStr()),
				schema.P("xmlrpc", optStr()),
				schema.P("languages", schema.Rule{Type: schema.Array, Optional: true, Items: &stringList}),
				schema.P("update_frequency", schema.Rule{Type: schema.Number, Optional: true, Integer: true, Gte: schema.Float(1)}),
				schema.P("post_types", schema.Rule{Type: schema.Array, Optional: true, MinLength: schema.Int(1), Items: &stringList}),
			),
		},
	}
}

func loggingRule() schema.Rule {
	return schema.Rule{
		Type: schema.Object,
		Properties: schema.Props(
			schema.P("debug_file", str()),
			schema.P("error_file", str()),
			schema.P("level", schema.Rule{
				Type:     schema.String,
				Optional: true,
				Eq:       []any{"debug", "info", "warn", "error"},
			}),
		),
	}
}

func publishRule() schema.Rule {
	brokers := nonEmptyStr()
	return schema.Rule{
		Type:     schema.Object,
		Optional: true,
		Properties: schema.Props(
			schema.P("brokers", schema.Rule{Type: schema.Array, MinLength: schema.Int(1), Items: &brokers}),
			schema.P("topic", nonEmptyStr()),
		),
	}
}

// EnvironmentRule is the constraint tree for a single environment section.
func EnvironmentRule() schema.Rule {
	return schema.Rule{
		Type: schema.Object,
		Properties: schema.Props(
			schema.P("database", databaseRule()),
			schema.P("websites", websitesRule()),
			schema.P("logging", loggingRule()),
			schema.P("publish", publishRule()),
		),
	}
}

// Rules is the constraint tree for a whole configuration document. Extra
// environment names are validated like the standard ones when present.
func Rules(extra ...string) schema.Rule {
	root := schema.Rule{Type: schema.Object, SomeKeys: Environments}
	for _, env := range environmentNames(extra) {
		r := EnvironmentRule()
		r.Optional = true
		root.Properties = append(root.Properties, schema.P(env, r))
	}
	return root
}

// environmentNames returns the standard environments followed by any extra
// names, without duplicates.
func environmentNames(extra []string) []string {
	names := append([]string(nil), Environments...)
	for _, e := range extra {
		if !slices.Contains(names, e) {
			names = append(names, e)
		}
	}
	return names
}
