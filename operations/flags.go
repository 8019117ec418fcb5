package operations

import (
	"strings"

	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	dbURIFlag  = "dbUri"
	dbNameFlag = "dbName"

	testTypeFlag  = "type"
	packageFlag   = "package"
	schemaDirFlag = "schemas"
	envFileFlag   = "environment"
	bomFileFlag   = "bom"
	engineerFlag  = "engineer"
	commentsFlag  = "comments"
	runIDFlag     = "run"
	limitFlag     = "limit"

	dbURIEnvVar     = "BENCHKEEP_MONGODB_URI"
	dbNameEnvVar    = "BENCHKEEP_DB_NAME"
	schemaDirEnvVar = "BENCHKEEP_SCHEMA_DIR"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func dbFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   dbURIFlag,
			Usage:  "specify a mongodb connection string",
			Value:  "mongodb://localhost:27017",
			EnvVar: dbURIEnvVar,
		},
		cli.StringFlag{
			Name:   dbNameFlag,
			Usage:  "specify a database name to use",
			Value:  "benchkeep",
			EnvVar: dbNameEnvVar,
		})
}

func schemaFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   joinFlagNames(schemaDirFlag, "s"),
			Usage:  "path to the schema directory",
			EnvVar: schemaDirEnvVar,
		})
}

func importFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  joinFlagNames(testTypeFlag, "t"),
			Usage: "test type of the package being imported",
		},
		cli.StringFlag{
			Name:  joinFlagNames(packageFlag, "p"),
			Usage: "path to the result package (directory or zip archive)",
		},
		cli.StringFlag{
			Name:  envFileFlag,
			Usage: "path to an environment description file",
		},
		cli.StringFlag{
			Name:  bomFileFlag,
			Usage: "path to a bill of materials file",
		},
		cli.StringFlag{
			Name:  engineerFlag,
			Usage: "name of the engineer who ran the tests",
		},
		cli.StringFlag{
			Name:  commentsFlag,
			Usage: "free-form comments recorded on the test run",
		})
}
