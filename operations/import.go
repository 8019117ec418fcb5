package operations

import (
	"context"

	"github.com/benchkeep/benchkeep/ingest"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Import returns the command that runs one import of a result package.
func Import() cli.Command {
	return cli.Command{
		Name:  "import",
		Usage: "import a package of benchmark results",
		Flags: mergeFlags(dbFlags(), schemaFlags(), importFlags(), []cli.Flag{
			cli.BoolFlag{
				Name:  "dry-run",
				Usage: "validate the package and configuration without writing anything",
			},
		}),
		Before: mergeBeforeFuncs(
			requireStringFlag(testTypeFlag),
			requireStringFlag(packageFlag),
			requireFileExists(envFileFlag),
			requireFileExists(bomFileFlag),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := newEnvironment(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer func() {
				grip.Error(errors.Wrap(env.Close(ctx), "closing environment"))
			}()

			pkg, err := openPackage(c.String(packageFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			envDoc, err := loadDocument(c.String(envFileFlag))
			if err != nil {
				return errors.WithStack(err)
			}
			bomDoc, err := loadDocument(c.String(bomFileFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			orchestrator := newOrchestrator(env, c)
			outcome, err := orchestrator.Run(ctx, ingest.Options{
				TestType:       c.String(testTypeFlag),
				Package:        pkg,
				EnvironmentDoc: envDoc,
				BOMDoc:         bomDoc,
				Engineer:       c.String(engineerFlag),
				Comments:       c.String(commentsFlag),
				ValidateOnly:   c.Bool("dry-run"),
			})
			if err != nil {
				return errors.Wrap(err, "importing package")
			}

			if !outcome.Success {
				for _, violation := range outcome.ValidationReport.Violations() {
					grip.Warning(message.Fields{
						"path":    violation.Path,
						"message": violation.Message,
					})
				}
				return errors.New("package failed validation")
			}

			grip.Info(message.Fields{
				"message":         "import complete",
				"test_run_id":     outcome.TestRunID,
				"records":         outcome.RecordsProcessed,
				"results_skipped": outcome.ResultsSkipped,
				"dry_run":         c.Bool("dry-run"),
			})

			return nil
		},
	}
}
