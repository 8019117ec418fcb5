package operations

import (
	"context"

	"github.com/benchkeep/benchkeep/ingest"
	"github.com/benchkeep/benchkeep/model"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Admin returns the command grouping for managing stored test runs.
func Admin() cli.Command {
	return cli.Command{
		Name:  "admin",
		Usage: "manage stored benchmark data",
		Subcommands: []cli.Command{
			deleteTestRun(),
			listTestRuns(),
			runSummary(),
			statistics(),
		},
	}
}

func deleteTestRun() cli.Command {
	return cli.Command{
		Name:  "delete-run",
		Usage: "delete a test run and its results row",
		Flags: mergeFlags(dbFlags(), []cli.Flag{
			cli.StringFlag{
				Name:  joinFlagNames(runIDFlag, "r"),
				Usage: "id of the test run to delete",
			},
		}),
		Before: requireStringFlag(runIDFlag),
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

			removed, err := ingest.DeleteTestRun(ctx, env, ingest.DefaultRouter(), c.String(runIDFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			grip.Info(message.Fields{
				"message": "deleted test run",
				"run_id":  c.String(runIDFlag),
				"removed": removed,
			})

			return nil
		},
	}
}

func listTestRuns() cli.Command {
	return cli.Command{
		Name:  "list-runs",
		Usage: "list stored test runs, newest first",
		Flags: mergeFlags(dbFlags(), []cli.Flag{
			cli.StringFlag{
				Name:  engineerFlag,
				Usage: "only list runs recorded by this engineer",
			},
			cli.IntFlag{
				Name:  limitFlag,
				Usage: "maximum number of runs to list",
				Value: 20,
			},
		}),
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

			runs, err := ingest.ListTestRuns(ctx, env, model.TestRunFilter{
				Engineer: c.String(engineerFlag),
				Limit:    int64(c.Int(limitFlag)),
			})
			if err != nil {
				return errors.WithStack(err)
			}

			for _, run := range runs {
				grip.Info(message.Fields{
					"run_id":     run.ID,
					"test_type":  run.TestTypeID,
					"created_at": run.CreatedAt,
					"engineer":   run.Engineer,
				})
			}
			grip.Infof("listed %d test runs", len(runs))

			return nil
		},
	}
}

func runSummary() cli.Command {
	return cli.Command{
		Name:  "run-summary",
		Usage: "summarize one test run with its dimension names",
		Flags: mergeFlags(dbFlags(), []cli.Flag{
			cli.StringFlag{
				Name:  joinFlagNames(runIDFlag, "r"),
				Usage: "id of the test run to summarize",
			},
		}),
		Before: requireStringFlag(runIDFlag),
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

			summary, err := ingest.GetTestRunSummary(ctx, env, ingest.DefaultRouter(), c.String(runIDFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			grip.Info(message.Fields{
				"run_id":      summary.TestRunID,
				"test_type":   summary.TestType,
				"environment": summary.Environment,
				"engineer":    summary.Engineer,
				"created_at":  summary.CreatedAt,
				"comments":    summary.Comments,
				"has_hw_bom":  summary.HasHardwareBOM,
				"has_sw_bom":  summary.HasSoftwareBOM,
				"has_results": summary.HasResults,
				"result_type": summary.ResultType,
			})

			return nil
		},
	}
}

func statistics() cli.Command {
	return cli.Command{
		Name:  "stats",
		Usage: "report row counts for the central collections",
		Flags: dbFlags(),
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

			stats, err := ingest.GetStatistics(ctx, env, ingest.DefaultRouter())
			if err != nil {
				return errors.WithStack(err)
			}

			grip.Info(message.Fields{
				"test_types":   stats.TestTypes,
				"environments": stats.Environments,
				"hw_boms":      stats.HardwareBOMs,
				"sw_boms":      stats.SoftwareBOMs,
				"test_runs":    stats.TestRuns,
				"results":      stats.Results,
			})

			return nil
		},
	}
}
