package ingest

import (
	"context"

	"github.com/benchkeep/benchkeep"
	"github.com/benchkeep/benchkeep/model"
	"github.com/benchkeep/benchkeep/parser"
	"github.com/benchkeep/benchkeep/schema"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// Orchestrator sequences one import: parsing, validation, dimension
// resolution, and the final transactional write of the test run fact and
// its results row. All collaborators are passed in at construction so tests
// can assemble isolated pipelines.
type Orchestrator struct {
	env       benchkeep.Environment
	parsers   *parser.Registry
	validator *schema.Validator
	router    *Router
}

// NewOrchestrator constructs an orchestrator over the given environment,
// parser registry, validator, and result router.
func NewOrchestrator(env benchkeep.Environment, parsers *parser.Registry, validator *schema.Validator, router *Router) *Orchestrator {
	return &Orchestrator{
		env:       env,
		parsers:   parsers,
		validator: validator,
		router:    router,
	}
}

// Options describes one import.
type Options struct {
	TestType string
	Package  parser.Package

	// EnvironmentDoc and BOMDoc are optional decoded configuration
	// documents (see DecodeDocument for the file form). A BOM document
	// may carry a hardware section, a software section, or both;
	// sections resolve independently.
	EnvironmentDoc map[string]interface{}
	BOMDoc         map[string]interface{}

	Engineer      string
	Comments      string
	Configuration map[string]interface{}

	// ValidateOnly stops after validation and reports the aggregated
	// result without touching storage.
	ValidateOnly bool
}

// Dimensions reports the dimension rows an import resolved.
type Dimensions struct {
	EnvironmentID string
	HardwareBOMID string
	SoftwareBOMID string
}

// Outcome is the structured result of one import, returned alongside any
// error so callers always see how far the import progressed.
type Outcome struct {
	Success          bool
	TestRunID        string
	RecordsProcessed int

	ValidationReport   *ValidationReport
	DimensionsResolved Dimensions

	// ResultsSkipped is set when the test type has no registered result
	// aggregator: the test run fact exists but no results row was
	// written.
	ResultsSkipped bool
}

// Run executes one import to completion. Parsing and validation failures
// are reported without side effects; failures inside the final transaction
// roll back completely and surface as a PersistenceError. Nothing is
// retried.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Outcome, error) {
	outcome := &Outcome{}

	p, err := o.parsers.Get(opts.TestType)
	if err != nil {
		return outcome, errors.WithStack(err)
	}

	defer func() {
		grip.Error(message.WrapError(opts.Package.Close(), message.Fields{
			"message":   "could not release package resources",
			"test_type": opts.TestType,
		}))
	}()

	records, err := p.ParsePackage(ctx, opts.Package)
	if err != nil {
		return outcome, errors.WithStack(err)
	}
	if len(records) == 0 {
		return outcome, errors.WithStack(ErrEmptyPackage)
	}
	outcome.RecordsProcessed = len(records)

	report, err := o.validateAll(opts, records)
	outcome.ValidationReport = report
	if err != nil {
		return outcome, errors.WithStack(err)
	}

	if opts.ValidateOnly {
		outcome.Success = report.Valid()
		return outcome, nil
	}
	if !report.Valid() {
		return outcome, &ValidationFailedError{Report: report}
	}

	if err := o.resolveDimensions(ctx, opts, outcome); err != nil {
		return outcome, &PersistenceError{Op: "resolving dimensions", Err: err}
	}

	testType, err := model.FindOrCreateTestType(ctx, o.env, opts.TestType)
	if err != nil {
		return outcome, &PersistenceError{Op: "resolving test type", Err: err}
	}

	if err := o.persist(ctx, opts, testType.ID, records, outcome); err != nil {
		return outcome, errors.WithStack(err)
	}

	outcome.Success = true
	grip.Info(message.Fields{
		"message":         "imported test run",
		"test_type":       opts.TestType,
		"test_run_id":     outcome.TestRunID,
		"records":         outcome.RecordsProcessed,
		"results_skipped": outcome.ResultsSkipped,
	})

	return outcome, nil
}

// validateAll applies the result schema record by record and the optional
// configuration documents' schemas, collecting every violation rather than
// stopping at the first. One invalid record fails the import as a whole;
// the valid subset is never partially imported.
func (o *Orchestrator) validateAll(opts Options, records []parser.Record) (*ValidationReport, error) {
	report := &ValidationReport{}

	for idx, record := range records {
		result, err := o.validator.ValidateRecord(opts.TestType, record)
		if err != nil {
			return report, errors.WithStack(err)
		}
		report.Records = append(report.Records, RecordValidation{Index: idx, Result: *result})
	}

	if opts.EnvironmentDoc != nil {
		result, err := o.validator.ValidateEnvironment(opts.EnvironmentDoc)
		if err != nil {
			return report, errors.WithStack(err)
		}
		report.Environment = result
	}

	if opts.BOMDoc != nil {
		result, err := o.validator.ValidateBOM(opts.TestType, opts.BOMDoc)
		if err != nil {
			return report, errors.WithStack(err)
		}
		report.BOM = result
	}

	return report, nil
}

func (o *Orchestrator) resolveDimensions(ctx context.Context, opts Options, outcome *Outcome) error {
	if opts.EnvironmentDoc != nil {
		dim, err := model.ResolveEnvironment(ctx, o.env, model.Environment{
			Name:     stringField(opts.EnvironmentDoc, "name"),
			Kind:     stringField(opts.EnvironmentDoc, "kind"),
			Comments: stringField(opts.EnvironmentDoc, "comments"),
			Tools:    mapField(opts.EnvironmentDoc, "tools"),
			Metadata: mapField(opts.EnvironmentDoc, "metadata"),
		})
		if err != nil {
			return errors.WithStack(err)
		}
		outcome.DimensionsResolved.EnvironmentID = dim.ID
	}

	if opts.BOMDoc != nil {
		if section := mapField(opts.BOMDoc, "hardware"); section != nil {
			bom, err := model.ResolveHardwareBOM(ctx, o.env, sectionSpecs(section))
			if err != nil {
				return errors.WithStack(err)
			}
			outcome.DimensionsResolved.HardwareBOMID = bom.ID
		}
		if section := mapField(opts.BOMDoc, "software"); section != nil {
			bom, err := model.ResolveSoftwareBOM(ctx, o.env, sectionSpecs(section))
			if err != nil {
				return errors.WithStack(err)
			}
			outcome.DimensionsResolved.SoftwareBOMID = bom.ID
		}
	}

	return nil
}

// sectionSpecs extracts the specs document from a BOM section. Sections
// conventionally nest the document under a specs key; sections without one
// are treated as the specs document themselves.
func sectionSpecs(section map[string]interface{}) interface{} {
	if specs, ok := section["specs"]; ok {
		return specs
	}
	return section
}

// persist writes the test run fact and its aggregated results row inside
// one transaction. Either both rows exist afterwards, or neither does.
func (o *Orchestrator) persist(ctx context.Context, opts Options, testTypeID string, records []parser.Record, outcome *Outcome) error {
	run := model.CreateTestRun(testTypeID)
	run.EnvironmentID = outcome.DimensionsResolved.EnvironmentID
	run.HardwareBOMID = outcome.DimensionsResolved.HardwareBOMID
	run.SoftwareBOMID = outcome.DimensionsResolved.SoftwareBOMID
	run.Engineer = opts.Engineer
	run.Comments = opts.Comments
	run.Configuration = opts.Configuration
	run.Setup(o.env)

	agg := o.router.Get(opts.TestType)
	if agg == nil {
		outcome.ResultsSkipped = true
		grip.Warning(message.Fields{
			"message":   "no result handler registered, importing fact only",
			"test_type": opts.TestType,
			"records":   len(records),
		})
	}

	session, err := o.env.GetClient().StartSession()
	if err != nil {
		return &PersistenceError{Op: "starting session", Err: err}
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := run.SaveNew(sc); err != nil {
			return nil, errors.WithStack(err)
		}

		if agg != nil {
			row, err := agg.Aggregate(run.ID, records)
			if err != nil {
				return nil, errors.Wrap(err, "aggregating results")
			}
			if err := model.SaveResultsRow(sc, o.env, agg.Collection(), row); err != nil {
				return nil, errors.WithStack(err)
			}
		}

		return nil, nil
	})
	if err != nil {
		return &PersistenceError{Op: "writing test run", Err: err}
	}

	outcome.TestRunID = run.ID
	return nil
}
