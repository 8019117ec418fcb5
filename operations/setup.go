package operations

import (
	"context"
	"io/ioutil"
	"os"
	"strings"

	"github.com/benchkeep/benchkeep"
	"github.com/benchkeep/benchkeep/ingest"
	"github.com/benchkeep/benchkeep/parser"
	"github.com/benchkeep/benchkeep/schema"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func newEnvironment(ctx context.Context, c *cli.Context) (benchkeep.Environment, error) {
	env, err := benchkeep.NewEnvironment(ctx, &benchkeep.Configuration{
		MongoDBURI:   c.String(dbURIFlag),
		DatabaseName: c.String(dbNameFlag),
	})
	if err != nil {
		return nil, errors.Wrap(err, "setting up environment")
	}

	if err := ingest.Bootstrap(ctx, env); err != nil {
		return nil, errors.Wrap(err, "bootstrapping storage")
	}

	return env, nil
}

func newOrchestrator(env benchkeep.Environment, c *cli.Context) *ingest.Orchestrator {
	var source schema.Source = schema.MapSource{}
	if dir := c.String(schemaDirFlag); dir != "" {
		source = &schema.FileSource{Root: dir}
	}

	return ingest.NewOrchestrator(env, parser.DefaultRegistry(), schema.NewValidator(source), ingest.DefaultRouter())
}

func openPackage(path string) (parser.Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening package '%s'", path)
	}

	if info.IsDir() {
		return &parser.DirectoryPackage{Root: path}, nil
	}
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		return parser.NewZipPackage(path), nil
	}

	return nil, errors.Errorf("package '%s' must be a directory or a zip archive", path)
}

func loadDocument(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading document '%s'", path)
	}

	doc, err := ingest.DecodeDocument(data)
	return doc, errors.Wrapf(err, "decoding document '%s'", path)
}
