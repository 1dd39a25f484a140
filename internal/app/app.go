// Package app wires the platform clients into the form controller.
package app

import (
	"fmt"
	"path/filepath"

	"ecoleta/internal/components/telemetry"
	"ecoleta/internal/form"
	"ecoleta/internal/platforms/ecoleta"
	"ecoleta/internal/platforms/ibge"
	"ecoleta/lib/restyutil"
)

type App struct {
	Ibge       *ibge.Client
	Backend    *ecoleta.Client
	Localities Localities
	Catalog    Backend
}

func dumpOutput(dir, name string) (restyutil.Output, error) {
	if dir == "" {
		return nil, nil
	}
	output, err := restyutil.NewFilesystemOutput(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return output, nil
}

func New(cfg Config, tel telemetry.API) (App, error) {
	cfg = cfg.WithDefaults()

	ibgeOpts := cfg.Ibge.ClientOptions()
	backendOpts := cfg.Backend.ClientOptions()

	var err error
	ibgeOpts.Dump, err = dumpOutput(cfg.DumpDir, "ibge")
	if err != nil {
		return App{}, err
	}
	backendOpts.Dump, err = dumpOutput(cfg.DumpDir, "backend")
	if err != nil {
		return App{}, err
	}

	ibgeClient := ibge.NewClient(ibgeOpts, tel)
	backendClient := ecoleta.NewClient(backendOpts, tel)

	return App{
		Ibge:       ibgeClient,
		Backend:    backendClient,
		Localities: NewLocalities(ibgeClient),
		Catalog:    NewBackend(backendClient),
	}, nil
}

// NewForm creates a controller for a new collection point form, it still
// needs to be started with Run.
func (a App) NewForm(tel telemetry.API) *form.Controller {
	return form.NewController(form.Options{
		Regions:   a.Localities,
		Catalog:   a.Catalog,
		Submitter: a.Catalog,
	}, tel)
}
