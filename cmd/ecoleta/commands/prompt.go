package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"ecoleta/internal/app"
	"ecoleta/internal/form"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tcnksm/go-input"
)

func askFloat(ui *input.UI, query string) (float64, error) {
	var value float64
	_, err := ui.Ask(query, &input.Options{
		Required: true,
		Loop:     true,
		ValidateFunc: func(s string) error {
			var err error
			value, err = strconv.ParseFloat(s, 64)
			return err
		},
	})
	return value, err
}

// askRegistration walks the user through the form, the region and the city
// are selected on the controller while asking so that the city can be
// checked against the cities of the chosen region.
func askRegistration(ctx context.Context, ui *input.UI, c *form.Controller, out io.Writer) (app.Registration, error) {
	var reg app.Registration

	err := c.Settle(ctx)
	if err != nil {
		return reg, err
	}
	state, err := c.Snapshot(ctx)
	if err != nil {
		return reg, err
	}
	if state.Regions.Status == form.LoadFailed {
		return reg, fmt.Errorf("%w: %w", app.ErrRegionsUnavailable, state.Regions.Err)
	}

	required := &input.Options{Required: true, Loop: true}
	reg.Contact.Name, err = ui.Ask("name of the collection point", required)
	if err != nil {
		return reg, err
	}
	reg.Contact.Email, err = ui.Ask("email", required)
	if err != nil {
		return reg, err
	}
	reg.Contact.Whatsapp, err = ui.Ask("whatsapp", required)
	if err != nil {
		return reg, err
	}

	_, err = ui.Ask("state (UF)", &input.Options{
		Required: true,
		Loop:     true,
		ValidateFunc: func(s string) error {
			return c.SelectRegion(ctx, s)
		},
	})
	if err != nil {
		return reg, err
	}
	err = c.Settle(ctx)
	if err != nil {
		return reg, err
	}
	state, err = c.Snapshot(ctx)
	if err != nil {
		return reg, err
	}
	if state.SubRegions.Status == form.LoadFailed {
		return reg, fmt.Errorf("load cities of %s: %w", state.Selection.Region, state.SubRegions.Err)
	}
	reg.Region = state.Selection.Region

	names := state.SubRegionNames()
	_, err = ui.Ask("city", &input.Options{
		Required: true,
		Loop:     true,
		ValidateFunc: func(s string) error {
			city, err := app.ResolveCity(names, s)
			if err != nil {
				return err
			}
			reg.City = city
			return nil
		},
	})
	if err != nil {
		return reg, err
	}
	fmt.Fprintf(out, "using %s - %s\n", reg.City, reg.Region)

	if state.Catalog.Status == form.LoadLoaded {
		t := newTable(out, table.Row{"ID", "Item"})
		for _, item := range state.Catalog.Items {
			t.AppendRow(table.Row{item.ID, item.Title})
		}
		t.Render()
	} else {
		fmt.Fprintln(out, "the item catalog could not be loaded, ids will be checked on submission")
	}
	_, err = ui.Ask("collected items (comma separated ids)", &input.Options{
		Required: true,
		Loop:     true,
		ValidateFunc: func(s string) error {
			ids, err := parseIds(s)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return errors.New("select at least one item")
			}
			reg.Items = ids
			return nil
		},
	})
	if err != nil {
		return reg, err
	}

	lat, err := askFloat(ui, "latitude")
	if err != nil {
		return reg, err
	}
	lng, err := askFloat(ui, "longitude")
	if err != nil {
		return reg, err
	}
	reg.Point = &form.Point{Latitude: lat, Longitude: lng}

	_, err = ui.Ask("picture (path, optional)", &input.Options{
		Loop: true,
		ValidateFunc: func(s string) error {
			if s == "" {
				return nil
			}
			_, err := os.Stat(s)
			if err != nil {
				return err
			}
			reg.Attachment, err = readAttachment(s)
			return err
		},
	})
	if err != nil {
		return reg, err
	}

	return reg, nil
}
