package app

import (
	"context"
	"errors"
	"fmt"

	"ecoleta/internal/form"
	"ecoleta/lib/textutil"
)

// CityThreshold is the minimum Jaro-Winkler similarity for a typed city name
// to be resolved to a listed one.
const CityThreshold = 0.85

var ErrRegionsUnavailable = errors.New("regions could not be loaded")

// ResolveCity resolves a typed city name to one of the listed names,
// "sao paulo" -> "São Paulo".
func ResolveCity(names []string, city string) (string, error) {
	match, ok := textutil.BestMatch(city, names, CityThreshold)
	if !ok {
		return "", fmt.Errorf("%w: %q", form.ErrUnknownSubRegion, city)
	}
	return match.Value, nil
}

// Registration is everything needed to fill a collection point form.
type Registration struct {
	Contact form.Contact
	Region  string
	// resolved against the cities of Region with ResolveCity
	City  string
	Point *form.Point
	Items []int64
	// optional
	Attachment *form.Attachment
}

func settledState(ctx context.Context, c *form.Controller) (form.State, error) {
	err := c.Settle(ctx)
	if err != nil {
		return form.State{}, err
	}
	return c.Snapshot(ctx)
}

// SelectLocation selects the region and then the city resolved against the
// cities of that region, it returns the resolved city name.
func SelectLocation(ctx context.Context, c *form.Controller, region, city string) (string, error) {
	state, err := settledState(ctx, c)
	if err != nil {
		return "", err
	}
	if state.Regions.Status == form.LoadFailed {
		return "", fmt.Errorf("%w: %w", ErrRegionsUnavailable, state.Regions.Err)
	}

	err = c.SelectRegion(ctx, region)
	if err != nil {
		return "", err
	}
	state, err = settledState(ctx, c)
	if err != nil {
		return "", err
	}
	if state.SubRegions.Status == form.LoadFailed {
		return "", fmt.Errorf("load cities of %s: %w", state.Selection.Region, state.SubRegions.Err)
	}

	resolved, err := ResolveCity(state.SubRegionNames(), city)
	if err != nil {
		return "", err
	}
	err = c.SelectSubRegion(ctx, resolved)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// Fill drives a running controller through the whole form. Item ids given
// more than once are selected once.
func Fill(ctx context.Context, c *form.Controller, reg Registration) error {
	_, err := SelectLocation(ctx, c, reg.Region, reg.City)
	if err != nil {
		return err
	}

	err = c.SetContact(ctx, reg.Contact)
	if err != nil {
		return err
	}
	err = c.SetPoint(ctx, reg.Point)
	if err != nil {
		return err
	}
	err = c.SetAttachment(ctx, reg.Attachment)
	if err != nil {
		return err
	}

	selected := form.NewItemSet()
	for _, id := range reg.Items {
		if selected.Has(id) {
			continue
		}
		_, err := c.ToggleItem(ctx, id)
		if err != nil {
			return fmt.Errorf("item %d: %w", id, err)
		}
		selected.Toggle(id)
	}
	return nil
}
