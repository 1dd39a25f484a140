package app

import (
	"context"

	"ecoleta/internal/form"
	"ecoleta/internal/platforms/ecoleta"
	"ecoleta/internal/platforms/ibge"
)

// Localities lists IBGE states as regions and their municipalities as
// sub-regions.
type Localities struct {
	client *ibge.Client
}

func NewLocalities(client *ibge.Client) Localities {
	return Localities{client: client}
}

func (l Localities) Regions(ctx context.Context) ([]form.Region, error) {
	states, err := l.client.States(ctx)
	if err != nil {
		return nil, err
	}
	regions := make([]form.Region, len(states))
	for i, s := range states {
		regions[i] = form.Region{Code: s.Sigla, Label: s.Sigla}
	}
	return regions, nil
}

func (l Localities) SubRegions(ctx context.Context, region string) ([]form.SubRegion, error) {
	municipalities, err := l.client.Municipalities(ctx, region)
	if err != nil {
		return nil, err
	}
	subRegions := make([]form.SubRegion, len(municipalities))
	for i, m := range municipalities {
		subRegions[i] = form.SubRegion{Name: m.Nome, Region: region}
	}
	return subRegions, nil
}

// Backend serves the item catalog and submits forms as new collection points.
type Backend struct {
	client *ecoleta.Client
}

func NewBackend(client *ecoleta.Client) Backend {
	return Backend{client: client}
}

func (b Backend) CatalogItems(ctx context.Context) ([]form.CatalogItem, error) {
	items, err := b.client.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]form.CatalogItem, len(items))
	for i, item := range items {
		out[i] = form.CatalogItem{ID: item.ID, Title: item.Title, ImageUrl: item.ImageUrl}
	}
	return out, nil
}

func createPointRequest(payload form.Payload) ecoleta.CreatePointRequest {
	req := ecoleta.CreatePointRequest{
		Name:      payload.Name,
		Email:     payload.Email,
		Whatsapp:  payload.Whatsapp,
		Uf:        payload.Region,
		City:      payload.SubRegion,
		Latitude:  payload.Point.Latitude,
		Longitude: payload.Point.Longitude,
		Items:     payload.Items,
	}
	if payload.Attachment != nil {
		req.Image = &ecoleta.Image{
			Filename: payload.Attachment.Filename,
			Data:     payload.Attachment.Data,
		}
	}
	return req
}

func (b Backend) Submit(ctx context.Context, payload form.Payload) (form.Receipt, error) {
	point, err := b.client.CreatePoint(ctx, createPointRequest(payload))
	if err != nil {
		return form.Receipt{}, err
	}
	return form.Receipt{PointID: point.ID}, nil
}
