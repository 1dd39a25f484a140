package app

import (
	"context"
	"testing"
	"time"

	"ecoleta/internal/components/telemetry"
	"ecoleta/internal/form"

	"github.com/stretchr/testify/require"
)

func TestResolveCity(t *testing.T) {
	names := []string{"Campinas", "Santos", "São Paulo"}

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Campinas", expected: "Campinas"},
		{input: "sao paulo", expected: "São Paulo"},
		{input: "SANTOS ", expected: "Santos"},
		{input: "Campnas", expected: "Campinas"},
	}
	for _, test := range testCases {
		resolved, err := ResolveCity(names, test.input)
		require.Nil(t, err, test.input)
		require.Equal(t, test.expected, resolved)
	}

	_, err := ResolveCity(names, "Manaus")
	require.ErrorIs(t, err, form.ErrUnknownSubRegion)
}

func runForm(t testing.TB, a App) (*form.Controller, context.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	controller := a.NewForm(&telemetry.Recorder{})
	go controller.Run(ctx)
	return controller, ctx
}

func TestFill(t *testing.T) {
	servers := newFakeServers(t)
	a, err := New(servers.config(), &telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}
	controller, ctx := runForm(t, a)

	err = Fill(ctx, controller, Registration{
		Contact: form.Contact{Name: "Mercado", Email: "contato@mercado.com", Whatsapp: "11999999999"},
		Region:  "sp",
		City:    "campinas",
		Point:   &form.Point{Latitude: -22.9056, Longitude: -47.0608},
		Items:   []int64{3, 1, 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	state, err := controller.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, form.Selection{Region: "SP", SubRegion: "Campinas"}, state.Selection)
	require.Equal(t, []int64{1, 3}, state.Items.IDs())
	require.Nil(t, state.Attachment)

	receipt, err := controller.Submit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(7), receipt.PointID)
}

func TestFillUnknownLocation(t *testing.T) {
	servers := newFakeServers(t)
	a, err := New(servers.config(), &telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}

	controller, ctx := runForm(t, a)
	err = Fill(ctx, controller, Registration{Region: "XX", City: "Campinas"})
	require.ErrorIs(t, err, form.ErrUnknownRegion)

	controller, ctx = runForm(t, a)
	err = Fill(ctx, controller, Registration{Region: "RJ", City: "Campinas"})
	require.ErrorIs(t, err, form.ErrUnknownSubRegion)
}

func TestFillUnknownItem(t *testing.T) {
	servers := newFakeServers(t)
	a, err := New(servers.config(), &telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}
	controller, ctx := runForm(t, a)

	err = Fill(ctx, controller, Registration{
		Region: "SP",
		City:   "Santos",
		Items:  []int64{1, 42},
	})
	require.ErrorIs(t, err, form.ErrUnknownItem)
}

func TestFillRegionsUnavailable(t *testing.T) {
	servers := newFakeServers(t)
	cfg := servers.config()
	servers.ibge.Close()

	a, err := New(cfg, &telemetry.Recorder{})
	if err != nil {
		t.Fatal(err)
	}
	controller, ctx := runForm(t, a)

	err = Fill(ctx, controller, Registration{Region: "SP", City: "Santos"})
	require.ErrorIs(t, err, ErrRegionsUnavailable)
}
