package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"ecoleta/internal/app"
	"ecoleta/internal/components/chrono"
	"ecoleta/internal/platforms/ecoleta"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	pointsCmd.Flags().String("uf", "", "Only list points of this state.")
	pointsCmd.Flags().String("city", "", "Only list points of this city, typos and missing accents are tolerated.")
	pointsCmd.Flags().String("items", "", "Comma separated item ids, only list points collecting any of them.")
	pointsCmd.Flags().String("watch", "", "Keep listing on a cron schedule (ex. \"@every 5m\"), only new points are shown after the first listing.")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(pointsCmd)
	rootCmd.AddCommand(pointCmd)
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List the items that can be collected.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := env.app.Backend.Items(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Item", "Image"})
		for _, item := range items {
			t.AppendRow(table.Row{item.ID, item.Title, item.ImageUrl})
		}
		t.Render()
		return nil
	},
}

var pointsCmd = &cobra.Command{
	Use:   "points [--uf <uf>] [--city <city>] [--items <id,id,...>] [--watch <cron spec>]",
	Short: "List collection points.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		uf, err := flags.GetString("uf")
		if err != nil {
			return err
		}
		city, err := flags.GetString("city")
		if err != nil {
			return err
		}
		itemsFlag, err := flags.GetString("items")
		if err != nil {
			return err
		}

		filter := ecoleta.PointFilter{Uf: strings.ToUpper(strings.TrimSpace(uf))}
		filter.Items, err = parseIds(itemsFlag)
		if err != nil {
			return fmt.Errorf("--items: %w", err)
		}
		if city != "" {
			if filter.Uf == "" {
				return fmt.Errorf("--city needs --uf")
			}
			municipalities, err := env.app.Ibge.Municipalities(cmd.Context(), filter.Uf)
			if err != nil {
				return err
			}
			names := make([]string, len(municipalities))
			for i, m := range municipalities {
				names[i] = m.Nome
			}
			filter.City, err = app.ResolveCity(names, city)
			if err != nil {
				return err
			}
		}

		watch, err := flags.GetString("watch")
		if err != nil {
			return err
		}
		if watch == "" {
			points, err := env.app.Backend.Points(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderPoints(cmd.OutOrStdout(), points, "")
			return nil
		}
		return watchPoints(cmd.Context(), cmd.OutOrStdout(), filter, watch)
	},
}

func renderPoints(out io.Writer, points []ecoleta.Point, caption string) {
	t := newTable(out, table.Row{"ID", "Name", "City", "UF", "Whatsapp"})
	for _, p := range points {
		t.AppendRow(table.Row{p.ID, p.Name, p.City, p.Uf, p.Whatsapp})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(points)})
	if caption != "" {
		t.SetCaption(caption)
	}
	t.Render()
}

// watchPoints lists the points right away and then on every run of the
// schedule, only points that were not listed before are shown.
func watchPoints(ctx context.Context, out io.Writer, filter ecoleta.PointFilter, spec string) error {
	clock, err := chrono.NewStandardImpl(env.cfg.Timezone)
	if err != nil {
		return err
	}

	var mutex sync.Mutex
	seen := map[int64]struct{}{}
	refresh := func() {
		mutex.Lock()
		defer mutex.Unlock()

		points, err := env.app.Backend.Points(ctx, filter)
		if err != nil {
			env.tel.ReportWarning("points.watch", err)
			return
		}
		var fresh []ecoleta.Point
		for _, p := range points {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			fresh = append(fresh, p)
		}
		if len(fresh) == 0 {
			return
		}
		renderPoints(out, fresh, fmt.Sprintf("new points at %s", clock.Now().Format(time.DateTime)))
	}

	refresh()

	scheduler := chrono.NewStandardCron(env.tel, clock.Location())
	defer scheduler.Stop()
	err = scheduler.Cron(spec, refresh)
	if err != nil {
		return fmt.Errorf("--watch: %w", err)
	}

	<-ctx.Done()
	return nil
}

var pointCmd = &cobra.Command{
	Use:   "point <id>",
	Short: "Show a collection point and the items it collects.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid point id %q", args[0])
		}
		detail, err := env.app.Backend.Point(cmd.Context(), id)
		if err != nil {
			return err
		}

		p := detail.Point
		t := newTable(cmd.OutOrStdout(), table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"ID", p.ID},
			{"Name", p.Name},
			{"Email", p.Email},
			{"Whatsapp", p.Whatsapp},
			{"Location", fmt.Sprintf("%s - %s", p.City, p.Uf)},
			{"Position", fmt.Sprintf("%f, %f", p.Latitude, p.Longitude)},
			{"Image", p.ImageUrl},
		})
		titles := make([]string, len(detail.Items))
		for i, item := range detail.Items {
			titles[i] = item.Title
		}
		t.AppendRow(table.Row{"Items", strings.Join(titles, ", ")})
		t.Render()
		return nil
	},
}
