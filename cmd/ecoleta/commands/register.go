package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"ecoleta/internal/app"
	"ecoleta/internal/form"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

func init() {
	flags := registerCmd.Flags()
	flags.String("name", "", "Name of the collection point.")
	flags.String("email", "", "Contact email.")
	flags.String("whatsapp", "", "Contact whatsapp number.")
	flags.String("uf", "", "State (UF) of the collection point.")
	flags.String("city", "", "City of the collection point, typos and missing accents are tolerated.")
	flags.Float64("lat", 0, "Latitude of the collection point.")
	flags.Float64("lng", 0, "Longitude of the collection point.")
	flags.Int64Slice("item", nil, "Id of a collected item, may be repeated.")
	flags.String("image", "", "Path to a picture of the collection point.")
	flags.BoolP("interactive", "i", false, "Prompt for every field instead of reading flags.")

	rootCmd.AddCommand(registerCmd)
}

func readAttachment(path string) (*form.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &form.Attachment{Filename: filepath.Base(path), Data: data}, nil
}

func registrationFromFlags(cmd *cobra.Command) (app.Registration, error) {
	flags := cmd.Flags()
	var reg app.Registration
	var err error

	fields := map[string]*string{
		"name":     &reg.Contact.Name,
		"email":    &reg.Contact.Email,
		"whatsapp": &reg.Contact.Whatsapp,
		"uf":       &reg.Region,
		"city":     &reg.City,
	}
	for name, target := range fields {
		*target, err = flags.GetString(name)
		if err != nil {
			return reg, err
		}
	}

	reg.Items, err = flags.GetInt64Slice("item")
	if err != nil {
		return reg, err
	}

	if flags.Changed("lat") || flags.Changed("lng") {
		lat, err := flags.GetFloat64("lat")
		if err != nil {
			return reg, err
		}
		lng, err := flags.GetFloat64("lng")
		if err != nil {
			return reg, err
		}
		reg.Point = &form.Point{Latitude: lat, Longitude: lng}
	}

	image, err := flags.GetString("image")
	if err != nil {
		return reg, err
	}
	reg.Attachment, err = readAttachment(image)
	if err != nil {
		return reg, fmt.Errorf("--image: %w", err)
	}
	return reg, nil
}

var registerCmd = &cobra.Command{
	Use:   "register [--interactive] [--name <name> --email <email> --whatsapp <number> --uf <uf> --city <city> --lat <lat> --lng <lng> --item <id>...] [--image <path>]",
	Short: "Register a new collection point.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, err := cmd.Flags().GetBool("interactive")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		controller := env.app.NewForm(env.tel)
		go controller.Run(ctx)

		var reg app.Registration
		if interactive {
			reg, err = askRegistration(ctx, input.DefaultUI(), controller, cmd.OutOrStdout())
		} else {
			reg, err = registrationFromFlags(cmd)
		}
		if err != nil {
			return err
		}

		err = app.Fill(ctx, controller, reg)
		if err != nil {
			return err
		}
		receipt, err := controller.Submit(ctx)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "registered collection point #%d\n", receipt.PointID)
		return nil
	},
}
