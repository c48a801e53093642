package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/next-trace/scg-consumer-bus/codec"
	"github.com/next-trace/scg-consumer-bus/config"
	"github.com/next-trace/scg-consumer-bus/consumer"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
)

type endpointView struct {
	Kind     string   `json:"kind"`
	Endpoint string   `json:"endpoint"`
	Message  string   `json:"message"`
	Handlers []string `json:"handlers"`
}

func newEndpointsCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Print the endpoints run would bind",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			binder, err := initBinder(cfg)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}

			views := planViews(binder)

			switch output {
			case "table":
				return writeTable(cmd.OutOrStdout(), views)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(views)
			default:
				return fmt.Errorf("unsupported output %q", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	return cmd
}

func planViews(b *consumer.Binder) []endpointView {
	var views []endpointView

	for _, kind := range []cbus.MessageKind{cbus.KindEvent, cbus.KindCommand} {
		for _, p := range b.Plan(kind) {
			views = append(views, endpointView{
				Kind:     p.Kind.String(),
				Endpoint: p.Name,
				Message:  codec.TypeName(p.MessageType),
				Handlers: p.HandlerNames(),
			})
		}
	}

	return views
}

func writeTable(w io.Writer, views []endpointView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tENDPOINT\tMESSAGE\tHANDLERS")

	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Kind, v.Endpoint, v.Message, strings.Join(v.Handlers, ","))
	}

	return tw.Flush()
}
