package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"marriott_mcp/internal/app"
	"marriott_mcp/internal/mcp"
)

var errToolFailed = errors.New("tool returned an error")

// connector builds the tool registry once per invocation.
type connector func(ctx context.Context) (*mcp.Registry, func(), error)

type runner struct {
	connect connector
	session string
}

func newRootCmd(connect connector) *cobra.Command {
	r := &runner{connect: connect}
	root := &cobra.Command{
		Use:           "hotelctl",
		Short:         "Call the hotel search tools from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.session, "session", "", "discovery session id (random when empty)")

	root.AddCommand(r.placesCmd(), r.placeCmd(), r.hotelsCmd(), r.detailsCmd(), r.ratesCmd())
	return root
}

// call runs one tool, printing structured content to stdout and the short text to stderr.
func (r *runner) call(cmd *cobra.Command, steps ...toolCall) error {
	reg, closeFn, err := r.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	session := r.session
	if session == "" {
		session = uuid.NewString()
	}
	var last error
	for _, st := range steps {
		last = r.invoke(cmd, reg, session, st)
	}
	return last
}

type toolCall struct {
	name  string
	args  map[string]any
	quiet bool
}

func (r *runner) invoke(cmd *cobra.Command, reg *mcp.Registry, session string, st toolCall) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := json.Marshal(st.args)
	if err != nil {
		return err
	}
	res, err := reg.Call(ctx, session, st.name, raw)
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, res.ShortText)
	if !st.quiet {
		if err := printJSON(cmd.OutOrStdout(), res.StructuredContent); err != nil {
			return err
		}
	}
	if res.IsError {
		return errToolFailed
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *runner) placesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "places <query>",
		Short: "Search place suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.call(cmd, toolCall{name: app.ToolSearchPlaces, args: map[string]any{"query": args[0]}})
		},
	}
}

func (r *runner) placeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "place <placeId>",
		Short: "Resolve a place to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.call(cmd, toolCall{name: app.ToolPlaceDetails, args: map[string]any{"placeId": args[0]}})
		},
	}
}

func (r *runner) detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <propertyId>",
		Short: "Show property details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.call(cmd, toolCall{name: app.ToolHotelDetails, args: map[string]any{"propertyId": args[0]}})
		},
	}
}

func (r *runner) ratesCmd() *cobra.Command {
	var in, out string
	var rooms, guests int
	cmd := &cobra.Command{
		Use:   "rates <propertyId>",
		Short: "Show room rates for a stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{"propertyId": args[0], "checkInDate": in, "checkOutDate": out}
			if cmd.Flags().Changed("rooms") {
				a["rooms"] = rooms
			}
			if cmd.Flags().Changed("guests") {
				a["guests"] = guests
			}
			return r.call(cmd, toolCall{name: app.ToolHotelRates, args: a})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "check-in date YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "", "check-out date YYYY-MM-DD")
	cmd.Flags().IntVar(&rooms, "rooms", 1, "rooms")
	cmd.Flags().IntVar(&guests, "guests", 1, "guests per room")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// flag name -> search_hotels filter field
var filterFlags = [][2]string{
	{"brand", "brands"},
	{"amenity", "amenities"},
	{"activity", "activities"},
	{"transportation", "transportationTypes"},
	{"property-type", "propertyTypes"},
	{"city", "cities"},
	{"state", "states"},
	{"country", "countries"},
	{"meetings", "meetingsAndEvents"},
	{"service", "hotelServiceTypes"},
	{"leisure-region", "leisureRegion"},
	{"all-inclusive", "allInclusive"},
}

func (r *runner) hotelsCmd() *cobra.Command {
	var (
		lat, lng           float64
		start, end         string
		guests, rooms      int
		page               int
		childAges          []int
		minPrice, maxPrice float64
		discover           bool
	)
	filters := make(map[string]*[]string, len(filterFlags))

	cmd := &cobra.Command{
		Use:   "hotels",
		Short: "Search hotels around coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base := map[string]any{"latitude": lat, "longitude": lng, "startDate": start, "endDate": end}
			set := func(flag, field string, v any) {
				if cmd.Flags().Changed(flag) {
					base[field] = v
				}
			}
			set("guests", "guests", guests)
			set("rooms", "rooms", rooms)
			set("child-age", "childAges", childAges)
			set("min-price", "minPrice", minPrice)
			set("max-price", "maxPrice", maxPrice)

			filtered := make(map[string]any, len(base)+len(filterFlags))
			for k, v := range base {
				filtered[k] = v
			}
			for _, f := range filterFlags {
				if vals := *filters[f[0]]; len(vals) > 0 {
					filtered[f[1]] = vals
				}
			}
			if cmd.Flags().Changed("page") {
				filtered["page"] = page
			}

			steps := []toolCall{}
			if discover {
				steps = append(steps, toolCall{name: app.ToolSearchHotels, args: base, quiet: true})
			}
			steps = append(steps, toolCall{name: app.ToolSearchHotels, args: filtered})
			return r.call(cmd, steps...)
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&lat, "lat", 0, "latitude")
	fl.Float64Var(&lng, "lng", 0, "longitude")
	fl.StringVar(&start, "start", "", "check-in date YYYY-MM-DD")
	fl.StringVar(&end, "end", "", "check-out date YYYY-MM-DD")
	fl.IntVar(&guests, "guests", 1, "adults")
	fl.IntVar(&rooms, "rooms", 1, "rooms")
	fl.IntVar(&page, "page", 1, "result page")
	fl.IntSliceVar(&childAges, "child-age", nil, "child age, repeatable")
	fl.Float64Var(&minPrice, "min-price", 0, "lower price bucket endpoint")
	fl.Float64Var(&maxPrice, "max-price", 0, "upper price bucket endpoint")
	fl.BoolVar(&discover, "discover", false, "run the unfiltered discovery search first in the same session")
	for _, f := range filterFlags {
		vals := []string{}
		filters[f[0]] = &vals
		fl.StringSliceVar(filters[f[0]], f[0], nil, "facet code for "+f[1]+", repeatable")
	}
	for _, req := range []string{"lat", "lng", "start", "end"} {
		_ = cmd.MarkFlagRequired(req)
	}
	return cmd
}
