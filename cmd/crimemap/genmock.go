package main

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/adapter/geodata"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

var mockCategories = []struct {
	name   string
	weight float64
}{
	{"Hurto", 0.45},
	{"Lesiones personales", 0.2},
	{"Violencia intrafamiliar", 0.15},
	{"Riña", 0.1},
	{"Homicidio", 0.05},
	{"Extorsión", 0.05},
}

type genmockOptions struct {
	neighborhoods string
	nameProperty  string
	out           string
	start         string
	weeks         int
	perWeek       float64
	seed          uint64
}

func newGenmockCmd(root *rootOptions) *cobra.Command {
	opts := &genmockOptions{}
	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Generate a synthetic incident dataset inside the neighborhood boundaries",
		Args:  cobra.NoArgs,
		// Needs no configuration, only the boundary file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.neighborhoods == "" {
				opts.neighborhoods = root.neighborhoods
			}
			if opts.neighborhoods == "" {
				return fmt.Errorf("--neighborhoods is required")
			}
			return runGenmock(opts, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.nameProperty, "name-property", geodata.DefaultNameProperty, "neighborhood name attribute")
	fs.StringVarP(&opts.out, "out", "o", "incidents.csv", "output path, .csv or .geojson")
	fs.StringVar(&opts.start, "start", "2023-01-02", "first week, YYYY-MM-DD")
	fs.IntVar(&opts.weeks, "weeks", 104, "number of weeks to generate")
	fs.Float64Var(&opts.perWeek, "per-week", 40, "mean incidents per week")
	fs.Uint64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

func runGenmock(opts *genmockOptions, logger *slog.Logger) error {
	start, err := time.Parse(time.DateOnly, opts.start)
	if err != nil {
		return fmt.Errorf("--start must be YYYY-MM-DD: %w", err)
	}
	if opts.weeks < 1 || opts.perWeek <= 0 {
		return fmt.Errorf("--weeks and --per-week must be positive")
	}

	hoods, err := geodata.LoadNeighborhoods(opts.neighborhoods, opts.nameProperty)
	if err != nil {
		return fmt.Errorf("load neighborhoods: %w", err)
	}
	if len(hoods) == 0 {
		return fmt.Errorf("%s has no named neighborhoods", opts.neighborhoods)
	}

	g := newGenerator(hoods, opts.seed)
	ds := g.dataset(domain.WeekStart(start), opts.weeks, opts.perWeek)

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := geodata.WriteIncidents(opts.out, f, ds); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("mock dataset written",
		"path", opts.out,
		"incidents", len(ds.Incidents),
		"neighborhoods", len(hoods),
		"weeks", opts.weeks,
	)
	return nil
}

// generator draws incidents with a yearly cycle and a mild upward trend, so
// every forecast model has structure to fit.
type generator struct {
	rng     *rand.Rand
	hoods   []domain.Neighborhood
	weights []float64
}

func newGenerator(hoods []domain.Neighborhood, seed uint64) *generator {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	weights := make([]float64, len(hoods))
	for i := range weights {
		weights[i] = 0.2 + rng.Float64()
	}
	return &generator{rng: rng, hoods: hoods, weights: weights}
}

func (g *generator) dataset(start time.Time, weeks int, perWeek float64) domain.Dataset {
	ds := domain.Dataset{
		HasTimeOfDay: true,
		Columns:      make(map[domain.SocialFlag]bool, len(domain.SocialFlags)),
	}
	for _, f := range domain.SocialFlags {
		ds.Columns[f] = true
	}

	id := 0
	for w := range weeks {
		week := start.AddDate(0, 0, 7*w)
		mean := perWeek * (1 + 0.3*math.Sin(2*math.Pi*float64(w)/52) + 0.002*float64(w))
		n := max(0, int(math.Round(mean+g.rng.NormFloat64()*math.Sqrt(mean))))
		for range n {
			id++
			ds.Incidents = append(ds.Incidents, g.incident(id, week))
		}
	}
	return ds
}

func (g *generator) incident(id int, week time.Time) domain.Incident {
	hood := g.hoods[g.pick(g.weights)]
	day := week.AddDate(0, 0, g.rng.IntN(7))
	age := 14 + g.rng.IntN(66)

	sex := domain.SexMale
	if g.rng.Float64() < 0.45 {
		sex = domain.SexFemale
	}

	flags := make(map[domain.SocialFlag]bool, len(domain.SocialFlags))
	for _, f := range domain.SocialFlags {
		flags[f] = g.rng.Float64() < 0.05
	}

	catWeights := make([]float64, len(mockCategories))
	for i, c := range mockCategories {
		catWeights[i] = c.weight
	}

	return domain.Incident{
		ID:           fmt.Sprintf("mock-%06d", id),
		Category:     mockCategories[g.pick(catWeights)].name,
		RawDate:      day.Format(time.DateOnly),
		Date:         day,
		TimeOfDay:    fmt.Sprintf("%02d:%02d", g.rng.IntN(24), g.rng.IntN(60)),
		Neighborhood: hood.Name,
		Sex:          sex,
		Age:          &age,
		Flags:        flags,
		Location:     g.pointIn(hood.Geometry),
		HasLocation:  true,
	}
}

// pick draws an index with probability proportional to its weight.
func (g *generator) pick(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// pointIn samples a point inside geom by rejection within its bound, falling
// back to the centroid for degenerate shapes.
func (g *generator) pointIn(geom orb.Geometry) orb.Point {
	b := geom.Bound()
	for range 1000 {
		p := orb.Point{
			b.Min.Lon() + g.rng.Float64()*(b.Max.Lon()-b.Min.Lon()),
			b.Min.Lat() + g.rng.Float64()*(b.Max.Lat()-b.Min.Lat()),
		}
		switch shape := geom.(type) {
		case orb.Polygon:
			if planar.PolygonContains(shape, p) {
				return p
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(shape, p) {
				return p
			}
		}
	}
	c, _ := planar.CentroidArea(geom)
	return c
}
