package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli"

	"github.com/kifmm3d/kifmm"
	"github.com/kifmm3d/kifmm/internal/goldendata"
	"github.com/kifmm3d/kifmm/internal/kernel"
)

func main() {
	log.SetFlags(log.Lmicroseconds)

	app := cli.NewApp()
	app.Name = "kifmmctl"
	app.Usage = "run the fast multipole evaluator over a point cloud"
	app.Commands = []cli.Command{
		buildCommand(),
		benchCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func sharedFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "points", Usage: "CSV file of x,y,z,charge (one row per source point)"},
		cli.IntFlag{Name: "order", Value: 6, Usage: "expansion order"},
		cli.IntFlag{Name: "ncrit", Value: 150, Usage: "adaptive build leaf capacity"},
		cli.BoolFlag{Name: "fft", Usage: "use the FFT M2L library instead of SVD"},
		cli.BoolFlag{Name: "time", Usage: "print per-operator timings"},
	}
}

func buildCommand() cli.Command {
	return cli.Command{
		Name:  "build",
		Usage: "build the evaluator and compute potentials for a point cloud",
		Flags: sharedFlags(),
		Action: func(c *cli.Context) error {
			cloud, err := loadCloud(c.String("points"))
			if err != nil {
				return err
			}
			return runOnce(cloud, c)
		},
	}
}

func benchCommand() cli.Command {
	return cli.Command{
		Name:  "bench",
		Usage: "generate a synthetic point cloud and report evaluation timing",
		Flags: append(sharedFlags(), cli.IntFlag{Name: "n", Value: 10000, Usage: "number of synthetic points"}),
		Action: func(c *cli.Context) error {
			cloud := goldendata.Uniform(c.Int("n"), 42)
			return runOnce(cloud, c)
		},
	}
}

func runOnce(cloud goldendata.Cloud, c *cli.Context) error {
	opts := []kifmm.Option{
		kifmm.WithOrder(c.Int("order")),
		kifmm.WithNCrit(c.Int("ncrit")),
	}
	if c.Bool("fft") {
		opts = append(opts, kifmm.WithFFT())
	}

	f, err := kifmm.Build(cloud.Points, cloud.Points, kernel.Laplace{}, opts...)
	if err != nil {
		return err
	}

	out := make([]float64, len(cloud.Points))
	start := time.Now()
	timings, err := f.Evaluate(cloud.Charges, out)
	if err != nil {
		return err
	}
	log.Printf("evaluated %d points in %v", len(cloud.Points), time.Since(start))

	if c.Bool("time") {
		printTimings(timings)
	}
	return nil
}

func printTimings(t kifmm.TimeDict) {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-6s %v\n", name, t[name])
	}
}

// loadCloud reads a CSV file of x,y,z,charge rows into a Cloud.
func loadCloud(path string) (goldendata.Cloud, error) {
	if path == "" {
		return goldendata.Cloud{}, fmt.Errorf("--points is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return goldendata.Cloud{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4
	var cloud goldendata.Cloud
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return goldendata.Cloud{}, err
		}
		var coord [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return goldendata.Cloud{}, fmt.Errorf("row %v: %w", row, err)
			}
			coord[i] = v
		}
		q, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return goldendata.Cloud{}, fmt.Errorf("row %v: %w", row, err)
		}
		cloud.Points = append(cloud.Points, coord)
		cloud.Charges = append(cloud.Charges, q)
	}
	return cloud, nil
}
