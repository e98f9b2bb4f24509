// Command simulate plays headless bot-vs-bot bouts for balancing the engine
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sumo-arena/internal/config"
	"sumo-arena/internal/game"
	"sumo-arena/internal/render"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type simFlags struct {
	matches    int
	p1, p2     string
	seed       int64
	tickRate   int
	maxTicks   int
	tuningFile string
	asJSON     bool
}

func (f *simFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.matches, "matches", "n", 100, "number of bouts to play")
	cmd.Flags().StringVar(&f.p1, "p1", "pro", "persona driving the east side")
	cmd.Flags().StringVar(&f.p2, "p2", "casual", "persona driving the west side")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&f.tickRate, "tick-rate", 60, "simulated ticks per second")
	cmd.Flags().IntVar(&f.maxTicks, "max-ticks", 0, "give up on a bout after this many ticks (0 = five minutes)")
	cmd.Flags().StringVar(&f.tuningFile, "tuning", "", "YAML, JSON or TOML file overriding engine constants")
}

func (f *simFlags) batch() (BatchConfig, error) {
	tuning, err := config.LoadTuning(f.tuningFile)
	if err != nil {
		return BatchConfig{}, err
	}
	return BatchConfig{
		Matches:  f.matches,
		P1:       strings.ToLower(f.p1),
		P2:       strings.ToLower(f.p2),
		Seed:     f.seed,
		TickRate: f.tickRate,
		MaxTicks: f.maxTicks,
		Tuning:   tuning,
	}, nil
}

func newRootCmd() *cobra.Command {
	f := &simFlags{}
	root := &cobra.Command{
		Use:          "simulate",
		Short:        "Play headless sumo bouts between bot personas",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.batch()
			if err != nil {
				return err
			}
			report, err := runBatch(cfg)
			if err != nil {
				return err
			}
			if f.asJSON {
				return writeJSONReport(cmd.OutOrStdout(), cfg, report)
			}
			printReport(cmd.OutOrStdout(), cfg, report)
			return nil
		},
	}
	f.bind(root)
	root.Flags().BoolVar(&f.asJSON, "json", false, "print the report as JSON")

	root.AddCommand(newFrameCmd(), newPersonasCmd())
	return root
}

func newFrameCmd() *cobra.Command {
	f := &simFlags{}
	var out string
	var width, height int
	cmd := &cobra.Command{
		Use:     "frame",
		Short:   "Render the final frame of one bout to a PNG",
		Example: "simulate frame --p1 pro --p2 newbie -o final.png",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.batch()
			if err != nil {
				return err
			}
			cfg.Matches = 1
			report, err := runBatch(cfg)
			if err != nil {
				return err
			}
			file, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "create %s", out)
			}
			defer file.Close()

			bout := report.Bouts[0]
			if err := render.WritePNG(file, bout.Final, render.Options{Width: width, Height: height}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🖼️  %s: winner %s after %.2fs\n", out, orDash(bout.Side), bout.Duration)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "frame.png", "PNG file to write")
	cmd.Flags().IntVar(&width, "width", 640, "image width")
	cmd.Flags().IntVar(&height, "height", 360, "image height")
	return cmd
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the bot personas",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, key := range personaKeys() {
				p := game.Personas[key]
				fmt.Fprintf(w, "%-10s %-14s %5.1f inputs/s  accuracy %.0f%%\n", key, p.Name, p.InputsPerSec, p.Accuracy*100)
			}
		},
	}
}

func personaKeys() []string {
	keys := make([]string, 0, len(game.Personas))
	for k := range game.Personas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printReport(w io.Writer, cfg BatchConfig, r BatchReport) {
	fmt.Fprintf(w, "🏯 %d bouts: %s (east) vs %s (west)\n", len(r.Bouts), cfg.P1, cfg.P2)
	fmt.Fprintf(w, "   east wins: %d\n", r.Wins["east"])
	fmt.Fprintf(w, "   west wins: %d\n", r.Wins["west"])
	if r.Unsettled > 0 {
		fmt.Fprintf(w, "   ⚠️ unsettled: %d\n", r.Unsettled)
	}
	fmt.Fprintf(w, "   duration min/avg/max: %.2fs / %.2fs / %.2fs\n", r.Min, r.Avg, r.Max)
}

type jsonReport struct {
	Matches   int            `json:"matches"`
	P1        string         `json:"p1"`
	P2        string         `json:"p2"`
	Wins      map[string]int `json:"wins"`
	Unsettled int            `json:"unsettled"`
	Min       float64        `json:"min"`
	Avg       float64        `json:"avg"`
	Max       float64        `json:"max"`
}

func writeJSONReport(w io.Writer, cfg BatchConfig, r BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Matches:   len(r.Bouts),
		P1:        cfg.P1,
		P2:        cfg.P2,
		Wins:      r.Wins,
		Unsettled: r.Unsettled,
		Min:       r.Min,
		Avg:       r.Avg,
		Max:       r.Max,
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
