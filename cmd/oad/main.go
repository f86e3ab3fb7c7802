package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/ohowland/oad_core/internal/pkg/config"
	"github.com/ohowland/oad_core/internal/pkg/database/mongodb"
	"github.com/ohowland/oad_core/internal/pkg/database/sqldb"
	"github.com/ohowland/oad_core/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/oad_core/internal/pkg/mission"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"github.com/ohowland/oad_core/internal/pkg/topology"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose     bool
	problemPath string
	asJSON      bool
	reverse     bool

	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:          "oad",
	Short:        "Hybrid-electric power-train configurator and mission solver",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg = config.Default()
		if problemPath != "" {
			if cfg, err = config.Load(problemPath); err != nil {
				return err
			}
		}
		logger, err = cfg.Logger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [topology.yaml]",
	Short: "Solve the mission of a power train and size its components",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

var orderCmd = &cobra.Command{
	Use:   "order [topology.yaml]",
	Short: "Print the evaluation order of a power train",
	Args:  cobra.ExactArgs(1),
	RunE:  order,
}

var checkCmd = &cobra.Command{
	Use:   "check [topology.yaml]",
	Short: "Validate a power train and report its equations",
	Args:  cobra.ExactArgs(1),
	RunE:  check,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&problemPath, "config", "c", "", "problem configuration file (JSON)")
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	orderCmd.Flags().BoolVar(&reverse, "reverse", false, "print the sizing order, loads first")
	rootCmd.AddCommand(runCmd, orderCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func build(path string) (*powertrain.PowerTrain, error) {
	t, err := topology.Load(path)
	if err != nil {
		return nil, err
	}
	return powertrain.Build(t, cfg.Options(logger))
}

func run(cmd *cobra.Command, args []string) error {
	p, err := build(args[0])
	if err != nil {
		return err
	}
	profile, err := mission.Discretize(p.Topology().Mission)
	if err != nil {
		return err
	}
	logger.Info("evaluating power train",
		zap.String("powertrain", p.Name()),
		zap.Int("unknowns", p.Unknowns()),
		zap.Int("points", profile.Len()))

	res, err := p.Evaluate(profile)
	if err != nil {
		return err
	}

	pub := msg.NewPublisher(p.PID())
	var wg sync.WaitGroup
	recorders, err := startRecorders(pub, &wg)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go stopOnSignal(recorders, done)
	p.Publish(res, pub)
	pub.Close()
	wg.Wait()
	close(done)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res.Summary())
	}
	printSummary(cmd.OutOrStdout(), p, res)
	return nil
}

type recorder interface {
	Process()
	Stop()
}

// startRecorders launches the enabled result sinks. Each returns once the
// publisher is closed and its inbox drained, or once it is stopped.
func startRecorders(pub *msg.PubSub, wg *sync.WaitGroup) ([]recorder, error) {
	recorders := make([]recorder, 0)
	if path := cfg.Recorders.MongoDB; path != "" {
		h, err := mongodb.New(path, pub, logger)
		if err != nil {
			return nil, fmt.Errorf("mongodb recorder: %w", err)
		}
		recorders = append(recorders, h)
	}
	if path := cfg.Recorders.MySQL; path != "" {
		h, err := sqldb.New(path, pub, logger)
		if err != nil {
			return nil, fmt.Errorf("mysql recorder: %w", err)
		}
		recorders = append(recorders, h)
	}
	if path := cfg.Recorders.NATS; path != "" {
		h, err := natshandler.New(path, pub, logger)
		if err != nil {
			return nil, fmt.Errorf("nats recorder: %w", err)
		}
		recorders = append(recorders, h)
	}
	for _, r := range recorders {
		wg.Add(1)
		go func(r recorder) {
			defer wg.Done()
			r.Process()
		}(r)
	}
	return recorders, nil
}

// stopOnSignal stops every recorder on SIGINT or SIGTERM until done is closed.
func stopOnSignal(recorders []recorder, done <-chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case sig := <-sigs:
		logger.Warn("stopping recorders", zap.Stringer("signal", sig))
		for _, r := range recorders {
			r.Stop()
		}
	case <-done:
	}
}

func printSummary(out io.Writer, p *powertrain.PowerTrain, res *powertrain.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	status := "converged"
	if !res.Converged {
		status = "not converged"
	}
	fmt.Fprintf(w, "power train\t%s\n", res.Name)
	fmt.Fprintf(w, "sizing loop\t%s after %d iteration(s)\n", status, res.Iterations)
	fmt.Fprintf(w, "mission points\t%d (%d failed)\n", res.Performance.Profile.Len(), len(res.Performance.Failed()))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "component\tmass [kg]\toverrated")
	for _, id := range p.Order() {
		s := res.Sizing[id]
		fmt.Fprintf(w, "%s\t%.2f\t%v\n", id, s.Mass, s.Overrated())
	}
	fmt.Fprintf(w, "total\t%.2f\t\n", res.TotalMass)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "battery energy\t%.3f kWh\n", res.Energy.Battery/3.6e6)
	fmt.Fprintf(w, "shaft energy\t%.3f kWh\n", res.Energy.Shaft/3.6e6)
	fmt.Fprintf(w, "losses\t%.3f kWh\n", res.Energy.TotalLosses()/3.6e6)
	fmt.Fprintf(w, "storage losses\t%.3f kWh\n", res.Energy.Storage/3.6e6)
	fmt.Fprintf(w, "fuel burnt\t%.3f kg\n", res.Energy.Fuel)
}

func order(cmd *cobra.Command, args []string) error {
	t, err := topology.Load(args[0])
	if err != nil {
		return err
	}
	g, err := topology.BuildGraph(t)
	if err != nil {
		return err
	}
	ids, err := g.Order()
	if reverse {
		ids, err = g.ReverseOrder()
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func check(cmd *cobra.Command, args []string) error {
	p, err := build(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d components, %d unknowns\n", p.Name(), len(p.Order()), p.Unknowns())

	paths, err := p.Topology().CriticalPath()
	if err != nil {
		return err
	}
	loads := make([]string, 0, len(paths))
	for id := range paths {
		loads = append(loads, id)
	}
	sort.Strings(loads)
	for _, id := range loads {
		fmt.Fprintf(out, "%s <- %v\n", id, paths[id])
	}
	return nil
}
