package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/fairmarket/internal/config"
	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/internal/metrics"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/internal/server"
	"github.com/iwvelando/fairmarket/pkg/constants"
	"github.com/iwvelando/fairmarket/pkg/output"
	"github.com/iwvelando/fairmarket/pkg/validation"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "fairmarket",
		Usage:   "Simulate a marketplace under carbon pricing and fairness policies",
		Version: version,
		Commands: []*cli.Command{
			runCmd,
			scenariosCmd,
			serveCmd,
		},
	}
}

var logLevelFlag = &cli.StringFlag{
	Name:  "log-level",
	Usage: "log level override (debug, info, warn, error)",
}

var runCmd = &cli.Command{
	Name:    "run",
	Usage:   "Run one scenario and print the report",
	Aliases: []string{"r"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Value: constants.DefaultConfigFile,
			Usage: "path to configuration file; the reference market is used when the default file is absent",
		},
		&cli.StringFlag{
			Name:  "scenario",
			Usage: "scenario preset override (S1, S2A, S2B, S3, S4A, S4B, S4C)",
		},
		&cli.IntFlag{
			Name:  "steps",
			Usage: "number of steps override",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed override",
		},
		&cli.StringFlag{
			Name:  "output-format",
			Usage: "type of output override: pretty, csv",
		},
		logLevelFlag,
	},
	Action: func(ctx *cli.Context) error {
		conf, err := loadRunConfiguration(ctx.String("config"), ctx.IsSet("config"))
		if err != nil {
			return err
		}
		if ctx.IsSet("scenario") {
			conf.Simulation.Scenario = ctx.String("scenario")
		}
		if ctx.IsSet("steps") {
			steps := ctx.Int("steps")
			if steps <= 0 {
				return fmt.Errorf("invalid steps: %d", steps)
			}
			conf.Simulation.Steps = steps
		}
		if ctx.IsSet("seed") {
			seed := ctx.Int64("seed")
			conf.Simulation.Seed = &seed
		}
		if ctx.IsSet("output-format") {
			conf.Output.Format = ctx.String("output-format")
		}

		logger, err := initializeLogger(conf.Logging, ctx.String("log-level"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() {
			_ = logger.Sync()
		}()

		return runScenario(logger, conf, ctx.App.Writer)
	},
}

// loadRunConfiguration reads the configuration file. A missing file is only
// an error when the path was given explicitly.
func loadRunConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return &config.Configuration{}, nil
		}
	}
	conf, err := config.LoadConfiguration(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s: %w", path, err)
	}
	return conf, nil
}

func runScenario(logger *zap.Logger, conf *config.Configuration, w io.Writer) error {
	outputFormat := conf.Output.Format
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runScenario"),
		)
	}

	setup, err := conf.ToSetup()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	result, err := market.Execute(logger, setup)
	if err != nil {
		return fmt.Errorf("failed to run simulation: %w", err)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(w, result)
	case constants.OutputFormatCSV:
		output.CsvFormat(w, result)
	}
	return nil
}

type scenarioListing struct {
	ID          policy.ScenarioID `yaml:"id"`
	Description string            `yaml:"description"`
	Policy      policy.Policy     `yaml:"policy"`
}

var scenariosCmd = &cli.Command{
	Name:    "scenarios",
	Usage:   "List the scenario presets",
	Aliases: []string{"s"},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "print the full preset policies as YAML",
		},
	},
	Action: func(ctx *cli.Context) error {
		return listScenarios(ctx.App.Writer, ctx.Bool("yaml"))
	},
}

func listScenarios(w io.Writer, asYAML bool) error {
	ids := policy.Scenarios()
	listings := make([]scenarioListing, 0, len(ids))
	for _, id := range ids {
		p, err := id.Preset()
		if err != nil {
			return err
		}
		listings = append(listings, scenarioListing{ID: id, Description: id.Describe(), Policy: p})
	}

	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(listings); err != nil {
			return fmt.Errorf("failed to encode scenarios: %w", err)
		}
		return enc.Close()
	}

	for _, l := range listings {
		_, _ = fmt.Fprintf(w, "%-4s %s\n", l.ID, l.Description)
	}
	return nil
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the run API and Prometheus metrics over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "server-config",
			Value: constants.DefaultServerConfigFile,
			Usage: "path to server configuration file",
		},
		&cli.StringFlag{
			Name:  "address",
			Usage: "listen address override",
		},
		&cli.StringFlag{
			Name:  "max-upload-size",
			Usage: "maximum configuration upload size override (e.g. 512K)",
		},
		logLevelFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := server.LoadConfig(ctx.String("server-config"))
		if err != nil {
			return err
		}
		if ctx.IsSet("address") {
			cfg.Address = ctx.String("address")
		}
		if ctx.IsSet("max-upload-size") {
			size, err := server.ParseSize(ctx.String("max-upload-size"))
			if err != nil {
				return err
			}
			cfg.SetUploadSizeBytes(size)
		}

		logger, err := initializeLogger(cfg.Logging, ctx.String("log-level"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() {
			_ = logger.Sync()
		}()

		handler := server.NewHandler(logger, server.Options{
			MaxUploadSize: cfg.UploadSizeBytes(),
			MaxSteps:      cfg.MaxSteps,
			Version:       version,
			Recorder:      metrics.NewRecorder(),
		})

		sigCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Serve(sigCtx, logger, cfg, handler)
	},
}
