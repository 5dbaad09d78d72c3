// Package constants provides shared constants for the fairmarket application.
package constants

import "time"

// Simulation defaults
const (
	// DefaultSteps is the run length used by the reference experiments.
	DefaultSteps = 200

	// DefaultSeed is the random seed used when none is configured.
	DefaultSeed int64 = 42

	// DefaultCarbonTax is the carbon price used by the carbon pricing presets.
	DefaultCarbonTax = 1.0

	// DefaultDelta mixes rotation and disparity fairness equally.
	DefaultDelta = 0.5

	// DefaultDisparityCap bounds the historical/expected share ratio.
	DefaultDisparityCap = 5.0

	// DefaultSoftmaxTemperature is the temperature of the softmax weight transform.
	DefaultSoftmaxTemperature = 1.0
)

// Reference environment values
const (
	// DefaultIndustryAverageCO2 is the static LCA value used when a supplier
	// has no registered static emissions.
	DefaultIndustryAverageCO2 = 5.0

	// DefaultCO2PerKm is the transport emission factor per unit per km.
	DefaultCO2PerKm = 0.01
)

// Numerical tolerances
const (
	// Epsilon guards divisions and is the threshold below which a quantity
	// counts as zero.
	Epsilon = 1e-9

	// QuantityTolerance is the tolerance used when comparing allocated quantities.
	QuantityTolerance = 1e-6
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// MaxServerSteps caps the number of steps a single API request may run.
	MaxServerSteps = 100000

	// MaxMetricScenarios caps distinct scenario label values on /metrics.
	MaxMetricScenarios = 32

	// MaxMetricSuppliers caps distinct supplier label values on /metrics.
	MaxMetricSuppliers = 128

	// OverflowLabel replaces label values past the caps.
	OverflowLabel = "other"

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second
)
