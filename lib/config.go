package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' configurations of each module of the node */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath  = "config.json"        // the file path for the node configuration
	ValKeyPath      = "validator_key.json" // the file path for the node's private key
	GenesisFilePath = "genesis.json"       // the file path for the genesis document
)

// Config is the structure of the user configuration options for an arcadia node
type Config struct {
	MainConfig      // main options spanning over all modules
	ConsensusConfig // consensus engine options
	QueueConfig     // transaction queue options
	StoreConfig     // persistence options
	RPCConfig       // read-only query API options
	MetricsConfig   // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:      DefaultMainConfig(),
		ConsensusConfig: DefaultConsensusConfig(),
		QueueConfig:     DefaultQueueConfig(),
		StoreConfig:     DefaultStoreConfig(),
		RPCConfig:       DefaultRPCConfig(),
		MetricsConfig:   DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
	ChainId  uint64 `json:"chainId"`  // the identifier of this particular chain
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info",
		ChainId:  1,
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// CONSENSUS CONFIG BELOW

// ConsensusConfig defines the round timing of the consensus engine.
// NOTES:
// - the round deadline for view v is RoundTimeoutMS*(2v+1): linear growth keeps
//   the curve deterministic and peer-agreeable while still widening under faults
// - EmptyBlockIntervalMS keeps height advancing under low transaction volume;
//   it must stay below RoundTimeoutMS or an idle chain would rotate leaders
//   before the proposer ever gets to propose
type ConsensusConfig struct {
	RoundTimeoutMS       int    `json:"roundTimeoutMS"`       // base round deadline before a view-change vote is broadcast
	EmptyBlockIntervalMS int    `json:"emptyBlockIntervalMS"` // how long a proposer waits for transactions before proposing an empty block
	SweepIntervalMS      int    `json:"sweepIntervalMS"`      // how often the queue expiry sweep runs
	MaxBlockTxs          int    `json:"maxBlockTxs"`          // maximum transactions per proposed block
	MaxBlockBytes        uint64 `json:"maxBlockBytes"`        // maximum collective transaction bytes per proposed block
}

// DefaultConsensusConfig() configures the round timing
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		RoundTimeoutMS:       4000, // 4 seconds
		EmptyBlockIntervalMS: 2000, // 2 seconds
		SweepIntervalMS:      1000, // 1 second
		MaxBlockTxs:          1000,
		MaxBlockBytes:        uint64(2 * units.MB),
	}
}

// QUEUE CONFIG BELOW

// QueueConfig is the user configuration of the pending transaction pool
type QueueConfig struct {
	MaxTransactionCount uint32 `json:"maxTransactionCount"` // max number of pending transactions
	IndividualMaxTxSize uint32 `json:"individualMaxTxSize"` // max bytes of a single transaction payload
	FutureThresholdMS   uint64 `json:"futureThresholdMS"`   // how far in the future a tx timestamp may be before rejection
	CommittedWindowMS   uint64 `json:"committedWindowMS"`   // how long committed hashes are remembered for duplicate rejection
}

// DefaultQueueConfig() returns the developer created queue options
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxTransactionCount: 5000,
		IndividualMaxTxSize: uint32(4 * units.KiB),
		FutureThresholdMS:   1000,
		CommittedWindowMS:   60000, // 1 minute
	}
}

// FutureThresholdMicro() converts the future threshold to microseconds
func (c *QueueConfig) FutureThresholdMicro() uint64 { return c.FutureThresholdMS * 1000 }

// CommittedWindowMicro() converts the committed window to microseconds
func (c *QueueConfig) CommittedWindowMicro() uint64 { return c.CommittedWindowMS * 1000 }

// STORE CONFIG BELOW

// StoreConfig is user configuration for the block store database
type StoreConfig struct {
	DataDirPath string `json:"dataDirPath"` // path of the designated folder where the node stores its data
	DBName      string `json:"dbName"`      // name of the database directory
	InMemory    bool   `json:"inMemory"`    // non-disk database, only for testing
}

// DefaultDataDirPath() is $USERHOME/.arcadia
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".arcadia")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath: DefaultDataDirPath(),
		DBName:      "blocks",
		InMemory:    false,
	}
}

// RPC CONFIG BELOW

// RPCConfig is the user configuration of the read-only query API
type RPCConfig struct {
	RPCPort  string `json:"rpcPort"`  // the port where the query API is served
	TimeoutS int    `json:"timeoutS"` // the request timeout in seconds
}

// DefaultRPCConfig() serves the query API on localhost:50002
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:  "50002",
		TimeoutS: 3,
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the telemetry server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           true,
		PrometheusAddress: "0.0.0.0:9090",
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) ErrorI {
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ErrJSONMarshal(err)
	}
	if err = os.WriteFile(filepath, jsonBytes, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// NewConfigFromFile() populates a Config object from a JSON file, filling any
// blanks with the defaults
func NewConfigFromFile(filepath string) (Config, ErrorI) {
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, ErrReadFile(err)
	}
	c := DefaultConfig()
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, ErrJSONUnmarshal(err)
	}
	return c, nil
}
