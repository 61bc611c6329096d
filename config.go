package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/OrdinateLabs/ordd/blockchain"
	"github.com/OrdinateLabs/ordd/database/ffldb"
	"github.com/OrdinateLabs/ordd/fees"
	"github.com/OrdinateLabs/ordd/log"
	"github.com/OrdinateLabs/ordd/mempool"
	"github.com/OrdinateLabs/ordd/ordutil"
	"github.com/OrdinateLabs/ordd/rpcserver"
)

const (
	defaultConfigFilename = "ordd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "ordd.log"
	defaultDbDirname      = "blocks_ffldb"

	defaultRPCPort              = "8334"
	defaultMaxRPCClients        = 10
	defaultMaxRPCConcurrentReqs = 20
	defaultMaxRPCWebsockets     = 25
)

var (
	defaultHomeDir    = orddHomeDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultRPCCert    = filepath.Join(defaultHomeDir, "rpc.cert")
	defaultRPCKey     = filepath.Join(defaultHomeDir, "rpc.key")
)

// config defines the configuration options for ordd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	RecentBlocksNum int   `long:"recentblocks" description:"Number of recent blocks the fee estimator keeps samples for"`
	TxSampleSize    int   `long:"txsamplesize" description:"Maximum number of fee samples admitted per block"`
	FeePercentiles  []int `long:"feepercentile" description:"Override the low/medium/high fee percentiles; specify three times in ascending order"`

	rpcserver.Rpcconfig
}

// orddHomeDir returns the default home directory, kept in a function so
// tests can exercise config parsing without touching the real home.
func orddHomeDir() string {
	return ordutil.AppDataDir("ordd", false)
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	return log.ValidLogLevel(logLevel)
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(log.SubsystemLoggers))
	for subsysID := range log.SubsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// normalizeAddresses returns a new slice with all the passed peer addresses
// normalized with the given default port, and all duplicates removed.
func normalizeAddresses(addrs []string, defaultPort string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, addr := range addrs {
		addr = normalizeAddress(addr, defaultPort)
		if _, ok := seen[addr]; !ok {
			result = append(result, addr)
			seen[addr] = struct{}{}
		}
	}
	return result
}

// feePercentiles converts the configured override list into the estimator's
// percentile descriptor, or nil when the defaults should apply.
func (cfg *config) feePercentiles() *fees.Percentiles {
	if len(cfg.FeePercentiles) == 0 {
		return nil
	}
	return &fees.Percentiles{
		Low:    cfg.FeePercentiles[0],
		Medium: cfg.FeePercentiles[1],
		High:   cfg.FeePercentiles[2],
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in ordd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:      defaultConfigFile,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		RecentBlocksNum: fees.DefaultRecentBlocksNum,
		TxSampleSize:    fees.DefaultTxSampleSize,
		Rpcconfig: rpcserver.Rpcconfig{
			RPCCert:              defaultRPCCert,
			RPCKey:               defaultRPCKey,
			RPCMaxClients:        defaultMaxRPCClients,
			RPCMaxConcurrentReqs: defaultMaxRPCConcurrentReqs,
			RPCMaxWebsockets:     defaultMaxRPCWebsockets,
		},
	}

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(defaultHomeDir, 0700)
	if err != nil {
		str := "%s: failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Expand and clean the data and log directory paths.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Route the package-level loggers of the subsystems that expose one to
	// their subsystem logger.
	blockchain.UseLogger(log.ChanLog)
	ffldb.UseLogger(log.BcdbLog)
	fees.UseLogger(log.FeesLog)
	mempool.UseLogger(log.TxmpLog)

	// Validate the fee estimator options.  The estimator itself rejects
	// these as well, however catching them here produces friendlier
	// messages before any subsystem starts.
	if cfg.RecentBlocksNum < 1 {
		str := "%s: recentblocks must be a positive whole number -- " +
			"parsed [%d]"
		err := fmt.Errorf(str, funcName, cfg.RecentBlocksNum)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.TxSampleSize < 1 {
		str := "%s: txsamplesize must be a positive whole number -- " +
			"parsed [%d]"
		err := fmt.Errorf(str, funcName, cfg.TxSampleSize)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if n := len(cfg.FeePercentiles); n != 0 && n != 3 {
		str := "%s: feepercentile must be specified exactly three " +
			"times -- parsed [%v]"
		err := fmt.Errorf(str, funcName, cfg.FeePercentiles)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// The RPC server is disabled if no username or password is provided.
	if cfg.RPCUser == "" || cfg.RPCPass == "" {
		cfg.DisableRPC = true
	}
	if cfg.DisableRPC {
		log.OrddLog.Infof("RPC service is disabled")
	}

	// Default RPC to listen on localhost only.
	if !cfg.DisableRPC && len(cfg.RPCListeners) == 0 {
		addrs, err := net.LookupHost("localhost")
		if err != nil {
			return nil, nil, err
		}
		cfg.RPCListeners = make([]string, 0, len(addrs))
		for _, addr := range addrs {
			addr = net.JoinHostPort(addr, defaultRPCPort)
			cfg.RPCListeners = append(cfg.RPCListeners, addr)
		}
	}

	// Add the default listener port to all listener addresses if needed
	// and remove duplicate addresses.
	cfg.RPCListeners = normalizeAddresses(cfg.RPCListeners, defaultRPCPort)

	return &cfg, remainingArgs, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// blockDbPath returns the path to the block database given a database type.
func blockDbPath(dataDir string) string {
	return filepath.Join(dataDir, defaultDbDirname)
}
