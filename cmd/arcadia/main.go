package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/arcadia-network/arcadia/lib/crypto"
	"github.com/arcadia-network/arcadia/node"
	"github.com/arcadia-network/arcadia/rpc"
	"github.com/spf13/cobra"
)

var (
	dataDir string

	rootCmd = &cobra.Command{Use: "arcadia", Short: "arcadia is a permissioned distributed ledger node"}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "start the ledger daemon",
		Run: func(cmd *cobra.Command, args []string) {
			Start()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "print the software version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(rpc.SoftwareVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "path of the node data directory")
	rootCmd.AddCommand(startCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// Start() boots the node from the data directory and runs until a shutdown signal
func Start() {
	config, privateKey, genesis, l := InitializeDataDirectory(dataDir)
	n, err := node.New(config, privateKey, genesis, node.NewSoloTransport(), nil, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	go func() {
		s := <-stop
		l.Infof("Exit command %s received", s)
		cancel()
	}()
	if err := n.Start(ctx); err != nil {
		l.Fatal(err.Error())
	}
}

// InitializeDataDirectory() materializes the data directory, writing default
// config, key, and genesis files on first run
func InitializeDataDirectory(dataDirPath string) (config lib.Config, privateKey crypto.PrivateKeyI, genesis *lib.GenesisDoc, l lib.LoggerI) {
	if dataDirPath == "" {
		dataDirPath = lib.DefaultDataDirPath()
	}
	l = lib.NewDefaultLogger()
	l.Infof("Reading data directory at %s", dataDirPath)
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		panic(err)
	}
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		l.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			panic(err)
		}
	}
	keyFilePath := filepath.Join(dataDirPath, lib.ValKeyPath)
	if _, err := os.Stat(keyFilePath); errors.Is(err, os.ErrNotExist) {
		l.Infof("Creating %s file", lib.ValKeyPath)
		newKey, _ := crypto.NewEd25519PrivateKey()
		if err = crypto.PrivateKeyToFile(newKey, keyFilePath); err != nil {
			panic(err)
		}
	}
	privateKey, err := crypto.PrivateKeyFromFile(keyFilePath)
	if err != nil {
		panic(err)
	}
	config, e := lib.NewConfigFromFile(configFilePath)
	if e != nil {
		panic(e)
	}
	config.DataDirPath = dataDirPath
	genesisFilePath := filepath.Join(dataDirPath, lib.GenesisFilePath)
	if _, err = os.Stat(genesisFilePath); errors.Is(err, os.ErrNotExist) {
		l.Infof("Creating %s file", lib.GenesisFilePath)
		doc := &lib.GenesisDoc{
			ChainId:    config.ChainId,
			Validators: []string{privateKey.PublicKey().String()},
		}
		if e = doc.WriteToFile(genesisFilePath); e != nil {
			panic(e)
		}
	}
	genesis, e = lib.NewGenesisFromFile(genesisFilePath)
	if e != nil {
		panic(e)
	}
	// keep the log file alongside the rest of the node data
	l = lib.NewLogger(lib.LoggerConfig{Level: config.GetLogLevel()}, dataDirPath)
	return
}
