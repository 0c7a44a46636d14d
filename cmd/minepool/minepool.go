package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/peterbourgon/ff/v3"

	"github.com/minepool/go-minepool/common"
	"github.com/minepool/go-minepool/core"
	"github.com/minepool/go-minepool/monitor"
	"github.com/minepool/go-minepool/server"
)

var version = "0.1.0"

func main() {
	fs := flag.NewFlagSet("minepool", flag.ExitOnError)

	httpAddr := fs.String("httpAddr", "127.0.0.1:8935", "address to bind the HTTP server to")
	datadir := fs.String("datadir", defaultDatadir(), "directory for the ticket database")
	owner := fs.String("owner", "", "operator address allowed to adjust the emission cap and withdraw funds")
	asset := fs.String("asset", "USDC", "stablecoin asset named in payment challenges")
	payTo := fs.String("payTo", "", "custody address payment challenges direct funds to")
	enableMonitor := fs.Bool("monitor", false, "enable prometheus metrics on /metrics")
	nodeID := fs.String("nodeID", "", "node identifier reported in metrics")

	// glog flags
	vFlag := flag.Lookup("v")
	verbosity := fs.String("v", "3", "log verbosity level")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("MP")); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(2)
	}

	flag.Set("logtostderr", "true")
	vFlag.Value.Set(*verbosity)

	if !ethcommon.IsHexAddress(*owner) {
		glog.Exit("-owner must be a valid address")
	}
	ownerAddr := ethcommon.HexToAddress(*owner)
	payToAddr := ownerAddr
	if *payTo != "" {
		if !ethcommon.IsHexAddress(*payTo) {
			glog.Exit("-payTo must be a valid address")
		}
		payToAddr = ethcommon.HexToAddress(*payTo)
	}

	if *enableMonitor {
		monitor.InitCensus(*nodeID, version)
		monitor.Enabled = true
	}

	if err := os.MkdirAll(*datadir, 0755); err != nil {
		glog.Exitf("Error creating datadir %s: %v", *datadir, err)
	}
	dbh, err := common.InitDB(filepath.Join(*datadir, "tickets.sqlite3"))
	if err != nil {
		glog.Exitf("Error opening ticket database: %v", err)
	}
	defer dbh.Close()

	// The token and payment-rail backends are deployment specific; the
	// node itself ships with the offchain pair.
	broker := core.NewOffchainBroker()
	payments := core.NewOffchainPaymentSource()

	node, err := core.NewMinepoolNode(ownerAddr, broker, payments, dbh)
	if err != nil {
		glog.Exitf("Error creating node: %v", err)
	}

	glog.Infof("Minepool version %s owner=%x", version, ownerAddr)
	if err := server.StartWebserver(node, *httpAddr, payToAddr, *asset); err != nil {
		glog.Exitf("Webserver exited: %v", err)
	}
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".minepool"
	}
	return filepath.Join(home, ".minepool")
}
