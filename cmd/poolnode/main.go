package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zkpool/zkpool/bridge"
	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/service"
	"github.com/zkpool/zkpool/storage"
)

func main() {
	dataDir := flag.String("dataDir", defaultDataDir(), "directory for the node database")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 9090, "API port to bind")
	token := flag.String("token", "", "hex address of the custodied token (empty disables the bridge)")
	minWithdraw := flag.String("minWithdraw", "0", "minimum withdrawal amount (base units)")
	maxDeposit := flag.String("maxDeposit", "0", "maximum deposit amount, 0 for unbounded (base units)")
	rootHistory := flag.Int("rootHistory", 0, "spendable root window size, 0 for the default")
	workers := flag.Int("workers", 4, "number of proof verification workers")
	verifierBackend := flag.String("verifierBackend", "rapidsnark", "Groth16 verifier backend (rapidsnark or gnark)")
	mockVerifier := flag.Bool("mockVerifier", false, "accept mock proofs instead of Groth16 (testing only)")
	artifactTimeout := flag.Duration("artifactTimeout", 5*time.Minute, "timeout for downloading circuit artifacts")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var verifier circuits.Verifier
	if *mockVerifier {
		log.Warnw("using mock proof verifier, do not run this in production")
		verifier = circuits.MockVerifier{}
	} else {
		vctx, vcancel := context.WithTimeout(ctx, *artifactTimeout)
		v, err := circuits.LoadVerifier(vctx, *verifierBackend)
		vcancel()
		if err != nil {
			log.Fatalf("failed to load circuit verification keys: %v", err)
		}
		verifier = v
	}

	database, err := metadb.New(db.TypePebble, filepath.Join(*dataDir, "zkpool"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	stg := storage.New(database)

	p, err := pool.Load(pool.Config{
		MinWithdrawAmount: parseAmount(*minWithdraw),
		MaxDepositAmount:  parseAmount(*maxDeposit),
		RootHistorySize:   *rootHistory,
	}, verifier, stg)
	if err != nil {
		log.Fatalf("failed to load pool state: %v", err)
	}
	log.Infow("pool state loaded",
		"root", p.Root().String(),
		"leaves", p.LeafCount(),
		"custody", p.Custody().String())

	var adapter *bridge.Adapter
	if *token != "" {
		if !common.IsHexAddress(*token) {
			log.Fatalf("invalid token address %q", *token)
		}
		adapter = bridge.New(p, common.HexToAddress(*token), bridge.LogSender{})
	}

	seq := service.NewSequencer(stg, p, adapter, *workers)
	if err := seq.Start(ctx); err != nil {
		log.Fatalf("failed to start sequencer: %v", err)
	}

	apiSrv := service.NewAPI(stg, p, *host, *port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start API: %v", err)
	}
	log.Infow("pool node running", "host", *host, "port", *port, "dataDir", *dataDir)

	<-ctx.Done()
	log.Infow("shutting down")
	seq.Stop()
	apiSrv.Stop()
}

func parseAmount(s string) *big.Int {
	if s == "" || s == "0" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		log.Fatalf("invalid amount %q", s)
	}
	return v
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "zkpool")
	}
	return filepath.Join(home, ".zkpool")
}
