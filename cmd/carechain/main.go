package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"carechain/api/server"
	"carechain/core/consensus"
	"carechain/core/ledger"
	"carechain/core/mempool"
	"carechain/core/storage"
	"carechain/core/validation"
)

func main() {
	godotenv.Load(".env")

	if logPath := os.Getenv("CARECHAIN_LOG_FILE"); logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}

	dataDir := os.Getenv("CARECHAIN_DATA_DIR")
	if dataDir == "" {
		dataDir = "data/carechain"
	}

	store, err := storage.NewStore(dataDir)
	if err != nil {
		log.Fatalf("failed to open storage at %s: %v", dataDir, err)
	}
	defer store.Close()

	eng := consensus.NewEngine()
	roster, err := store.LoadDelegates()
	if err != nil {
		log.Fatalf("failed to load delegate roster: %v", err)
	}
	if len(roster) > 0 {
		if err := eng.Restore(roster); err != nil {
			log.Fatalf("persisted delegate roster is invalid: %v", err)
		}
		log.Printf("restored %d delegates", len(roster))
	}

	l, err := loadOrCreateLedger(store, eng)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("chain ready at height %d, tip %s", l.Height(), l.Tip().Hash)

	pool := mempool.NewPool(mempool.DefaultMaxTxs)
	srv := server.NewServer(l, pool, eng, store)
	if err := srv.Start(os.Getenv("CARECHAIN_PORT")); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// loadOrCreateLedger rehydrates the persisted chain, or creates a
// fresh genesis when the store is empty. A corrupted chain refuses
// startup, naming the first offending block.
func loadOrCreateLedger(store *storage.Store, eng *consensus.Engine) (*ledger.Ledger, error) {
	blocks, err := store.LoadChain()
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		l, err := ledger.New(eng)
		if err != nil {
			return nil, err
		}
		if err := store.SaveChain(l.Blocks()); err != nil {
			return nil, err
		}
		log.Println("created genesis block")
		return l, nil
	}

	l, err := ledger.Rehydrate(blocks, eng)
	if err != nil {
		var chainErr *validation.ChainError
		if errors.As(err, &chainErr) {
			return nil, fmt.Errorf("persisted chain is corrupt at block %d (%v); refusing startup",
				chainErr.Index, chainErr.Err)
		}
		return nil, err
	}

	entries, err := store.LoadAuditLog()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := l.RestoreAccessLog(entries); err != nil {
			return nil, err
		}
	}
	return l, nil
}
