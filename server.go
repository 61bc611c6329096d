package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OrdinateLabs/ordd/blockchain"
	"github.com/OrdinateLabs/ordd/database"
	"github.com/OrdinateLabs/ordd/database/ffldb"
	"github.com/OrdinateLabs/ordd/fees"
	"github.com/OrdinateLabs/ordd/log"
	"github.com/OrdinateLabs/ordd/mempool"
	"github.com/OrdinateLabs/ordd/ordutil"
	"github.com/OrdinateLabs/ordd/rpcserver"
)

// server provides an ordinate server for handling chain events, mempool
// admission, fee estimation, and RPC queries.
type server struct {
	// The following variables must only be used atomically.
	started  int32
	shutdown int32

	startupTime int64

	db           database.DB
	chain        *blockchain.BlockChain
	txPool       *mempool.TxPool
	feeEstimator *fees.Estimator
	rpcServer    *rpcserver.RpcServer

	wg   sync.WaitGroup
	quit chan struct{}
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// setupRPCListeners returns a slice of listeners that are configured for use
// with the RPC server depending on the configuration settings for listen
// addresses and TLS.
func setupRPCListeners() ([]net.Listener, error) {
	// Setup TLS if not disabled.
	listenFunc := net.Listen
	if !cfg.DisableTLS {
		// Generate the TLS cert and key file if both don't already
		// exist.
		if !fileExists(cfg.RPCKey) && !fileExists(cfg.RPCCert) {
			err := rpcserver.GenCertPair(cfg.RPCCert, cfg.RPCKey)
			if err != nil {
				return nil, err
			}
		}
		keypair, err := tls.LoadX509KeyPair(cfg.RPCCert, cfg.RPCKey)
		if err != nil {
			return nil, err
		}

		tlsConfig := tls.Config{
			Certificates: []tls.Certificate{keypair},
			MinVersion:   tls.VersionTLS12,
		}

		// Change the standard net.Listen function to the tls one.
		listenFunc = func(net string, laddr string) (net.Listener, error) {
			return tls.Listen(net, laddr, &tlsConfig)
		}
	}

	listeners := make([]net.Listener, 0, len(cfg.RPCListeners))
	for _, addr := range cfg.RPCListeners {
		listener, err := listenFunc("tcp", addr)
		if err != nil {
			log.RpcsLog.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}
	return listeners, nil
}

// handleBlockchainNotification handles notifications from blockchain.  It
// does things such as feeding connected blocks to the fee estimator and
// keeping the memory pool in sync.
func (s *server) handleBlockchainNotification(notification *blockchain.Notification) {
	switch notification.Type {
	// A block has been connected to the main block chain.
	case blockchain.NTBlockConnected:
		block, ok := notification.Data.(*ordutil.Block)
		if !ok {
			log.SrvrLog.Warnf("Chain connected notification is not "+
				"a block: %T", notification.Data)
			break
		}

		// Hand the block to the fee estimator before the pool forgets
		// the mined transactions; the estimator reads the fees the
		// pool recorded at admission and only samples transactions
		// the pool had seen.
		s.txPool.AnnotateFees(block)
		s.feeEstimator.ConnectBlock(block, s.txPool)

		// Remove all of the transactions that are now confirmed from
		// the memory pool.
		s.txPool.RemoveBlockTransactions(block)

		// Notify registered websocket clients of the connected block.
		if s.rpcServer != nil {
			s.rpcServer.NotifyBlockConnected(block)
		}

	// A block has been disconnected from the main block chain.
	case blockchain.NTBlockDisconnected:
		block, ok := notification.Data.(*ordutil.Block)
		if !ok {
			log.SrvrLog.Warnf("Chain disconnected notification is "+
				"not a block: %T", notification.Data)
			break
		}

		// Unwind the samples the block contributed to the estimator's
		// window.
		s.feeEstimator.DisconnectBlock(block)

		// Notify registered websocket clients.
		if s.rpcServer != nil {
			s.rpcServer.NotifyBlockDisconnected(block)
		}
	}
}

// Start begins accepting connections from RPC clients and primes the fee
// estimator from the recent chain suffix.
func (s *server) Start() {
	// Already started?
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	log.SrvrLog.Trace("Starting server")

	// Server startup time. Used for the uptime command for uptime
	// calculation.
	s.startupTime = time.Now().Unix()

	// Rebuild the fee estimator's sample window from the recently
	// connected blocks before answering queries.
	if err := s.feeEstimator.Setup(context.Background(), s.txPool); err != nil {
		log.SrvrLog.Warnf("Unable to prime fee estimator: %v", err)
	}

	if !cfg.DisableRPC {
		s.rpcServer.Start()
	}
}

// Stop gracefully shuts down the server by stopping the RPC server and
// closing the block database.
func (s *server) Stop() error {
	// Make sure this only happens once.
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.SrvrLog.Infof("Server is already in the process of " +
			"shutting down")
		return nil
	}

	log.SrvrLog.Warnf("Server shutting down")

	// Shutdown the RPC server if it's not disabled.
	if !cfg.DisableRPC {
		s.rpcServer.Stop()
	}

	if err := s.db.Close(); err != nil {
		log.SrvrLog.Errorf("Problem closing block database: %v", err)
	}

	// Signal the remaining goroutines to quit.
	close(s.quit)
	return nil
}

// WaitForShutdown blocks until the server's goroutines have stopped.
func (s *server) WaitForShutdown() {
	s.wg.Wait()
}

// newServer returns a new ordd server configured to listen for RPC requests
// on the addresses of the rpclisten configuration option.
func newServer() (*server, error) {
	s := server{
		quit: make(chan struct{}),
	}

	// Load the block database.
	db, err := ffldb.OpenDB(blockDbPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	s.db = db

	// Create a new block chain instance backed by the database.
	s.chain, err = blockchain.New(&blockchain.Config{DB: db})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.txPool = mempool.New(&mempool.Config{
		Policy: mempool.Policy{
			MinRelayTxFee: mempool.DefaultMinRelayTxFee,
		},
	})

	s.feeEstimator, err = fees.New(&fees.Config{
		RecentBlocksNum: cfg.RecentBlocksNum,
		TxSampleSize:    cfg.TxSampleSize,
		Percentiles:     cfg.feePercentiles(),
		Chain:           s.chain,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	// Drive the estimator and the pool from chain events.  The callback
	// runs synchronously on the connect/disconnect path, preserving event
	// order for the estimator's window.
	s.chain.Subscribe(s.handleBlockchainNotification)

	if !cfg.DisableRPC {
		// Setup listeners for the configured RPC listen addresses and
		// TLS settings.
		rpcListeners, err := setupRPCListeners()
		if err != nil {
			db.Close()
			return nil, err
		}
		if len(rpcListeners) == 0 {
			db.Close()
			return nil, errors.New("RPCS: No valid listen address")
		}

		s.rpcServer, err = rpcserver.NewRPCServer(&rpcserver.RpcserverConfig{
			Listeners:    rpcListeners,
			StartupTime:  time.Now().Unix(),
			Chain:        s.chain,
			TxPool:       s.txPool,
			FeeEstimator: s.feeEstimator,
		}, &cfg.Rpcconfig)
		if err != nil {
			db.Close()
			return nil, err
		}

		// Signal process shutdown when the RPC server requests it.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-s.rpcServer.RequestedProcessShutdown():
				shutdownRequestChannel <- struct{}{}
			case <-s.quit:
			}
		}()
	}

	return &s, nil
}
