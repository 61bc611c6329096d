package rpcserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/websocket"

	"github.com/OrdinateLabs/ordd/blockchain"
	"github.com/OrdinateLabs/ordd/fees"
	"github.com/OrdinateLabs/ordd/log"
	"github.com/OrdinateLabs/ordd/mempool"
	"github.com/OrdinateLabs/ordd/ordjson"
	"github.com/OrdinateLabs/ordd/ordutil"
)

const (
	// rpcAuthTimeoutSeconds is the number of seconds a connection to the
	// RPC server is allowed to stay open without authenticating before it
	// is closed.
	rpcAuthTimeoutSeconds = 10

	// maxRequestSize is the maximum size of a JSON-RPC request body that
	// will be read from a client.
	maxRequestSize = 1024 * 1024
)

// Errors returned to RPC clients.
var (
	// ErrRPCUnimplemented is an error returned to RPC clients when the
	// provided command is recognized, but not implemented.
	ErrRPCUnimplemented = &ordjson.RPCError{
		Code:    ordjson.ErrRPCUnimplemented,
		Message: "Command unimplemented",
	}

	// ErrRPCNoWallet is an error returned to RPC clients when the provided
	// command requires wallet support that is not configured.
	ErrRPCNoWallet = &ordjson.RPCError{
		Code:    ordjson.ErrRPCNoWallet,
		Message: "This node is not configured with a wallet",
	}
)

// Rpcconfig defines the RPC configuration options for ordd.
//
// See loadConfig for details on the configuration load process.
type Rpcconfig struct {
	DisableRPC           bool     `long:"norpc" description:"Disable built-in RPC server -- NOTE: The RPC server is disabled by default if no rpcuser/rpcpass is specified"`
	DisableTLS           bool     `long:"notls" description:"Disable TLS for the RPC server -- NOTE: This is only allowed if the RPC server is bound to localhost"`
	RPCCert              string   `long:"rpccert" description:"File containing the certificate file"`
	RPCKey               string   `long:"rpckey" description:"File containing the certificate key"`
	RPCLimitPass         string   `long:"rpclimitpass" default-mask:"-" description:"Password for limited RPC connections"`
	RPCLimitUser         string   `long:"rpclimituser" description:"Username for limited RPC connections"`
	RPCListeners         []string `long:"rpclisten" description:"Add an interface/port to listen for RPC connections (default port: 8334)"`
	RPCMaxClients        int      `long:"rpcmaxclients" description:"Max number of RPC clients for standard connections"`
	RPCMaxConcurrentReqs int      `long:"rpcmaxconcurrentreqs" description:"Max number of concurrent RPC requests that may be processed concurrently"`
	RPCMaxWebsockets     int      `long:"rpcmaxwebsockets" description:"Max number of RPC websocket connections"`
	RPCPass              string   `short:"P" long:"rpcpass" default-mask:"-" description:"Password for RPC connections"`
	RPCUser              string   `short:"u" long:"rpcuser" description:"Username for RPC connections"`
}

// RpcserverConfig is a descriptor containing the RPC server configuration.
type RpcserverConfig struct {
	// Listeners defines a slice of listeners for which the RPC server will
	// take ownership of and accept connections.  Since the RPC server
	// takes ownership of these listeners, they will be closed when the RPC
	// server is stopped.
	Listeners []net.Listener

	// StartupTime is the unix timestamp for when the server that is
	// hosting the RPC server started.
	StartupTime int64

	// Chain defines the best chain the RPC server answers queries against.
	Chain *blockchain.BlockChain

	// TxPool defines the transaction memory pool to interact with.
	TxPool *mempool.TxPool

	// FeeEstimator defines the fee estimator the estimaterate,
	// estimatefee and getfeewindow commands are served from.
	FeeEstimator *fees.Estimator

	// Wallet optionally defines the wallet draft builder used by the
	// estimatefee command.  When nil the command is rejected.
	Wallet fees.Wallet
}

// commandHandler describes a callback function used to handle a specific
// command.
type commandHandler func(*RpcServer, interface{}, <-chan struct{}) (interface{}, error)

// rpcHandlers maps RPC command strings to appropriate handler functions.
// It is set by init from rpcHandlersBeforeInit.
var rpcHandlers map[string]commandHandler
var rpcHandlersBeforeInit = map[string]commandHandler{
	"estimatefee":        handleEstimateFee,
	"estimaterate":       handleEstimateRate,
	"getbestheight":      handleGetBestHeight,
	"getblockhash":       handleGetBlockHash,
	"getfeewindow":       handleGetFeeWindow,
	"sendrawtransaction": handleSendRawTransaction,
	"stop":               handleStop,
	"uptime":             handleUptime,
}

// Commands that are available to a limited user.
var rpcLimited = map[string]struct{}{
	"estimatefee":   {},
	"estimaterate":  {},
	"getbestheight": {},
	"getblockhash":  {},
	"getfeewindow":  {},
	"uptime":        {},
}

// RpcServer provides a concurrent safe RPC server to a chain server.
type RpcServer struct {
	started      int32
	shutdown     int32
	cfg          RpcserverConfig
	authsha      [sha256.Size]byte
	limitauthsha [sha256.Size]byte
	ntfnMgr      *wsNotificationManager
	numClients   int32

	wg                     sync.WaitGroup
	requestProcessShutdown chan struct{}
	quit                   chan int
}

// internalRPCError is a convenience function to convert an internal error to
// an RPC error with the appropriate code set.  It also logs the error to the
// RPC server subsystem since internal errors really should not occur.  The
// context parameter is only used in the log message and may be empty if it's
// not needed.
func internalRPCError(errStr, context string) *ordjson.RPCError {
	logStr := errStr
	if context != "" {
		logStr = context + ": " + errStr
	}
	log.RpcsLog.Error(logStr)
	return ordjson.NewRPCError(ordjson.ErrRPCInternal.Code, errStr)
}

// rpcInvalidError is a convenience function to convert an invalid parameter
// to a well-formed RPC error with the appropriate code set.
func rpcInvalidError(fmtStr string, args ...interface{}) *ordjson.RPCError {
	return ordjson.NewRPCError(ordjson.ErrRPCInvalidParameter,
		fmt.Sprintf(fmtStr, args...))
}

// closeChanContext returns a context that is cancelled when the passed close
// channel is closed.  Handlers that suspend (estimatefee awaits wallet draft
// construction) use it so client disconnects abort the work.
func closeChanContext(closeChan <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-closeChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// handleEstimateRate implements the estimaterate command.
func handleEstimateRate(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*ordjson.EstimateRateCmd)
	if c.Horizon < 0 {
		return nil, rpcInvalidError("horizon must not be negative, "+
			"got %d", c.Horizon)
	}

	rate := s.cfg.FeeEstimator.EstimateRate(c.Horizon)
	return &ordjson.EstimateRateResult{
		FeeRate: int64(rate),
		Bucket:  fees.BucketForHorizon(c.Horizon).String(),
	}, nil
}

// handleEstimateFee implements the estimatefee command.
func handleEstimateFee(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*ordjson.EstimateFeeCmd)
	if c.Horizon < 0 {
		return nil, rpcInvalidError("horizon must not be negative, "+
			"got %d", c.Horizon)
	}
	if len(c.Outputs) == 0 {
		return nil, rpcInvalidError("at least one output is required")
	}
	if s.cfg.Wallet == nil {
		return nil, ErrRPCNoWallet
	}

	outputs := make([]fees.Output, 0, len(c.Outputs))
	for _, out := range c.Outputs {
		outputs = append(outputs, fees.Output{
			Recipient: out.Recipient,
			Amount:    ordutil.Amount(out.Amount),
			Memo:      out.Memo,
		})
	}

	ctx, cancel := closeChanContext(closeChan)
	defer cancel()

	fee, err := s.cfg.FeeEstimator.EstimateFee(ctx, c.Horizon, c.Account,
		outputs)
	switch {
	case err == nil:
	case errors.Is(err, fees.ErrInsufficientFunds):
		return nil, ordjson.NewRPCError(
			ordjson.ErrRPCWalletInsufficientFunds, err.Error())
	case errors.Is(err, fees.ErrInvalidArgument):
		return nil, rpcInvalidError("%v", err)
	default:
		return nil, internalRPCError(err.Error(), "estimatefee")
	}

	return &ordjson.EstimateFeeResult{
		Fee:     int64(fee),
		FeeRate: int64(s.cfg.FeeEstimator.EstimateRate(c.Horizon)),
	}, nil
}

// handleGetFeeWindow implements the getfeewindow command.
func handleGetFeeWindow(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	samples := s.cfg.FeeEstimator.Samples()
	result := &ordjson.GetFeeWindowResult{
		Size:    len(samples),
		Samples: make([]ordjson.FeeWindowSample, 0, len(samples)),
	}
	for _, sample := range samples {
		result.Samples = append(result.Samples, ordjson.FeeWindowSample{
			BlockHash: sample.BlockHash.String(),
			FeeRate:   int64(sample.FeeRate),
		})
	}
	return result, nil
}

// handleGetBlockHash implements the getblockhash command.
func handleGetBlockHash(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*ordjson.GetBlockHashCmd)
	hash, err := s.cfg.Chain.BlockHashByHeight(int32(c.Index))
	if err != nil {
		return nil, ordjson.NewRPCError(ordjson.ErrRPCBlockNotFound,
			err.Error())
	}
	return hash.String(), nil
}

// handleGetBestHeight implements the getbestheight command.
func handleGetBestHeight(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	return s.cfg.Chain.BestHeight(), nil
}

// handleSendRawTransaction implements the sendrawtransaction command.
func handleSendRawTransaction(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*ordjson.SendRawTransactionCmd)

	serializedTx, err := hex.DecodeString(c.HexTx)
	if err != nil {
		return nil, rpcInvalidError("transaction must be hexadecimal "+
			"string: %v", err)
	}
	tx, err := ordutil.NewTxFromBytes(serializedTx)
	if err != nil {
		return nil, ordjson.NewRPCError(ordjson.ErrRPCDeserialization,
			"TX decode failed: "+err.Error())
	}

	_, err = s.cfg.TxPool.ProcessTransaction(tx, ordutil.Amount(c.Fee),
		s.cfg.Chain.BestHeight())
	if err != nil {
		// When the error is a rule error, it means the transaction was
		// simply rejected as opposed to something actually going
		// wrong, so log it as such.
		if ruleErr, ok := err.(mempool.RuleError); ok {
			log.RpcsLog.Debugf("Rejected transaction %v: %v",
				tx.Hash(), ruleErr)
			return nil, ordjson.NewRPCError(ordjson.ErrRPCMisc,
				"TX rejected: "+ruleErr.Error())
		}
		return nil, internalRPCError(err.Error(), "sendrawtransaction")
	}

	return tx.Hash().String(), nil
}

// handleUptime implements the uptime command.
func handleUptime(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	return time.Now().Unix() - s.cfg.StartupTime, nil
}

// handleStop implements the stop command.
func handleStop(s *RpcServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	select {
	case s.requestProcessShutdown <- struct{}{}:
	default:
	}
	return "ordd stopping.", nil
}

// limitConnections responds with a 503 service unavailable and returns true
// if adding another client would exceed the maximum allow RPC clients.  This
// function is safe for concurrent access.
func (s *RpcServer) limitConnections(w http.ResponseWriter, remoteAddr string) bool {
	if int(atomic.LoadInt32(&s.numClients)+1) > rcfg.RPCMaxClients {
		log.RpcsLog.Infof("Max RPC clients exceeded [%d] - "+
			"disconnecting client %s", rcfg.RPCMaxClients,
			remoteAddr)
		http.Error(w, "503 Too busy.  Try again later.",
			http.StatusServiceUnavailable)
		return true
	}
	return false
}

// incrementClients adds one to the number of connected RPC clients.  Note
// this only applies to standard clients.  Websocket clients have their own
// limits and are tracked separately.
//
// This function is safe for concurrent access.
func (s *RpcServer) incrementClients() {
	atomic.AddInt32(&s.numClients, 1)
}

// decrementClients subtracts one from the number of connected RPC clients.
// Note this only applies to standard clients.  Websocket clients have their
// own limits and are tracked separately.
//
// This function is safe for concurrent access.
func (s *RpcServer) decrementClients() {
	atomic.AddInt32(&s.numClients, -1)
}

// checkAuth checks the HTTP Basic authentication supplied by a wallet or RPC
// client in the HTTP request r.  If the supplied authentication does not
// match the username and password expected, a non-nil error is returned.
//
// This check is time-constant.
//
// The first bool return value signifies auth success (true if successful)
// and the second bool return value specifies whether the user can change the
// state of the server (true) or whether the user is limited (false).  The
// second is always false if the first is.
func (s *RpcServer) checkAuth(r *http.Request, require bool) (bool, bool, error) {
	authhdr := r.Header["Authorization"]
	if len(authhdr) <= 0 {
		if require {
			log.RpcsLog.Warnf("RPC authentication failure from %s",
				r.RemoteAddr)
			return false, false, errors.New("auth failure")
		}

		return false, false, nil
	}

	authsha := sha256.Sum256([]byte(authhdr[0]))

	// Check for limited auth first as in environments with limited users,
	// those are probably expected to have a higher volume of calls.
	limitcmp := subtle.ConstantTimeCompare(authsha[:], s.limitauthsha[:])
	if limitcmp == 1 {
		return true, false, nil
	}

	// Check for admin-level auth.
	cmp := subtle.ConstantTimeCompare(authsha[:], s.authsha[:])
	if cmp == 1 {
		return true, true, nil
	}

	// Request's auth doesn't match either user.
	log.RpcsLog.Warnf("RPC authentication failure from %s", r.RemoteAddr)
	return false, false, errors.New("auth failure")
}

// jsonAuthFail sends a message back to the client if the http auth is
// rejected.
func jsonAuthFail(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", `Basic realm="ordd RPC"`)
	http.Error(w, "401 Unauthorized.", http.StatusUnauthorized)
}

// parsedRPCCmd represents a JSON-RPC request object that has been parsed
// into a known concrete command along with any error that might have
// happened while parsing it.
type parsedRPCCmd struct {
	id     interface{}
	method string
	cmd    interface{}
	err    *ordjson.RPCError
}

// parseCmd parses a JSON-RPC request object into known concrete command.
// The err field of the returned parsedRPCCmd struct will contain an RPC
// error that is suitable for use in replies if the command is invalid in
// some way such as an unregistered command or invalid parameters.
func parseCmd(request *ordjson.Request) *parsedRPCCmd {
	var parsedCmd parsedRPCCmd
	parsedCmd.id = request.ID
	parsedCmd.method = request.Method

	cmd, err := ordjson.UnmarshalCmd(request)
	if err != nil {
		// When the error is because the method is not registered,
		// produce a method not found RPC error.
		if jerr, ok := err.(ordjson.Error); ok &&
			jerr.ErrorCode == ordjson.ErrUnregisteredMethod {

			parsedCmd.err = ordjson.ErrRPCMethodNotFound
			return &parsedCmd
		}

		// Otherwise, some type of invalid parameters is the cause, so
		// produce the equivalent RPC error.
		parsedCmd.err = ordjson.NewRPCError(
			ordjson.ErrRPCInvalidParams.Code, err.Error())
		return &parsedCmd
	}

	parsedCmd.cmd = cmd
	return &parsedCmd
}

// standardCmdResult checks that a parsed command is a standard JSON-RPC
// command and runs the appropriate handler to reply to the command.  Any
// commands which are not recognized or not implemented will return an error
// suitable for use in replies.
func (s *RpcServer) standardCmdResult(cmd *parsedRPCCmd, closeChan <-chan struct{}) (interface{}, error) {
	handler, ok := rpcHandlers[cmd.method]
	if !ok {
		return nil, ordjson.ErrRPCMethodNotFound
	}

	return handler(s, cmd.cmd, closeChan)
}

// createMarshalledReply returns a new marshalled JSON-RPC response based on
// the passed parameters.  It will automatically convert errors that are not
// of the type *ordjson.RPCError to the appropriate type as needed.
func createMarshalledReply(id interface{}, result interface{}, replyErr error) ([]byte, error) {
	var jsonErr *ordjson.RPCError
	if replyErr != nil {
		if jErr, ok := replyErr.(*ordjson.RPCError); ok {
			jsonErr = jErr
		} else {
			jsonErr = internalRPCError(replyErr.Error(), "")
		}
	}

	return ordjson.MarshalResponse(id, result, jsonErr)
}

// jsonRPCRead handles reading and responding to RPC messages.
func (s *RpcServer) jsonRPCRead(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	if atomic.LoadInt32(&s.shutdown) != 0 {
		return
	}

	// Read and close the JSON-RPC request body from the caller.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	r.Body.Close()
	if err != nil {
		errCode := http.StatusBadRequest
		http.Error(w, fmt.Sprintf("%d error reading JSON message: %v",
			errCode, err), errCode)
		return
	}

	// Setup a close notifier.  Since the connection is hijacked by some
	// implementations, this is done through the request context here.
	closeChan := make(chan struct{}, 1)
	go func() {
		<-r.Context().Done()
		close(closeChan)
	}()

	var responseID interface{}
	var jsonErr error
	var result interface{}
	var request ordjson.Request
	if err := json.Unmarshal(body, &request); err != nil {
		jsonErr = &ordjson.RPCError{
			Code:    ordjson.ErrRPCParse.Code,
			Message: "Failed to parse request: " + err.Error(),
		}
	}

	if jsonErr == nil {
		// The JSON-RPC 1.0 spec defines that notifications must have
		// their "id" set to null and states that notifications do not
		// have a response.
		if request.ID == nil {
			return
		}
		responseID = request.ID

		// Check if the user is limited and the method is available to
		// them.
		if !isAdmin {
			if _, ok := rpcLimited[request.Method]; !ok {
				jsonErr = &ordjson.RPCError{
					Code:    ordjson.ErrRPCInvalidParams.Code,
					Message: "limited user not authorized for this method",
				}
			}
		}

		if jsonErr == nil {
			// Attempt to parse the JSON-RPC request into a known
			// concrete command.
			parsedCmd := parseCmd(&request)
			if parsedCmd.err != nil {
				jsonErr = parsedCmd.err
			} else {
				result, jsonErr = s.standardCmdResult(parsedCmd,
					closeChan)
			}
		}
	}

	// Marshal the response.
	msg, err := createMarshalledReply(responseID, result, jsonErr)
	if err != nil {
		log.RpcsLog.Errorf("Failed to marshal reply: %v", err)
		return
	}

	if _, err := w.Write(msg); err != nil {
		log.RpcsLog.Errorf("Failed to write marshalled reply: %v", err)
		return
	}
	if _, err := w.Write([]byte{'\n'}); err != nil {
		log.RpcsLog.Errorf("Failed to append terminating newline to "+
			"reply: %v", err)
	}
}

var rcfg *Rpcconfig

// NewRPCServer returns a new instance of the RpcServer struct.
func NewRPCServer(config *RpcserverConfig, cfg *Rpcconfig) (*RpcServer, error) {
	rcfg = cfg
	rpc := RpcServer{
		cfg:                    *config,
		requestProcessShutdown: make(chan struct{}),
		quit:                   make(chan int),
	}
	if cfg.RPCUser != "" && cfg.RPCPass != "" {
		login := cfg.RPCUser + ":" + cfg.RPCPass
		auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
		rpc.authsha = sha256.Sum256([]byte(auth))
	}
	if cfg.RPCLimitUser != "" && cfg.RPCLimitPass != "" {
		login := cfg.RPCLimitUser + ":" + cfg.RPCLimitPass
		auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
		rpc.limitauthsha = sha256.Sum256([]byte(auth))
	}
	rpc.ntfnMgr = newWsNotificationManager(&rpc)

	return &rpc, nil
}

// Start is used by server.go to start the rpc listener.
func (s *RpcServer) Start() {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}
	log.RpcsLog.Trace("Starting RPC server")
	rpcServeMux := http.NewServeMux()
	httpServer := &http.Server{
		Handler: rpcServeMux,

		// Timeout connections which don't complete the initial
		// handshake within the allowed timeframe.
		ReadTimeout: time.Second * rpcAuthTimeoutSeconds,
	}
	rpcServeMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("Content-Type", "application/json")
		r.Close = true

		// Limit the number of connections to max allowed.
		if s.limitConnections(w, r.RemoteAddr) {
			return
		}

		// Keep track of the number of connected clients.
		s.incrementClients()
		defer s.decrementClients()
		_, isAdmin, err := s.checkAuth(r, true)
		if err != nil {
			jsonAuthFail(w)
			return
		}

		// Read and respond to the request.
		s.jsonRPCRead(w, r, isAdmin)
	})

	// Websocket endpoint.
	rpcServeMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		authenticated, _, err := s.checkAuth(r, false)
		if err != nil {
			jsonAuthFail(w)
			return
		}

		// Attempt to upgrade the connection to a websocket connection
		// using the default size for read/write buffers.
		ws, err := websocket.Upgrade(w, r, nil, 0, 0)
		if err != nil {
			if _, ok := err.(websocket.HandshakeError); !ok {
				log.RpcsLog.Errorf("Unexpected websocket error: "+
					"%v", err)
			}
			http.Error(w, "400 Bad Request.", http.StatusBadRequest)
			return
		}
		s.WebsocketHandler(ws, r.RemoteAddr, authenticated)
	})

	for _, listener := range s.cfg.Listeners {
		s.wg.Add(1)
		go func(listener net.Listener) {
			log.RpcsLog.Infof("RPC server listening on %s",
				listener.Addr())
			httpServer.Serve(listener)
			log.RpcsLog.Tracef("RPC listener done for %s",
				listener.Addr())
			s.wg.Done()
		}(listener)
	}

	s.ntfnMgr.Start()
}

// Stop is used by server.go to stop the rpc listener.
func (s *RpcServer) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.RpcsLog.Infof("RPC server is already in the process of " +
			"shutting down")
		return nil
	}
	log.RpcsLog.Warnf("RPC server shutting down")
	for _, listener := range s.cfg.Listeners {
		err := listener.Close()
		if err != nil {
			log.RpcsLog.Errorf("Problem shutting down rpc: %v", err)
			return err
		}
	}
	s.ntfnMgr.Shutdown()
	s.ntfnMgr.WaitForShutdown()
	close(s.quit)
	s.wg.Wait()
	log.RpcsLog.Infof("RPC server shutdown complete")
	return nil
}

// RequestedProcessShutdown returns a channel that is sent to when an
// authorized RPC client requests the process to shutdown.  If the request
// can not be read immediately, it is dropped.
func (s *RpcServer) RequestedProcessShutdown() <-chan struct{} {
	return s.requestProcessShutdown
}

// NotifyBlockConnected passes a block newly connected to the best chain to
// the notification manager for websocket client notification.
func (s *RpcServer) NotifyBlockConnected(block *ordutil.Block) {
	s.ntfnMgr.NotifyBlockConnected(block)
}

// NotifyBlockDisconnected passes a block disconnected from the best chain to
// the notification manager for websocket client notification.
func (s *RpcServer) NotifyBlockDisconnected(block *ordutil.Block) {
	s.ntfnMgr.NotifyBlockDisconnected(block)
}

func init() {
	rpcHandlers = rpcHandlersBeforeInit
}
