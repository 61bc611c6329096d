package rpcclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/go-socks/socks"

	"github.com/OrdinateLabs/ordd/log"
	"github.com/OrdinateLabs/ordd/ordjson"
)

var (
	// ErrClientShutdown is an error to describe the condition where the
	// client is either already shutdown, or in the process of shutting
	// down.  Any outstanding futures when a client shutdown occurs will
	// return this error as will any new requests.
	ErrClientShutdown = errors.New("the client has been shutdown")
)

const (
	// sendPostBufferSize is the number of elements the HTTP POST send
	// channel can queue before blocking.
	sendPostBufferSize = 100
)

// ConnConfig describes the connection configuration parameters for the
// client.
type ConnConfig struct {
	// Host is the IP address and port of the RPC server you want to
	// connect to.
	Host string

	// User is the username to use to authenticate to the RPC server.
	User string

	// Pass is the passphrase to use to authenticate to the RPC server.
	Pass string

	// DisableTLS specifies whether transport layer security should be
	// disabled.  It is recommended to always use TLS if the RPC server
	// supports it as otherwise your username and password is sent across
	// the wire in cleartext.
	DisableTLS bool

	// Certificates are the bytes for a PEM-encoded certificate chain used
	// for the TLS connection.  It has no effect if the DisableTLS
	// parameter is true.
	Certificates []byte

	// Proxy specifies to connect through a SOCKS 5 proxy server.  It may
	// be an empty string if a proxy is not required.
	Proxy string

	// ProxyUser is an optional username to use for the proxy server if it
	// requires authentication.  It has no effect if the Proxy parameter
	// is not set.
	ProxyUser string

	// ProxyPass is an optional password to use for the proxy server if it
	// requires authentication.  It has no effect if the Proxy parameter
	// is not set.
	ProxyPass string
}

// jsonRequest holds information about a json request that is used to
// properly detect, interpret, and deliver a reply to it.
type jsonRequest struct {
	id             uint64
	method         string
	cmd            interface{}
	marshalledJSON []byte
	responseChan   chan *Response
}

// rawResponse is a partially-unmarshaled JSON-RPC response.  For this
// to be valid (according to JSON-RPC 1.0 spec), ID may not be nil.
type rawResponse struct {
	Result json.RawMessage   `json:"result"`
	Error  *ordjson.RPCError `json:"error"`
}

// Response is the raw bytes of a JSON-RPC result, or the error if the
// response error object was non-null.
type Response struct {
	result []byte
	err    error
}

// result checks whether the unmarshaled response contains a non-nil error,
// returning an unmarshaled ordjson.RPCError (or an unmarshaling error) if
// so.  If the response is not an error, the raw bytes of the request are
// returned for further unmashaling into specific result types.
func (r rawResponse) result() (result []byte, err error) {
	if r.Error != nil {
		return nil, r.Error
	}
	return r.Result, nil
}

// Client represents an ordinate RPC client which allows easy access to the
// various RPC methods available on an ordinate RPC server.  Each of the
// wrapper functions handle the details of converting the passed and return
// types to and from the underlying JSON types which are required for the
// JSON-RPC invocations.
//
// The client operates in single-shot HTTP POST mode: each request is issued
// on a fresh connection of the shared http.Client.  Notifications are only
// delivered by the server over its websocket endpoint and are not consumed
// by this client.
type Client struct {
	// id is used for the request id after being incremented atomically.
	id uint64

	config *ConnConfig

	// httpClient is the underlying HTTP client to use when running in
	// HTTP POST mode.
	httpClient *http.Client

	// Networking infrastructure.
	sendPostChan chan *jsonRequest
	shutdown     chan struct{}
	wg           sync.WaitGroup

	shutdownLock sync.Mutex
	shutdownDone bool
}

// NextID returns the next id to be used when sending a JSON-RPC message.
// This ID allows responses to be associated with particular requests per the
// JSON-RPC specification.
//
// This function is safe for concurrent access.
func (c *Client) NextID() uint64 {
	return atomic.AddUint64(&c.id, 1)
}

// newHTTPClient returns a new http client that is configured according to
// the proxy and TLS settings in the associated connection configuration.
func newHTTPClient(config *ConnConfig) (*http.Client, error) {
	// Set proxy function if there is a proxy configured.
	var dial func(network, addr string) (net.Conn, error)
	if config.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     config.Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		dial = proxy.Dial
	}

	// Configure TLS if needed.
	var tlsConfig *tls.Config
	if !config.DisableTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if len(config.Certificates) > 0 {
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(config.Certificates)
			tlsConfig.RootCAs = pool
		}
	}

	client := http.Client{
		Transport: &http.Transport{
			Dial:            dial,
			TLSClientConfig: tlsConfig,
		},
	}

	return &client, nil
}

// handleSendPostMessage handles performing the passed HTTP request, reading
// the result, unmarshalling it, and delivering the unmarshalled result to
// the provided response channel.
func (c *Client) handleSendPostMessage(jReq *jsonRequest) {
	protocol := "http"
	if !c.config.DisableTLS {
		protocol = "https"
	}
	url := protocol + "://" + c.config.Host

	bodyReader := bytes.NewReader(jReq.marshalledJSON)
	httpReq, err := http.NewRequest("POST", url, bodyReader)
	if err != nil {
		jReq.responseChan <- &Response{result: nil, err: err}
		return
	}
	httpReq.Close = true
	httpReq.Header.Set("Content-Type", "application/json")

	// Configure basic access authorization.
	login := c.config.User + ":" + c.config.Pass
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
	httpReq.Header.Set("Authorization", auth)

	log.RpccLog.Tracef("Sending command [%s] with id %d", jReq.method,
		jReq.id)
	httpResponse, err := c.httpClient.Do(httpReq)
	if err != nil {
		jReq.responseChan <- &Response{err: err}
		return
	}

	// Read the raw bytes and close the response.
	respBytes, err := io.ReadAll(httpResponse.Body)
	httpResponse.Body.Close()
	if err != nil {
		err = fmt.Errorf("error reading json reply: %v", err)
		jReq.responseChan <- &Response{err: err}
		return
	}

	// Try to unmarshal the response.  If the returned bytes couldn't be
	// unmarshalled the server most likely rejected the request before it
	// was dispatched to a handler, so try to surface a useful error.
	var resp rawResponse
	err = json.Unmarshal(respBytes, &resp)
	if err != nil {
		// When the response itself isn't a valid JSON-RPC response
		// return an error which includes the HTTP status code and raw
		// response bytes.
		err = fmt.Errorf("status code: %d, response: %q",
			httpResponse.StatusCode, string(respBytes))
		jReq.responseChan <- &Response{err: err}
		return
	}

	res, err := resp.result()
	jReq.responseChan <- &Response{result: res, err: err}
}

// sendPostHandler handles all outgoing messages when the client is running
// in HTTP POST mode.  It uses a buffered channel to serialize output
// messages while allowing the sender to continue running asynchronously.  It
// must be run as a goroutine.
func (c *Client) sendPostHandler() {
out:
	for {
		// Send any messages ready for send until the shutdown channel
		// is closed.
		select {
		case jReq := <-c.sendPostChan:
			c.handleSendPostMessage(jReq)

		case <-c.shutdown:
			break out
		}
	}

	// Drain any wait channels before exiting so nothing is left waiting
	// around to send.
cleanup:
	for {
		select {
		case jReq := <-c.sendPostChan:
			jReq.responseChan <- &Response{
				result: nil,
				err:    ErrClientShutdown,
			}

		default:
			break cleanup
		}
	}
	c.wg.Done()
	log.RpccLog.Tracef("RPC client send handler done for %s",
		c.config.Host)
}

// sendPostRequest sends the passed HTTP request to the RPC server using the
// HTTP client associated with the client.  It is backed by a buffered
// channel, so it will not block until the send channel is full.
func (c *Client) sendPostRequest(jReq *jsonRequest) {
	// Don't send the message if shutting down.
	select {
	case <-c.shutdown:
		jReq.responseChan <- &Response{result: nil, err: ErrClientShutdown}
		return
	default:
	}

	c.sendPostChan <- jReq
}

// newFutureError returns a new future result channel that already has the
// passed error waiting on the channel with the reply set to nil.  This is
// useful to easily return errors from the various Async functions.
func newFutureError(err error) chan *Response {
	responseChan := make(chan *Response, 1)
	responseChan <- &Response{err: err}
	return responseChan
}

// ReceiveFuture receives from the passed futureResult channel to extract a
// reply or any errors.  The examined errors include an error in the
// futureResult and the error in the reply from the server.  This will block
// until the result is available on the passed channel.
func ReceiveFuture(f chan *Response) ([]byte, error) {
	// Wait for a response on the returned channel.
	r := <-f
	return r.result, r.err
}

// SendCmd sends the passed command to the associated server and returns a
// response channel on which the reply will be delivered at some point in the
// future.  The request is sent in HTTP POST mode.
func (c *Client) SendCmd(cmd interface{}) chan *Response {
	// Get the method associated with the command.
	method, err := ordjson.CmdMethod(cmd)
	if err != nil {
		return newFutureError(err)
	}

	// Marshal the command.
	id := c.NextID()
	marshalledJSON, err := ordjson.MarshalCmd(id, cmd)
	if err != nil {
		return newFutureError(err)
	}

	// Generate the request and send it along with a channel to respond
	// on.
	responseChan := make(chan *Response, 1)
	jReq := &jsonRequest{
		id:             id,
		method:         method,
		cmd:            cmd,
		marshalledJSON: marshalledJSON,
		responseChan:   responseChan,
	}
	c.sendPostRequest(jReq)

	return responseChan
}

// Shutdown shuts down the client by disconnecting any connections associated
// with the client.  It also stops all goroutines.
func (c *Client) Shutdown() {
	c.shutdownLock.Lock()
	defer c.shutdownLock.Unlock()

	// Ignore the shutdown request if the client is already in the process
	// of shutting down or already shutdown.
	if c.shutdownDone {
		return
	}
	c.shutdownDone = true

	log.RpccLog.Trace("Shutting down RPC client")
	close(c.shutdown)
}

// WaitForShutdown blocks until the client goroutines are stopped and the
// connection is closed.
func (c *Client) WaitForShutdown() {
	c.wg.Wait()
}

// New creates a new RPC client based on the provided connection
// configuration details.
func New(config *ConnConfig) (*Client, error) {
	httpClient, err := newHTTPClient(config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		config:       config,
		httpClient:   httpClient,
		sendPostChan: make(chan *jsonRequest, sendPostBufferSize),
		shutdown:     make(chan struct{}),
	}

	log.RpccLog.Infof("Established connection to RPC server %s",
		config.Host)
	client.wg.Add(1)
	go client.sendPostHandler()

	return client, nil
}
