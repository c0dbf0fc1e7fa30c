package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/units"
	"github.com/arcadia-network/arcadia/lib"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

/*
	This package serves the node's HTTP API: chain queries for explorers and
	tooling plus the single transaction submission endpoint. Everything else a
	node does is reachable only through the consensus wire protocol.
*/

const (
	colon = ":"

	SoftwareVersion = "1.0.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
)

// API paths
const (
	VersionRoutePath       = "/v1/"
	TxRoutePath            = "/v1/tx"
	HeightRoutePath        = "/v1/query/height"
	BlockByHeightRoutePath = "/v1/query/block-by-height"
	ConsensusInfoRoutePath = "/v1/query/consensus-info"
	PendingRoutePath       = "/v1/query/pending"
)

// StoreI is the slice of the block store the API reads from
type StoreI interface {
	Height() uint64
	GetByHeight(height uint64) (*lib.Block, lib.ErrorI)
	Head() (*lib.Block, lib.ErrorI)
}

// ConsensusI is the slice of the consensus engine the API reports on
type ConsensusI interface {
	Height() uint64
	View() uint32
}

// Server is the node's HTTP API server
type Server struct {
	config lib.Config
	store  StoreI
	engine ConsensusI
	queue  lib.QueueI
	logger lib.LoggerI
}

// NewServer() constructs and returns a new API server
func NewServer(config lib.Config, store StoreI, engine ConsensusI, queue lib.QueueI, logger lib.LoggerI) *Server {
	return &Server{
		config: config,
		store:  store,
		engine: engine,
		queue:  queue,
		logger: logger,
	}
}

// Start() serves the API in the background
func (s *Server) Start() {
	go s.startRPC(s.Router(), s.config.RPCPort)
}

// Router() wires the API paths to their handlers
func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET(VersionRoutePath, s.Version)
	router.POST(TxRoutePath, s.Transaction)
	router.GET(HeightRoutePath, s.Height)
	router.POST(BlockByHeightRoutePath, s.BlockByHeight)
	router.GET(ConsensusInfoRoutePath, s.ConsensusInfo)
	router.GET(PendingRoutePath, s.Pending)
	return router
}

// startRPC() hosts the router with CORS and a request timeout
func (s *Server) startRPC(router *httprouter.Router, port string) {
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})
	timeout := time.Duration(s.config.TimeoutS) * time.Second
	s.logger.Infof("Starting RPC server at 0.0.0.0:%s", port)
	s.logger.Fatal((&http.Server{
		Addr:    colon + port,
		Handler: cor.Handler(http.TimeoutHandler(router, timeout, ErrServerTimeout().Error())),
	}).ListenAndServe().Error())
}

// unmarshal() reads the request body and unmarshals it into ptr
func unmarshal(w http.ResponseWriter, r *http.Request, ptr interface{}) bool {
	bz, err := io.ReadAll(io.LimitReader(r.Body, int64(units.MB)))
	if err != nil {
		write(w, ErrReadBody(err), http.StatusBadRequest)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err = json.Unmarshal(bz, ptr); err != nil {
		write(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write() marshals the payload to w
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}
