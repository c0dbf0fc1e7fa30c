package rpc

import (
	"net/http"

	"github.com/arcadia-network/arcadia/lib"
	"github.com/julienschmidt/httprouter"
)

// versionResult is the response body of the version route
type versionResult struct {
	Version string `json:"version"`
	ChainId uint64 `json:"chainId"`
}

// heightResult is the response body of the height route
type heightResult struct {
	Height uint64 `json:"height"`
}

// heightRequest selects a block by height; 0 means the head of the chain
type heightRequest struct {
	Height uint64 `json:"height"`
}

// consensusInfoResult is the response body of the consensus-info route
type consensusInfoResult struct {
	Height uint64 `json:"height"` // the height under agreement
	View   uint32 `json:"view"`   // leader rotations consumed so far at that height
}

// pendingResult is the response body of the pending route
type pendingResult struct {
	Count int `json:"count"`
}

// txResult is the response body of a successful transaction submission
type txResult struct {
	Hash string `json:"hash"`
}

// Version() reports the software version and chain identifier
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, &versionResult{Version: SoftwareVersion, ChainId: s.config.ChainId}, http.StatusOK)
}

// Height() reports the height of the last committed block
func (s *Server) Height(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, &heightResult{Height: s.store.Height()}, http.StatusOK)
}

// BlockByHeight() returns the committed block at the requested height
func (s *Server) BlockByHeight(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request := new(heightRequest)
	if !unmarshal(w, r, request) {
		return
	}
	var (
		block *lib.Block
		err   lib.ErrorI
	)
	if request.Height == 0 {
		block, err = s.store.Head()
	} else {
		block, err = s.store.GetByHeight(request.Height)
	}
	if err != nil {
		write(w, err, http.StatusNotFound)
		return
	}
	write(w, block, http.StatusOK)
}

// ConsensusInfo() reports the live position of the consensus engine
func (s *Server) ConsensusInfo(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, &consensusInfoResult{Height: s.engine.Height(), View: s.engine.View()}, http.StatusOK)
}

// Pending() reports the depth of the transaction queue
func (s *Server) Pending(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, &pendingResult{Count: s.queue.TxCount()}, http.StatusOK)
}

// Transaction() accepts a client transaction into the pending pool; the
// response is a definite verdict, an accepted hash or the concrete rejection
func (s *Server) Transaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tx := new(lib.Transaction)
	if !unmarshal(w, r, tx) {
		return
	}
	// stamp the arrival clock when the client left it blank
	if tx.CreatedTime == 0 {
		tx.CreatedTime = lib.TimeNowMicro()
	}
	if err := s.queue.Enqueue(tx); err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	hash, err := tx.Hash()
	if err != nil {
		write(w, err, http.StatusInternalServerError)
		return
	}
	write(w, &txResult{Hash: lib.BytesToString(hash)}, http.StatusOK)
}
