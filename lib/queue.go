package lib

import (
	"container/list"
	"sync"
	"time"
)

/*
	This file implements the transaction queue: an in-memory pool of validated but
	uncommitted transactions. Arrival order is preserved (FIFO), entries are
	de-duplicated by hash against both the pending pool and a recently-committed
	window, and entries leave the pool only on commit or expiry. A failed
	consensus round never loses transactions because NextBatch() does not remove.
*/

// TxValidator is the external validation collaborator invoked before a
// transaction is accepted into the queue
type TxValidator func(payload []byte) error

// QueueI is the model of the pending transaction pool
type QueueI interface {
	Enqueue(tx *Transaction) ErrorI                          // sole ingress for client submitted transactions
	NextBatch(maxCount int, maxBytes uint64) []*Transaction  // deterministic FIFO read of the next proposal batch, non destructive
	Contains(hash string) bool                               // whether the hash is pending
	RemoveCommitted(hashes [][]byte)                         // housekeeping after a commit
	SweepExpired(now time.Time)                              // housekeeping on a timer
	TxCount() int                                            // number of pending transactions
}

var _ QueueI = &Queue{}

// Queue is the concrete QueueI implementation
type Queue struct {
	l         sync.RWMutex             // many producers enqueue; batches and removals are serialized through the consensus engine
	pool      *list.List               // FIFO arrival order
	elems     map[string]*list.Element // txHash -> list element
	committed map[string]uint64        // txHash -> commit capture time, the recently-committed window
	txsBytes  uint64                   // collective pending bytes
	validate  TxValidator              // external validation callback, may be nil
	config    QueueConfig              // user configuration
	log       LoggerI
}

// queueEntry is the stored form of a pending transaction
type queueEntry struct {
	tx   *Transaction
	hash string
	size uint64
}

// NewQueue() creates a Queue from configuration with an optional external validator
func NewQueue(config QueueConfig, validate TxValidator, log LoggerI) *Queue {
	return &Queue{
		pool:      list.New(),
		elems:     make(map[string]*list.Element),
		committed: make(map[string]uint64),
		validate:  validate,
		config:    config,
		log:       log,
	}
}

// Enqueue() accepts a transaction into the pool. Rejections are definite: the
// caller always learns the reason, never a "probably rejected".
func (q *Queue) Enqueue(tx *Transaction) ErrorI {
	hashBz, err := tx.Hash()
	if err != nil {
		return err
	}
	hash := BytesToString(hashBz)
	now := TimeNowMicro()
	// a tampered future timestamp would let a tx dodge its own expiry
	if tx.CreatedTime > now+q.config.FutureThresholdMicro() {
		return ErrTxInFuture(hash)
	}
	if expired(tx, now) {
		return ErrTxExpired(hash)
	}
	if q.validate != nil {
		if e := q.validate(tx.Payload); e != nil {
			return ErrTxRejected(e)
		}
	}
	if uint32(len(tx.Payload)) > q.config.IndividualMaxTxSize {
		return ErrMaxTxSize()
	}
	q.l.Lock()
	defer q.l.Unlock()
	if _, found := q.elems[hash]; found {
		return ErrTxFoundInQueue(hash)
	}
	if _, found := q.committed[hash]; found {
		return ErrTxAlreadyCommitted(hash)
	}
	if uint32(q.pool.Len()) >= q.config.MaxTransactionCount {
		return ErrQueueFull()
	}
	size := uint64(len(tx.Payload))
	q.elems[hash] = q.pool.PushBack(&queueEntry{tx: tx, hash: hash, size: size})
	q.txsBytes += size
	return nil
}

// NextBatch() returns up to maxCount transactions or maxBytes collective bytes,
// whichever bound is hit first, in arrival order. Entries are not removed:
// removal happens only on commit or expiry, so a failed round keeps its batch.
func (q *Queue) NextBatch(maxCount int, maxBytes uint64) (txs []*Transaction) {
	q.l.RLock()
	defer q.l.RUnlock()
	now, totalBytes := TimeNowMicro(), uint64(0)
	for e := q.pool.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*queueEntry)
		if expired(entry.tx, now) {
			continue // left for the expiry sweep
		}
		if len(txs) >= maxCount {
			return
		}
		if totalBytes+entry.size > maxBytes {
			return
		}
		totalBytes += entry.size
		txs = append(txs, entry.tx)
	}
	return
}

// Contains() checks if a transaction with the given hash is pending
func (q *Queue) Contains(hash string) (contains bool) {
	q.l.RLock()
	defer q.l.RUnlock()
	_, contains = q.elems[hash]
	return
}

// RemoveCommitted() drops the committed hashes from the pending pool and records
// them in the recently-committed window for duplicate rejection
func (q *Queue) RemoveCommitted(hashes [][]byte) {
	q.l.Lock()
	defer q.l.Unlock()
	now := TimeNowMicro()
	for _, hashBz := range hashes {
		hash := BytesToString(hashBz)
		if elem, found := q.elems[hash]; found {
			q.txsBytes -= elem.Value.(*queueEntry).size
			q.pool.Remove(elem)
			delete(q.elems, hash)
		}
		q.committed[hash] = now
	}
}

// SweepExpired() removes pending transactions whose time to live has elapsed and
// ages out the recently-committed window
func (q *Queue) SweepExpired(now time.Time) {
	q.l.Lock()
	defer q.l.Unlock()
	nowMicro := uint64(now.UnixMicro())
	for e := q.pool.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*queueEntry)
		if expired(entry.tx, nowMicro) {
			q.txsBytes -= entry.size
			q.pool.Remove(e)
			delete(q.elems, entry.hash)
			if q.log != nil {
				q.log.Debugf("Swept expired tx %s", entry.hash)
			}
		}
		e = next
	}
	window := q.config.CommittedWindowMicro()
	for hash, at := range q.committed {
		if nowMicro > at+window {
			delete(q.committed, hash)
		}
	}
}

// TxCount() returns the current number of pending transactions
func (q *Queue) TxCount() int {
	q.l.RLock()
	defer q.l.RUnlock()
	return q.pool.Len()
}

// TxsBytes() returns the collective pending bytes
func (q *Queue) TxsBytes() uint64 {
	q.l.RLock()
	defer q.l.RUnlock()
	return q.txsBytes
}

// expired() reports whether the transaction's own time to live has elapsed
func expired(tx *Transaction, nowMicro uint64) bool {
	return nowMicro > tx.CreatedTime+tx.TTLMicro
}
