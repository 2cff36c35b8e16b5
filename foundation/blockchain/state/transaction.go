package state

import (
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/chain"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/metrics"
)

// SubmitTransaction accepts a transaction from a wallet for inclusion. The
// response carries the admission result; the error is set when the node
// could not take an admitted transaction.
func (s *State) SubmitTransaction(tx database.Transaction) (chain.Response, error) {
	c, err := s.Chain(tx.Chain)
	if err != nil {
		return chain.Response{}, err
	}

	resp := c.CheckTx(tx)
	if !resp.IsOK() {
		s.evHandler("state: SubmitTransaction: %s: rejected: tx[%s] code[%d] %s", tx.Chain, tx.Hash(), resp.Code, resp.Log)
		return resp, nil
	}

	mp, err := s.mempool(tx.Chain)
	if err != nil {
		return chain.Response{}, err
	}

	n, err := mp.Upsert(tx)
	if err != nil {
		return chain.Response{}, fmt.Errorf("mempool %s: %w", tx.Chain, err)
	}
	metrics.MempoolGauge.WithLabelValues(tx.Chain).Set(float64(n))

	s.evHandler("state: SubmitTransaction: %s: accepted: tx[%s] pending[%d]", tx.Chain, tx.Hash(), n)

	if s.Worker != nil {
		s.Worker.SignalProduce(tx.Chain)
	}

	return resp, nil
}

// Mempool returns a copy of the pending transactions of the chain in
// arrival order.
func (s *State) Mempool(name string) ([]database.Transaction, error) {
	mp, err := s.mempool(name)
	if err != nil {
		return nil, err
	}
	return mp.Copy(), nil
}

// MempoolLength returns the number of pending transactions of the chain.
func (s *State) MempoolLength(name string) int {
	mp, err := s.mempool(name)
	if err != nil {
		return 0
	}
	return mp.Count()
}
