// Package publish deploys the light client contract suite to an EVM chain.
//
// The package is split into three parts: a Deployer that broadcasts
// EIP-1559 creation transactions over RPC, a Contracts cache that makes
// every deployment idempotent within a run, and a bytecode linker that
// substitutes library addresses into unlinked creation bytecode.
package publish

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
)

type Deployer struct {
	client    *w3.Client
	signer    types.Signer
	key       *ecdsa.PrivateKey
	address   common.Address
	gasFeeCap *big.Int
	gasTipCap *big.Int
}

func NewDeployer(rpcURL string, chainID int64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int) (*Deployer, error) {
	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Deployer{
		client:    client,
		signer:    types.NewLondonSigner(big.NewInt(chainID)),
		key:       privateKey,
		address:   crypto.PubkeyToAddress(privateKey.PublicKey),
		gasFeeCap: gasFeeCap,
		gasTipCap: gasTipCap,
	}, nil
}

func (d *Deployer) Address() common.Address {
	return d.address
}

func (d *Deployer) Close() error {
	return d.client.Close()
}

func (d *Deployer) getNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(d.address, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(nil)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signedTx.Hash(), nil
}

// CreateContract broadcasts a creation transaction for code with the
// ABI-encoded constructorArgs appended, waits for its receipt and returns
// the new contract's address. It implements Backend.
func (d *Deployer) CreateContract(ctx context.Context, code, constructorArgs []byte, gasLimit uint64) (common.Address, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return common.Address{}, err
	}

	contractAddr := crypto.CreateAddress(d.address, nonce)

	data := make([]byte, 0, len(code)+len(constructorArgs))
	data = append(data, code...)
	data = append(data, constructorArgs...)

	// EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     nonce,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	txHash, err := d.sendTx(ctx, tx)
	if err != nil {
		return common.Address{}, err
	}

	receipt, err := d.WaitForReceipt(ctx, txHash)
	if err != nil {
		return common.Address{}, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("creation tx %s reverted", txHash.Hex())
	}

	return contractAddr, nil
}

// SendTransaction broadcasts a call to an already-deployed contract. Used
// by callers for follow-up initialization of upgradable contracts; the
// deployment flow itself never needs it.
func (d *Deployer) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     nonce,
		To:        &to,
		GasFeeCap: d.gasFeeCap,
		GasTipCap: d.gasTipCap,
		Gas:       gasLimit,
		Data:      data,
	})

	return d.sendTx(ctx, tx)
}

func (d *Deployer) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := d.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("get code at %s: %w", addr.Hex(), err)
	}
	return code, nil
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func MustHexDecode(hexStr string) []byte {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		panic(fmt.Sprintf("decode hex: %v", err))
	}
	return b
}
