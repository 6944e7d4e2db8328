package ton

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/jetton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

var ErrInvalidAccount = errors.New("invalid account reference")

// Client implements Substrate against a TON lite server pool.
type Client struct {
	api    ton.APIClientWrapped
	wallet *wallet.Wallet
}

// Connect dials the lite servers from the global config URL. walletSeed is
// the space-separated seed phrase of the treasury wallet; it may be empty
// for read-only deployments, in which case Transfer fails.
func Connect(ctx context.Context, configURL, walletSeed string) (*Client, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("liteclient config: %w", err)
	}

	api := ton.NewAPIClient(pool).WithRetry()

	c := &Client{api: api}
	if walletSeed != "" {
		w, err := wallet.FromSeed(api, strings.Fields(walletSeed), wallet.V4R2)
		if err != nil {
			return nil, fmt.Errorf("treasury wallet: %w", err)
		}
		c.wallet = w
	}
	return c, nil
}

func (c *Client) ValidateAccount(ref string) error {
	if _, err := address.ParseAddr(ref); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	return nil
}

func (c *Client) ReadBalance(ctx context.Context, ref string) (*big.Int, error) {
	addr, err := address.ParseAddr(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("masterchain info: %w", err)
	}

	acc, err := c.api.GetAccount(ctx, block, addr)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !acc.IsActive {
		return big.NewInt(0), nil
	}
	return acc.State.Balance.Nano(), nil
}

func (c *Client) JettonBalance(ctx context.Context, ref, master string) (*big.Int, error) {
	owner, err := address.ParseAddr(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	masterAddr, err := address.ParseAddr(master)
	if err != nil {
		return nil, fmt.Errorf("jetton master: %w", err)
	}

	jm := jetton.NewJettonMasterClient(c.api, masterAddr)
	jw, err := jm.GetJettonWallet(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("jetton wallet: %w", err)
	}

	balance, err := jw.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("jetton balance: %w", err)
	}
	return balance, nil
}

func (c *Client) RecentTransactionCount(ctx context.Context, ref string, limit int) (int, error) {
	addr, err := address.ParseAddr(ref)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("masterchain info: %w", err)
	}

	acc, err := c.api.GetAccount(ctx, block, addr)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	if !acc.IsActive || acc.LastTxLT == 0 {
		return 0, nil
	}

	txs, err := c.api.ListTransactions(ctx, addr, uint32(limit), acc.LastTxLT, acc.LastTxHash)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	return len(txs), nil
}

func (c *Client) Transfer(ctx context.Context, ref string, amount uint64) (string, error) {
	if c.wallet == nil {
		return "", fmt.Errorf("treasury wallet not configured")
	}

	to, err := address.ParseAddr(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	coins := tlb.FromNanoTONU(amount)
	tx, _, err := c.wallet.TransferWaitTransaction(ctx, to, coins, "reward claim")
	if err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}
	return fmt.Sprintf("%x", tx.Hash), nil
}
