package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a locally generated key-pair wallet. Private material is kept in
// Sealed and only opened by Reveal.
type Wallet struct {
	ID            string
	OwnerID       string
	Label         string
	EVMAddress    string
	SolanaAddress string
	Sealed        string
	Imported      bool
	CreatedAt     time.Time
}

// Secrets is the private half of a wallet.
type Secrets struct {
	PrivateKey       string `json:"private_key"`
	SolanaPrivateKey string `json:"solana_private_key"`
	Mnemonic         string `json:"mnemonic"`
}

// Holding is the simulated balance of one coin.
type Holding struct {
	Coin   string
	Units  int64
	Amount decimal.Decimal
	AsOf   time.Time
}

// ReceiveInfo is what a sender needs to pay into a wallet.
type ReceiveInfo struct {
	Coin    string
	Address string
	QRCode  string
}
