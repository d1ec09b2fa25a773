package funding

// TradeRequest buys or sells a coin. Give either amount (coin units) or
// usd_amount; card_number is optional for buys.
type TradeRequest struct {
	Coin       string `json:"coin"`
	Amount     string `json:"amount"`
	USDAmount  string `json:"usd_amount"`
	CardNumber string `json:"card_number"`
	ClientTxID string `json:"client_tx_id"`
}

// TradeResponse represents the API response for buy and sell.
type TradeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Coin          string `json:"coin"`
	Amount        string `json:"amount"`
	USDAmount     string `json:"usd_amount"`
	Price         string `json:"price"`
	WalletBalance string `json:"wallet_balance"`
	RampReference string `json:"ramp_reference"`
}
