package tonapi

// Event is one account event as returned by /accounts/{id}/events
type Event struct {
	EventID    string   `json:"event_id"`
	Timestamp  int64    `json:"timestamp"`
	Actions    []Action `json:"actions"`
	IsScam     bool     `json:"is_scam"`
	InProgress bool     `json:"in_progress"`
}

type Action struct {
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	TonTransfer *TonTransfer `json:"TonTransfer,omitempty"`
}

// TonTransfer is a plain TON payment
type TonTransfer struct {
	Sender    Account `json:"sender"`
	Recipient Account `json:"recipient"`
	Amount    int64   `json:"amount"` // nanoTON
	Comment   string  `json:"comment,omitempty"`
}

type Account struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	IsScam   bool   `json:"is_scam,omitempty"`
	IsWallet bool   `json:"is_wallet,omitempty"`
}

type EventsResponse struct {
	Events   []Event `json:"events"`
	NextFrom int64   `json:"next_from"`
}
