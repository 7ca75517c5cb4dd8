package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a decimal(20,2) column can hold.
var MaxAmount = decimal.RequireFromString("999999999999999999.99")

// Money amounts go over the wire as strings with exactly two fraction digits.

func (w Wallet) MarshalJSON() ([]byte, error) {
	type wallet Wallet
	return json.Marshal(struct {
		wallet
		Balance string `json:"balance"`
	}{wallet(w), w.Balance.StringFixed(2)})
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type transaction Transaction
	return json.Marshal(struct {
		transaction
		Amount string `json:"amount"`
	}{transaction(t), t.Amount.StringFixed(2)})
}

func (m Message) MarshalJSON() ([]byte, error) {
	type message Message
	return json.Marshal(struct {
		message
		Price string `json:"price"`
	}{message(m), m.Price.StringFixed(2)})
}
