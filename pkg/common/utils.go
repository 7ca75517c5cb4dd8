package common

import "math/rand/v2"

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTrxNo returns a random 7 character ledger reference.
func GenerateTrxNo() string {
	b := make([]byte, 7)
	for i := range b {
		b[i] = referenceAlphabet[rand.IntN(len(referenceAlphabet))]
	}
	return string(b)
}
