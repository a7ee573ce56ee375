package order

import "crypto/rand"

// claimAlphabet omits 0/O and 1/I so codes stay unambiguous when read aloud
// at pickup. Its length (32) divides 256, so the byte mapping is unbiased.
const claimAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ClaimCodeLength is the length of generated claim codes.
const ClaimCodeLength = 8

// NewClaimCode generates a short random code a customer presents in person
// to collect an order. Uniqueness is backstopped by the storage layer's
// unique index, not enforced here.
func NewClaimCode() string {
	var buf [ClaimCodeLength]byte
	rand.Read(buf[:])
	for i, b := range buf {
		buf[i] = claimAlphabet[int(b)%len(claimAlphabet)]
	}
	return string(buf[:])
}
