package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const validCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestValidateCID(t *testing.T) {
	assert.NoError(t, ValidateCID(validCID))
}

func TestValidateCID_Rejects(t *testing.T) {
	cases := []struct {
		name string
		cid  string
	}{
		{name: "empty", cid: ""},
		{name: "too_short", cid: "QmYwAP"},
		{name: "too_long", cid: validCID + "a"},
		{name: "wrong_prefix", cid: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"[:46]},
		{name: "non_base58_zero", cid: "Qm0wAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
		{name: "non_base58_letter_O", cid: strings.Replace(validCID, "Y", "O", 1)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCID(tc.cid), ErrNotIPFSHash)
		})
	}
}

func TestValidateCIDs_PhotoLimit(t *testing.T) {
	hashes := make([]string, MaxPhotoLimit+1)
	for i := range hashes {
		hashes[i] = validCID
	}
	assert.ErrorIs(t, ValidateCIDs(hashes), ErrPhotoLimitExceeded)
	assert.NoError(t, ValidateCIDs(hashes[:MaxPhotoLimit]))
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"))
	assert.ErrorIs(t, ValidateAddress("0x123"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress("Ab5801a7D398351b8bE11C439e05C5B3259aeC9B00"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress("0xZb5801a7D398351b8bE11C439e05C5B3259aeC9B"), ErrInvalidAddress)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xab5801a7d398351b8be11c439e05c5b3259aec9b", NormalizeAddress(" 0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B "))
}
