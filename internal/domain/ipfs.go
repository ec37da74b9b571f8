package domain

// CIDv0 identifiers are 46 characters, start with "Qm" and use the base58btc
// alphabet (no 0, O, I or l). Validation is purely syntactic; the content is
// never fetched.
const cidV0Length = 46

var base58Alphabet = func() [256]bool {
	var ok [256]bool
	for _, c := range "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz" {
		ok[c] = true
	}
	return ok
}()

// ValidateCID checks that s is syntactically a CIDv0 IPFS hash.
func ValidateCID(s string) error {
	if len(s) != cidV0Length || s[0] != 'Q' || s[1] != 'm' {
		return ErrNotIPFSHash
	}
	for i := 0; i < len(s); i++ {
		if !base58Alphabet[s[i]] {
			return ErrNotIPFSHash
		}
	}
	return nil
}

// ValidateCIDs validates every photo hash and enforces the per-item limit.
func ValidateCIDs(hashes []string) error {
	if len(hashes) > MaxPhotoLimit {
		return ErrPhotoLimitExceeded
	}
	for _, h := range hashes {
		if err := ValidateCID(h); err != nil {
			return err
		}
	}
	return nil
}
