// Package credential provides password salting, hashing and verification for account credentials.
//
// # Overview
//
// A credential is the string stored in place of a plaintext password. It is
// composed of a 10 character salt followed by a hex digest:
//
//	credential = salt || hex(argon2id(plaintext || salt))
//
// Salts are drawn with crypto/rand from the 62 symbol alphanumeric alphabet
// (SaltAlphabet).
//
// # Usage
//
//	hasher := credential.NewHasher()
//	stored, err := hasher.SaltAndHash("s3cret")
//	ok, err := hasher.Validate("s3cret", stored)
//
// Validate returns ErrInvalidCredentialFormat for corrupt data so callers can
// tell "wrong password" apart from "broken record".
//
// # Legacy Credentials
//
// Accounts imported from the previous system carry salt || md5(plaintext || salt).
// When the hasher is built WithLegacyMD5(true) those credentials still
// validate, and NeedsUpgrade reports them so the caller can re-hash after a
// successful login.
package credential
