package models

// EncryptedCredential is the at-rest form of the shared secret.
// Salt, IV and Ciphertext marshal as base64 via encoding/json.
type EncryptedCredential struct {
	Salt          []byte `json:"salt"`
	IV            []byte `json:"iv"`
	Ciphertext    []byte `json:"ciphertext"`
	KDFIterations int    `json:"kdf_iterations"`
}
