package config

const (
	// Artifacts for the 2-input transaction circuit
	Tx2CircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction2.wasm"
	Tx2CircuitHash         = "1f6a9b6870d1af1b3c95e80c84a99a38ef2f1c3a8b1a2e4f76a1d0c9b8e3d5a2"
	Tx2ProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction2.zkey"
	Tx2ProvingKeyHash      = "7c44e2a81f7d2b9a60c5e3a1d4b8f29c3e6a5d0f1b2c3d4e5f6a7b8c9d0e1f2a"
	Tx2VerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction2_vkey.json"
	Tx2VerificationKeyHash = "9d1c2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d"
	// Artifacts for the 16-input transaction circuit
	Tx16CircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction16.wasm"
	Tx16CircuitHash         = "2b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c"
	Tx16ProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction16.zkey"
	Tx16ProvingKeyHash      = "8e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2c3d4e5f"
	Tx16VerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/zkpool/dev/transaction16_vkey.json"
	Tx16VerificationKeyHash = "3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b"
)
