// Package resource implements the private resource model of the shielded actions protocol.
//
// Overview:
//   - A Resource is an immutable unit of value, identified publicly only by its commitment
//   - Commitments bind all eight resource fields in a fixed order
//   - Nullifiers bind a resource to the key that spends it and prevent double spends
//   - Key commitments let a resource name its spender without revealing the key
//
// Security Model:
//   - SHA-256 is the default hash so independent implementations agree bit-for-bit
//   - MiMC over the BN254 scalar field is available for circuit-friendly deployments
//   - All randomness (nonces, seeds, nullifier keys) is read from crypto/rand unless injected
//   - Fixed-width fields are never truncated or reordered before hashing
//
// Usage:
//   - Use GenerateNullifierKey to create a spending key
//   - Use New or NewEphemeral to create resources with fresh randomness
//   - Use Commitment, Nullifier and DeriveKeyCommitment (or a Codec) for derivations
package resource
