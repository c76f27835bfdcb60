// Package mock provides test doubles for the ai interfaces.
// The embedder produces deterministic unit vectors so similarity-based
// tests are repeatable without an external provider.
package mock
