// Package services implements the driving port interfaces.
// Services contain the core logic of the retrieval engine and orchestrate
// calls to driven ports (adapters):
//
//   - IndexStore pairs the chunk store with the embedding service.
//   - IndexService ingests the policy and protocol collections.
//   - RetrievalService resolves selections and builds grounded context.
//   - SettingsService reads and validates configuration.
//
// Services are pure Go with no CGO or external dependencies.
package services
