// Package simpleassets provides a reusable library for tenant-scoped custom
// asset management: named image assets with content-addressed binary storage,
// durable metadata, per-user usage counters, and per-tenant quotas.
//
// It exposes a single Service interface that orchestrates name validation,
// constraint checks, blob writes and metadata writes, with compensating
// cleanup when a multi-step write fails partway. Implementations of metadata
// stores (e.g., memory, SQLite, Postgres) and blob stores (e.g., memory,
// filesystem, S3) are provided under subpackages.
//
// Consistency Strategy
//
// There is no shared transaction spanning the blob store and the metadata
// store. Writes go blob-first so a metadata failure can still delete the
// just-written blob; deletes go metadata-first so a metadata failure leaves
// the blob intact rather than orphaning a live record. The metadata store's
// (tenant_id, name) uniqueness constraint is the source of truth for
// concurrent-add conflicts.
package simpleassets
