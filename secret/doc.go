// Package secret resolves credentials referenced from dependency configuration.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:file:/run/secrets/postgres-url
//   - Inline use:  Bearer secretref:env:INVENTORY_TOKEN
//
// An inline reference runs to the next whitespace, so a credential embedded
// in a URL is written as ${VAR} or the whole URL is stored as one secret.
package secret
