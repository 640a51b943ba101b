// Package stackauth issues and validates application sessions on top of an
// external identity provider, reconciling provider identities with an internal
// account and membership directory.
//
// A caller picks a method adapter (Password, OAuth, MagicLink), the adapter
// verifies credentials against the identity provider and hands the verified
// identity to the AccountLinker, which provisions or reuses a local user and
// project membership. The resulting membership and provider session ids are
// minted into a delivered token that later requests present through the
// SessionValidator.
//
// The package consumes a request/response abstraction (goliatone/go-router)
// and two external collaborators: a DirectoryAPI (see the directory package)
// and an IdentityProvider (see the workos package). It does not implement its
// own transport, does not store passwords, and does not manage the provider's
// session store.
package stackauth
