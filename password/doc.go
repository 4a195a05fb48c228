// Package password verifies the pre-hashed login secret.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) are accepted too. [Verifier] picks the scheme from the
// prefix, and both paths compare in constant time.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Which hash is the universal secret, and
// what happens after a match, is decided by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets; callers supply plaintext and receive hashes.
//   - Import any other gateAuth package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
