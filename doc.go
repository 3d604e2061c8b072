// Package filecrypt provides password-based whole-file encryption for the
// AbsFs filesystem abstraction.
//
// # Overview
//
// An Engine turns a file into a self-describing container and back. The
// container carries everything needed for decryption except the password:
//
//	[4 bytes]           metadata length, big-endian
//	[length bytes]      metadata, JSON
//	[remaining bytes]   ciphertext, authentication tag appended
//
// The metadata bytes are authenticated as associated data by every layer, so
// any change to them is detected at decryption time.
//
// # Supported Cipher Suites
//
//   - AES-256-GCM
//   - ChaCha20-Poly1305
//   - Multi-layer: ChaCha20-Poly1305 inside AES-256-GCM, each layer with its
//     own salt, nonce and derived key
//
// # Basic Usage
//
//	engine, err := filecrypt.New(filecrypt.NewOSFileSystem(""), filecrypt.DefaultConfig())
//	if err != nil {
//	    panic(err)
//	}
//
//	res, err := engine.EncryptFile("video.mp4", "video.mp4.encrypted", []byte("password"), nil)
//	if err != nil {
//	    panic(err)
//	}
//	fmt.Println(res.Algorithm, res.CompressionRatio)
//
//	out, err := engine.DecryptFile("video.mp4.encrypted", "video_decrypted.mp4", []byte("password"), nil)
//	if err != nil {
//	    panic(err)
//	}
//	fmt.Println(out.HashVerified)
//
// # Key Derivation
//
// Argon2id (default): t=3, m=64 MiB, p=4. PBKDF2-HMAC-SHA256 with 100000
// iterations is the fallback. The strategy and its parameters are recorded in
// the metadata and used as recorded when decrypting, within fixed bounds.
//
// # Compression
//
// Plaintext is optionally compressed with zstd before the first layer.
// Compression happens before encryption, so ciphertext length reveals the
// compressed size.
//
// # Integrity
//
// A SHA-256 digest of the plaintext is stored in the metadata and compared
// after decryption. A mismatch is reported in DecryptResult.HashVerified and
// does not fail the call; AEAD authentication is the actual guarantee.
//
// # Errors
//
// Every error returned by the package can be classified with KindOf. Wrong
// passwords, corrupted ciphertext and tampered metadata all produce the same
// AuthenticationError.
//
// # Secure Erase
//
// SecureErase overwrites a file with random bytes for a number of passes,
// syncing after each, then removes it. Journaling filesystems and SSDs may
// keep copies the overwrite never reaches.
//
// # Thread Safety
//
// An Engine holds only its configuration and may be shared by goroutines
// working on distinct files. Batch uses this to process many files in
// parallel.
package filecrypt
