package filecrypt

import (
	"bytes"
	"testing"
)

func TestKeyDeriver_Deterministic(t *testing.T) {
	argon, err := NewArgon2idDeriver(fastArgon2)
	if err != nil {
		t.Fatalf("NewArgon2idDeriver() failed: %v", err)
	}
	pbkdf, err := NewPBKDF2Deriver(fastPBKDF2)
	if err != nil {
		t.Fatalf("NewPBKDF2Deriver() failed: %v", err)
	}

	salt := bytes.Repeat([]byte{0x07}, SaltSize)
	otherSalt := bytes.Repeat([]byte{0x08}, SaltSize)

	for _, kdf := range []KeyDeriver{argon, pbkdf} {
		t.Run(string(kdf.Name()), func(t *testing.T) {
			k1, err := kdf.DeriveKey([]byte("password"), salt)
			if err != nil {
				t.Fatalf("DeriveKey() failed: %v", err)
			}
			k2, _ := kdf.DeriveKey([]byte("password"), salt)
			if len(k1) != KeySize {
				t.Errorf("key length = %d, want %d", len(k1), KeySize)
			}
			if !bytes.Equal(k1, k2) {
				t.Error("same password and salt produced different keys")
			}

			k3, _ := kdf.DeriveKey([]byte("password"), otherSalt)
			if bytes.Equal(k1, k3) {
				t.Error("different salts produced the same key")
			}
			k4, _ := kdf.DeriveKey([]byte("Password"), salt)
			if bytes.Equal(k1, k4) {
				t.Error("different passwords produced the same key")
			}

			// Empty passwords are accepted
			if _, err := kdf.DeriveKey(nil, salt); err != nil {
				t.Errorf("DeriveKey() with empty password failed: %v", err)
			}
		})
	}
}

func TestKeyDeriver_StrategiesDiffer(t *testing.T) {
	argon, _ := NewArgon2idDeriver(fastArgon2)
	pbkdf, _ := NewPBKDF2Deriver(fastPBKDF2)
	salt := make([]byte, SaltSize)

	a, _ := argon.DeriveKey([]byte("pw"), salt)
	p, _ := pbkdf.DeriveKey([]byte("pw"), salt)
	if bytes.Equal(a, p) {
		t.Error("Argon2id and PBKDF2 produced the same key")
	}
}

func TestKeyDeriver_RejectsBadSalt(t *testing.T) {
	argon, _ := NewArgon2idDeriver(fastArgon2)
	pbkdf, _ := NewPBKDF2Deriver(fastPBKDF2)

	for _, kdf := range []KeyDeriver{argon, pbkdf} {
		for _, salt := range [][]byte{nil, make([]byte, SaltSize-1), make([]byte, SaltSize+1)} {
			if _, err := kdf.DeriveKey([]byte("pw"), salt); !IsValidationError(err) {
				t.Errorf("%s: DeriveKey() with %d-byte salt error = %v, want ValidationError", kdf.Name(), len(salt), err)
			}
		}
	}
}

func TestNewKeyDeriver_FromParams(t *testing.T) {
	salt := bytes.Repeat([]byte{0x09}, SaltSize)

	argon, _ := NewArgon2idDeriver(fastArgon2)
	pbkdf, _ := NewPBKDF2Deriver(fastPBKDF2)

	for _, kdf := range []KeyDeriver{argon, pbkdf} {
		t.Run(string(kdf.Name()), func(t *testing.T) {
			rebuilt, err := NewKeyDeriver(kdf.Name(), kdf.Params())
			if err != nil {
				t.Fatalf("NewKeyDeriver() failed: %v", err)
			}
			want, _ := kdf.DeriveKey([]byte("pw"), salt)
			got, _ := rebuilt.DeriveKey([]byte("pw"), salt)
			if !bytes.Equal(want, got) {
				t.Error("rebuilt deriver produced a different key")
			}
		})
	}
}

func TestNewKeyDeriver_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		kdf    KDFName
		params KDFParams
	}{
		{"unknown strategy", "scrypt", KDFParams{KeyLength: KeySize}},
		{"argon2 memory above bound", KDFArgon2id, KDFParams{Time: 1, Memory: MaxArgon2Memory + 1, Parallelism: 1, KeyLength: KeySize}},
		{"argon2 time above bound", KDFArgon2id, KDFParams{Time: MaxArgon2Iterations + 1, Memory: 1024, Parallelism: 1, KeyLength: KeySize}},
		{"argon2 zero parallelism", KDFArgon2id, KDFParams{Time: 1, Memory: 1024, KeyLength: KeySize}},
		{"argon2 short key", KDFArgon2id, KDFParams{Time: 1, Memory: 1024, Parallelism: 1, KeyLength: 16}},
		{"pbkdf2 iterations above bound", KDFPBKDF2, KDFParams{Iterations: MaxPBKDF2Iterations + 1, KeyLength: KeySize}},
		{"pbkdf2 zero iterations", KDFPBKDF2, KDFParams{KeyLength: KeySize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewKeyDeriver(tt.kdf, tt.params)
			if err == nil {
				t.Fatal("NewKeyDeriver() expected error, got nil")
			}
			if d != nil {
				t.Errorf("NewKeyDeriver() returned non-nil deriver %v with error", d)
			}
			if !IsValidationError(err) {
				t.Errorf("NewKeyDeriver() error = %T, want ValidationError", err)
			}
		})
	}
}

func TestDefaultKDFParams(t *testing.T) {
	a := DefaultArgon2idParams()
	if a.Iterations != 3 || a.Memory != 64*1024 || a.Parallelism != 4 || a.KeySize != KeySize {
		t.Errorf("DefaultArgon2idParams() = %+v", a)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("DefaultArgon2idParams().Validate() = %v", err)
	}

	p := DefaultPBKDF2Params()
	if p.Iterations != 100000 || p.KeySize != KeySize {
		t.Errorf("DefaultPBKDF2Params() = %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("DefaultPBKDF2Params().Validate() = %v", err)
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte("sensitive")
	ZeroBytes(b)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, c)
		}
	}
	ZeroBytes(nil)
}

func TestHeaderKeyDeriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Argon2.Memory = 2 * MaxHeaderArgon2Memory
	cfg.PBKDF2.Iterations = 2 * MaxHeaderPBKDF2Iterations

	within := fastArgon2.kdfParams()
	tests := []struct {
		name    string
		kdf     KDFName
		params  KDFParams
		wantErr bool
	}{
		{"configured argon2", KDFArgon2id, cfg.Argon2.kdfParams(), false},
		{"configured pbkdf2", KDFPBKDF2, cfg.PBKDF2.kdfParams(), false},
		{"small argon2", KDFArgon2id, within, false},
		{"argon2 at limits", KDFArgon2id, KDFParams{Memory: MaxHeaderArgon2Memory, Time: MaxHeaderArgon2Iterations, Parallelism: MaxHeaderArgon2Parallelism, KeyLength: KeySize}, false},
		{"argon2 memory", KDFArgon2id, KDFParams{Memory: MaxHeaderArgon2Memory + 1, Time: 1, Parallelism: 1, KeyLength: KeySize}, true},
		{"argon2 time", KDFArgon2id, KDFParams{Memory: 1024, Time: MaxHeaderArgon2Iterations + 1, Parallelism: 1, KeyLength: KeySize}, true},
		{"argon2 parallelism", KDFArgon2id, KDFParams{Memory: 4096, Time: 1, Parallelism: MaxHeaderArgon2Parallelism + 1, KeyLength: KeySize}, true},
		{"pbkdf2 iterations", KDFPBKDF2, KDFParams{Iterations: MaxHeaderPBKDF2Iterations + 1, KeyLength: KeySize}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kdf, err := headerKeyDeriver(cfg, tt.kdf, tt.params)
			if tt.wantErr {
				if !IsValidationError(err) {
					t.Errorf("headerKeyDeriver() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("headerKeyDeriver() failed: %v", err)
			}
			if kdf.Name() != tt.kdf || kdf.Params() != tt.params {
				t.Errorf("deriver = %s %+v, want %s %+v", kdf.Name(), kdf.Params(), tt.kdf, tt.params)
			}
		})
	}
}
