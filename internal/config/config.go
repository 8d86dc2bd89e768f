// Package config loads a Nova project's TOML build configuration, in the
// manner of the teacher's internal/tqw package loading a TQW world file:
// read the whole file into memory, then toml.Unmarshal it into a plain
// tagged struct.
package config

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// Project is the decoded shape of a nova.toml project file.
type Project struct {
	// Sources lists the source roots (directories or individual .nova
	// files) to compile, relative to the project file's directory.
	Sources []string `toml:"sources"`

	// Build holds compiler-behavior options.
	Build BuildOptions `toml:"build"`

	// Server holds cmd/novad's HTTP-service options. The zero value leaves
	// no shared secret configured, so cmd/novad's /v1/token rejects every
	// token request.
	Server ServerOptions `toml:"server"`
}

// BuildOptions controls optional compiler behavior.
type BuildOptions struct {
	// EmitIR, when true, requests an IR text dump alongside diagnostics.
	EmitIR bool `toml:"emit_ir"`

	// CacheFile, if non-empty, names the sqlite incremental-compile cache
	// database that internal/cache should open.
	CacheFile string `toml:"cache_file"`
}

// ServerOptions controls cmd/novad's bearer-token auth.
type ServerOptions struct {
	// Addr is the address cmd/novad should listen on (e.g. ":8080").
	Addr string `toml:"addr"`

	// Secret is the plaintext shared secret read from the project file.
	// It is never stored: LoadProject immediately replaces it with its
	// bcrypt hash in SecretHash and zeroes this field.
	Secret string `toml:"secret"`

	// SecretHash is the bcrypt hash of Secret, base64-encoded the way the
	// teacher's server/tunas package stores a user's password hash.
	SecretHash string `toml:"-"`
}

// LoadProject reads and decodes the TOML project file at path.
func LoadProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("%q: reading from disk: %w", path, err)
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("%q: decoding TOML: %w", path, err)
	}

	if p.Server.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Server.Secret), bcrypt.DefaultCost)
		if err != nil {
			return Project{}, fmt.Errorf("%q: hashing server secret: %w", path, err)
		}
		p.Server.SecretHash = base64.StdEncoding.EncodeToString(hash)
		p.Server.Secret = ""
	}

	return p, nil
}

// VerifySecret reports whether candidate matches the project's configured
// server secret.
func (p Project) VerifySecret(candidate string) bool {
	if p.Server.SecretHash == "" {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(p.Server.SecretHash)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}
