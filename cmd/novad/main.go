/*
Novad starts a minimal HTTP compile service over the Nova compiler.

It reads an optional TOML project file for its listen address and shared
bearer secret, then serves two routes: POST /v1/token exchanges that secret
for a signed, short-lived JWT, and POST /v1/compile (which requires that
token) compiles a submitted source string and returns its diagnostics and IR
text dump.

Usage:

	novad [flags]

The flags are:

	-v, --version
		Give the current version of Nova and then exit.

	-c, --config FILE
		Load listen address and shared secret from the given TOML project
		file. If not given, novad listens on localhost:8080 with no shared
		secret configured, meaning /v1/token always rejects.

	-l, --listen ADDRESS
		Listen on the given address, overriding the config file's [server]
		addr if both are given.
*/
package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/dekarrin/nova/internal/cache"
	"github.com/dekarrin/nova/internal/config"
	"github.com/dekarrin/nova/internal/version"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitInitError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of Nova and then exit.")
	flagConfig  = pflag.StringP("config", "c", "", "Load listen address and shared secret from the given TOML project file.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("novad %s\n", version.Current)
		return
	}

	var proj config.Project
	if *flagConfig != "" {
		var err error
		proj, err = config.LoadProject(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
	}

	addr := proj.Server.Addr
	if pflag.Lookup("listen").Changed {
		addr = *flagListen
	}
	if addr == "" {
		addr = "localhost:8080"
	}

	var store *cache.Store
	if proj.Build.CacheFile != "" {
		var err error
		store, err = cache.Open(proj.Build.CacheFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: opening compile cache: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		defer store.Close()
	}

	// The JWT signing key lives only in this process's memory, same as
	// tqserver's randomly generated token secret: restarting invalidates
	// every outstanding token, which is acceptable for a compile service.
	signingKey := make([]byte, 32)
	if _, err := rand.Read(signingKey); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: generating signing key: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	srv := newCompileServer(proj, signingKey, store)

	log.Printf("INFO  novad %s listening on %s", version.Current, addr)
	if err := http.ListenAndServe(addr, srv.router()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
	}
}
